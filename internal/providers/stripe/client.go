package stripe

import (
	"context"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
)

// IntentRequest confirms a PaymentIntent against a saved payment method.
// Manual capture leaves the intent authorized.
type IntentRequest struct {
	PaymentMethod string
	Amount        int64
	Currency      string
	ManualCapture bool
}

// Client is the subset of the Stripe API the adapter uses.
type Client interface {
	GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*stripe.PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	// CreateRefund refunds a PaymentIntent; a nil amount refunds it in full.
	CreateRefund(ctx context.Context, paymentIntent string, amount *int64) (*stripe.Refund, error)
	GetRefund(ctx context.Context, id string) (*stripe.Refund, error)
	CreateSetupIntent(ctx context.Context) (*stripe.SetupIntent, error)
	GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error)
}

// APIClient implements Client with stripe-go's per-key client.
type APIClient struct {
	api *client.API
}

var _ Client = (*APIClient)(nil)

// NewAPIClient builds a client for secretKey. baseURL overrides the API host
// and is only set against stripe-mock or a test server.
func NewAPIClient(secretKey, baseURL string, timeout time.Duration, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := &stripe.BackendConfig{
		LeveledLogger: logger.Sugar(),
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	if baseURL != "" {
		cfg.URL = stripe.String(baseURL)
		cfg.MaxNetworkRetries = stripe.Int64(0)
	}
	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})
	return &APIClient{api: api}
}

func (c *APIClient) GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	return c.api.PaymentMethods.Get(id, params)
}

func (c *APIClient) DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	return c.api.PaymentMethods.Detach(id, params)
}

func (c *APIClient) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("payment_method")
	return c.api.PaymentIntents.Get(id, params)
}

func (c *APIClient) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*stripe.PaymentIntent, error) {
	capture := stripe.PaymentIntentCaptureMethodAutomatic
	if req.ManualCapture {
		capture = stripe.PaymentIntentCaptureMethodManual
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(req.Currency),
		PaymentMethod:      stripe.String(req.PaymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CaptureMethod:      stripe.String(string(capture)),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExpand("payment_method")
	return c.api.PaymentIntents.New(params)
}

func (c *APIClient) CapturePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	params.AddExpand("payment_method")
	return c.api.PaymentIntents.Capture(id, params)
}

func (c *APIClient) CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	params.AddExpand("payment_method")
	return c.api.PaymentIntents.Cancel(id, params)
}

func (c *APIClient) CreateRefund(ctx context.Context, paymentIntent string, amount *int64) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntent),
		Amount:        amount,
	}
	params.Context = ctx
	return c.api.Refunds.New(params)
}

func (c *APIClient) GetRefund(ctx context.Context, id string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{}
	params.Context = ctx
	return c.api.Refunds.Get(id, params)
}

func (c *APIClient) CreateSetupIntent(ctx context.Context) (*stripe.SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
	}
	params.Context = ctx
	return c.api.SetupIntents.New(params)
}

func (c *APIClient) GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error) {
	params := &stripe.SetupIntentParams{}
	params.Context = ctx
	params.AddExpand("payment_method")
	return c.api.SetupIntents.Get(id, params)
}
