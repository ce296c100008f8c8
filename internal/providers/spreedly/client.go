package spreedly

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gatepay/internal/providers"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

const DefaultBaseURL = "https://core.spreedly.com"

var ErrNotFound = errors.New("spreedly: resource not found")

// Client is the subset of the Spreedly Core API the adapter uses.
type Client interface {
	FindPaymentMethod(ctx context.Context, token string) (*PaymentMethod, error)
	RedactPaymentMethod(ctx context.Context, token string) (*Transaction, error)
	RetainPaymentMethod(ctx context.Context, token string) (*Transaction, error)
	FindTransaction(ctx context.Context, token string) (*Transaction, error)
	Authorize(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error)
	Purchase(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error)
	GeneralCredit(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error)
	Capture(ctx context.Context, token string) (*Transaction, error)
	Void(ctx context.Context, token string) (*Transaction, error)
	// Credit refunds a transaction; a nil amount refunds it in full.
	Credit(ctx context.Context, token string, amount *int64) (*Transaction, error)
	FindGateway(ctx context.Context, token string) (*Gateway, error)

	TransparentRedirectURL() string
	EnvironmentKey() string
}

// APIError carries the error list of a non-transaction failure.
type APIError struct {
	Status int
	Errors []apiError
}

func (e *APIError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Message)
	}
	return fmt.Sprintf("spreedly: status %d: %s", e.Status, strings.Join(msgs, "; "))
}

// HTTPClient talks to the Spreedly JSON API.
type HTTPClient struct {
	baseURL        string
	environmentKey string
	accessSecret   string
	transport      *providers.Transport
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL, environmentKey, accessSecret string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		environmentKey: environmentKey,
		accessSecret:   accessSecret,
		transport:      providers.NewTransport("gatepay-spreedly", timeout),
	}
}

func (c *HTTPClient) EnvironmentKey() string { return c.environmentKey }

func (c *HTTPClient) TransparentRedirectURL() string {
	return c.baseURL + "/v1/payment_methods"
}

// call performs a request and decodes the envelope into out. Unprocessable
// transactions are decoded like successes so the caller sees the failed
// transaction.
func (c *HTTPClient) call(ctx context.Context, method, path string, body any, out any) error {
	req := providers.Request{
		Method:   method,
		URL:      c.baseURL + "/v1" + path,
		Username: c.environmentKey,
		Password: c.accessSecret,
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.Body = data
	}

	code, data, err := c.transport.Do(ctx, req)
	if err != nil {
		return err
	}

	switch {
	case code == fiber.StatusNotFound:
		return ErrNotFound
	case code >= 200 && code < 300, code == fiber.StatusUnprocessableEntity:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("spreedly: decode response: %w", err)
		}
		if code == fiber.StatusUnprocessableEntity && isEmpty(out) {
			return decodeAPIError(code, data)
		}
		return nil
	}
	return decodeAPIError(code, data)
}

func decodeAPIError(code int, data []byte) error {
	var envelope struct {
		Errors []apiError `json:"errors"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Errors) == 0 {
		return &providers.HTTPError{Status: code, Body: data}
	}
	return &APIError{Status: code, Errors: envelope.Errors}
}

func isEmpty(out any) bool {
	switch v := out.(type) {
	case *transactionEnvelope:
		return v.Transaction == nil
	case *paymentMethodEnvelope:
		return v.PaymentMethod == nil
	}
	return false
}

type transactionEnvelope struct {
	Transaction *Transaction `json:"transaction"`
}

type paymentMethodEnvelope struct {
	PaymentMethod *PaymentMethod `json:"payment_method"`
}

type gatewayEnvelope struct {
	Gateway *Gateway `json:"gateway"`
}

type transactionBody struct {
	PaymentMethodToken string `json:"payment_method_token,omitempty"`
	Amount             *int64 `json:"amount,omitempty"`
	CurrencyCode       string `json:"currency_code,omitempty"`
}

type transactionRequest struct {
	Transaction transactionBody `json:"transaction"`
}

func (c *HTTPClient) transaction(ctx context.Context, method, path string, body any) (*Transaction, error) {
	var env transactionEnvelope
	if err := c.call(ctx, method, path, body, &env); err != nil {
		return nil, err
	}
	if env.Transaction == nil {
		return nil, errors.New("spreedly: response has no transaction")
	}
	return env.Transaction, nil
}

func (c *HTTPClient) FindPaymentMethod(ctx context.Context, token string) (*PaymentMethod, error) {
	var env paymentMethodEnvelope
	if err := c.call(ctx, fiber.MethodGet, "/payment_methods/"+url.PathEscape(token)+".json", nil, &env); err != nil {
		return nil, err
	}
	if env.PaymentMethod == nil {
		return nil, ErrNotFound
	}
	return env.PaymentMethod, nil
}

func (c *HTTPClient) RedactPaymentMethod(ctx context.Context, token string) (*Transaction, error) {
	return c.transaction(ctx, fiber.MethodPut, "/payment_methods/"+url.PathEscape(token)+"/redact.json", nil)
}

func (c *HTTPClient) RetainPaymentMethod(ctx context.Context, token string) (*Transaction, error) {
	return c.transaction(ctx, fiber.MethodPut, "/payment_methods/"+url.PathEscape(token)+"/retain.json", nil)
}

func (c *HTTPClient) FindTransaction(ctx context.Context, token string) (*Transaction, error) {
	return c.transaction(ctx, fiber.MethodGet, "/transactions/"+url.PathEscape(token)+".json", nil)
}

func (c *HTTPClient) onGateway(ctx context.Context, gatewayToken, action string, req GatewayRequest) (*Transaction, error) {
	amount := req.Amount
	body := transactionRequest{Transaction: transactionBody{
		PaymentMethodToken: req.PaymentMethodToken,
		Amount:             &amount,
		CurrencyCode:       req.CurrencyCode,
	}}
	return c.transaction(ctx, fiber.MethodPost, "/gateways/"+url.PathEscape(gatewayToken)+"/"+action+".json", body)
}

func (c *HTTPClient) Authorize(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error) {
	return c.onGateway(ctx, gatewayToken, "authorize", req)
}

func (c *HTTPClient) Purchase(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error) {
	return c.onGateway(ctx, gatewayToken, "purchase", req)
}

func (c *HTTPClient) GeneralCredit(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error) {
	return c.onGateway(ctx, gatewayToken, "general_credit", req)
}

func (c *HTTPClient) Capture(ctx context.Context, token string) (*Transaction, error) {
	return c.transaction(ctx, fiber.MethodPost, "/transactions/"+url.PathEscape(token)+"/capture.json", nil)
}

func (c *HTTPClient) Void(ctx context.Context, token string) (*Transaction, error) {
	return c.transaction(ctx, fiber.MethodPost, "/transactions/"+url.PathEscape(token)+"/void.json", nil)
}

func (c *HTTPClient) Credit(ctx context.Context, token string, amount *int64) (*Transaction, error) {
	var body any
	if amount != nil {
		body = transactionRequest{Transaction: transactionBody{Amount: amount}}
	}
	return c.transaction(ctx, fiber.MethodPost, "/transactions/"+url.PathEscape(token)+"/credit.json", body)
}

func (c *HTTPClient) FindGateway(ctx context.Context, token string) (*Gateway, error) {
	var env gatewayEnvelope
	if err := c.call(ctx, fiber.MethodGet, "/gateways/"+url.PathEscape(token)+".json", nil, &env); err != nil {
		return nil, err
	}
	if env.Gateway == nil {
		return nil, ErrNotFound
	}
	return env.Gateway, nil
}
