// Package stripe adapts Stripe PaymentIntents to models.Provider.
//
// Cards are collected with a SetupIntent and saved as PaymentMethods.
// Authorizations are manual-capture intents; purchases capture on confirm.
package stripe

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gatepay/internal/config"
	"gatepay/internal/models"
	"gatepay/internal/providers"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"go.uber.org/zap"
)

type Config struct {
	Name           string
	Environment    config.Environment
	SecretKey      string
	PublishableKey string
	CurrencyCode   string
	BaseURL        string
	Timeout        time.Duration
	Logger         *zap.Logger
}

type Provider struct {
	providers.Base
	client         Client
	publishableKey string
	currency       string
	now            func() time.Time
}

var _ models.Provider = (*Provider)(nil)

func New(cfg Config) *Provider {
	return NewWithClient(cfg, NewAPIClient(cfg.SecretKey, cfg.BaseURL, cfg.Timeout, cfg.Logger))
}

func NewWithClient(cfg Config, client Client) *Provider {
	name := cfg.Name
	if name == "" {
		name = "stripe"
	}
	return &Provider{
		Base:           providers.NewBase(name, cfg.Environment, supports, cfg.Logger),
		client:         client,
		publishableKey: cfg.PublishableKey,
		currency:       strings.ToLower(cfg.CurrencyCode),
		now:            time.Now,
	}
}

func supports(_ context.Context, f models.Feature) (bool, error) {
	switch f {
	case models.FeatureCredit, models.FeatureRetain:
		return false, nil
	}
	return true, nil
}

func (p *Provider) LookupInstrument(ctx context.Context, id string) (*models.Instrument, error) {
	pm, err := p.client.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return p.coerceCard(pm), nil
}

func (p *Provider) LookupInstrumentFromOperation(ctx context.Context, ref models.OperationRef) (*models.Instrument, error) {
	op, err := p.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !op.HasInstrument() {
		return nil, fmt.Errorf("payment method for %s: %w", op.ID(), models.ErrNotFound)
	}
	return op.Instrument(), nil
}

func (p *Provider) LookupOperation(ctx context.Context, id string) (*models.Operation, error) {
	return p.lookup(ctx, models.OperationID(id))
}

// lookup resolves payment intents and refunds by their id prefix.
func (p *Provider) lookup(ctx context.Context, ref models.OperationRef) (*models.Operation, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(id, "re_") {
		r, err := p.client.GetRefund(ctx, id)
		if err != nil {
			return nil, lookupError(err)
		}
		return p.coerceRefund(r), nil
	}
	pi, err := p.client.GetPaymentIntent(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return p.coerceIntent(pi, ""), nil
}

// PrepareSubmission opens a SetupIntent for Stripe Elements. The form
// confirms it client side and Stripe redirects back with its id.
func (p *Provider) PrepareSubmission(ctx context.Context, redirectURL string, opts models.SubmissionOptions) (*models.Submission, error) {
	si, err := p.client.CreateSetupIntent(ctx)
	if err != nil {
		return nil, fmt.Errorf("stripe: create setup intent: %w", err)
	}
	hidden := map[string]string{
		"publishable_key": p.publishableKey,
		"client_secret":   si.ClientSecret,
		"setup_intent":    si.ID,
		"return_url":      redirectURL,
	}
	// Elements confirms in the browser and then follows return_url, so the
	// form itself posts back to the caller.
	return &models.Submission{
		URL:          redirectURL,
		HiddenFields: hidden,
		FieldNames:   FieldNames,
	}, nil
}

func (p *Provider) ConfirmSubmission(ctx context.Context, rawQuery string, opts models.ConfirmOptions) (*models.Result, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("stripe: parse redirect query: %w", err)
	}
	id := q.Get("setup_intent")
	if id == "" {
		return nil, fmt.Errorf("stripe: redirect query has no setup_intent: %w: %w", models.ErrInvalidOptions, models.ErrMissingID)
	}

	si, err := p.client.GetSetupIntent(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if si.Status != stripe.SetupIntentStatusSucceeded || si.PaymentMethod == nil {
		errs := []models.SubmissionError{{
			Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldNumber, Raw: si.Status,
		}}
		if si.LastSetupError != nil {
			errs = []models.SubmissionError{mapError(si.LastSetupError, "")}
		}
		return models.NewResult(false, si, models.WithErrors(errs...)), nil
	}

	card := p.coerceCard(si.PaymentMethod)
	switch opts.Execute {
	case models.SubmitAuthorize, models.SubmitPurchase:
		if !opts.Amount.Valid {
			return nil, fmt.Errorf("stripe: %s requires an amount: %w", opts.Execute, models.ErrInvalidOptions)
		}
		if opts.Execute == models.SubmitAuthorize {
			return card.Authorize(ctx, opts.Amount.Decimal)
		}
		return card.Purchase(ctx, opts.Amount.Decimal)
	case models.SubmitStore, "":
		return models.NewResult(true, si, models.WithInstrument(card)), nil
	}
	return nil, fmt.Errorf("stripe: unknown submission type %q: %w", opts.Execute, models.ErrInvalidOptions)
}

func (p *Provider) AuthorizeViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return p.charge(ctx, in, amount, models.FeatureAuthorize)
}

func (p *Provider) PurchaseViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return p.charge(ctx, in, amount, models.FeaturePurchase)
}

func (p *Provider) charge(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal, f models.Feature) (*models.Result, error) {
	id, err := providers.InstrumentIDOf(in)
	if err != nil {
		return nil, err
	}
	pi, err := p.client.CreatePaymentIntent(ctx, IntentRequest{
		PaymentMethod: id,
		Amount:        providers.MinorUnits(amount),
		Currency:      p.currency,
		ManualCapture: f == models.FeatureAuthorize,
	})
	if err != nil {
		return p.failure(err, f)
	}
	return p.intentResult(pi, ""), nil
}

func (p *Provider) CaptureOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	pi, err := p.client.CapturePaymentIntent(ctx, id)
	if err != nil {
		return p.failure(err, models.FeatureCapture)
	}
	return p.intentResult(pi, models.TypeCapture), nil
}

func (p *Provider) VoidOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	pi, err := p.client.CancelPaymentIntent(ctx, id)
	if err != nil {
		return p.failure(err, models.FeatureVoid)
	}
	return p.intentResult(pi, models.TypeVoid), nil
}

func (p *Provider) RefundOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	return p.refund(ctx, ref, nil, models.FeatureRefund)
}

func (p *Provider) PartiallyRefundOperation(ctx context.Context, ref models.OperationRef, amount decimal.Decimal) (*models.Result, error) {
	cents := providers.MinorUnits(amount)
	return p.refund(ctx, ref, &cents, models.FeaturePartialRefund)
}

func (p *Provider) refund(ctx context.Context, ref models.OperationRef, amount *int64, f models.Feature) (*models.Result, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	r, err := p.client.CreateRefund(ctx, id, amount)
	if err != nil {
		return p.failure(err, f)
	}
	return p.refundResult(r), nil
}

func (p *Provider) DeleteInstrument(ctx context.Context, in models.InstrumentRef) (*models.Result, error) {
	id, err := providers.InstrumentIDOf(in)
	if err != nil {
		return nil, err
	}
	pm, err := p.client.DetachPaymentMethod(ctx, id)
	if err != nil {
		return p.failure(err, models.FeatureDelete)
	}
	return models.NewResult(true, pm, models.WithInstrument(p.coerceCard(pm))), nil
}
