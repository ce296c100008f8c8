// Package spreedly adapts Spreedly Core to models.Provider.
//
// Cards are vaulted in Spreedly's store through a transparent redirect and
// then run against a single configured gateway. What that gateway can do is
// read from its descriptor once and cached.
package spreedly

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"gatepay/internal/config"
	"gatepay/internal/models"
	"gatepay/internal/providers"
	"gatepay/internal/repositories/cache"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	Name           string
	Environment    config.Environment
	EnvironmentKey string
	AccessSecret   string
	GatewayToken   string
	// CurrencyCode is sent with gateway transactions when set.
	CurrencyCode string
	BaseURL      string
	Timeout      time.Duration
	Logger       *zap.Logger
	// Cache shares capability probes between processes. Optional.
	Cache cache.Store
}

type Provider struct {
	providers.Base
	client       Client
	gatewayToken string
	currencyCode string
	cache        cache.Store

	probe           singleflight.Group
	mu              sync.Mutex
	characteristics map[string]bool
}

var _ models.Provider = (*Provider)(nil)

func New(cfg Config) *Provider {
	return NewWithClient(cfg, NewHTTPClient(cfg.BaseURL, cfg.EnvironmentKey, cfg.AccessSecret, cfg.Timeout))
}

func NewWithClient(cfg Config, client Client) *Provider {
	name := cfg.Name
	if name == "" {
		name = "spreedly"
	}
	p := &Provider{
		client:       client,
		gatewayToken: cfg.GatewayToken,
		currencyCode: cfg.CurrencyCode,
		cache:        cfg.Cache,
	}
	p.Base = providers.NewBase(name, cfg.Environment, p.supportsFeature, cfg.Logger)
	return p
}

func (p *Provider) supportsFeature(ctx context.Context, f models.Feature) (bool, error) {
	var key string
	switch f {
	case models.FeatureDelete, models.FeatureRetain:
		// Redaction and retention happen in Spreedly's vault, not on the gateway.
		return true, nil
	case models.FeatureCredit:
		key = "supports_general_credit"
	case models.FeatureRefund, models.FeaturePartialRefund:
		key = "supports_credit"
	default:
		key = "supports_" + string(f)
	}
	chars, err := p.gatewayCharacteristics(ctx)
	if err != nil {
		return false, err
	}
	return chars[key], nil
}

func (p *Provider) cacheKey() string {
	return cache.GenerateKey("spreedly", "characteristics", p.gatewayToken)
}

// gatewayCharacteristics probes the gateway once per provider and shares the
// answer through the cache when one is configured. Concurrent callers share
// a single probe and p.mu only guards the memo.
func (p *Provider) gatewayCharacteristics(ctx context.Context) (map[string]bool, error) {
	if chars := p.memo(); chars != nil {
		return chars, nil
	}
	v, err, _ := p.probe.Do(p.gatewayToken, func() (interface{}, error) {
		if chars := p.memo(); chars != nil {
			return chars, nil
		}
		chars, err := p.loadCharacteristics(ctx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.characteristics = chars
		p.mu.Unlock()
		return chars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]bool), nil
}

func (p *Provider) memo() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.characteristics
}

func (p *Provider) loadCharacteristics(ctx context.Context) (map[string]bool, error) {
	if p.cache != nil {
		var cached map[string]bool
		found, err := p.cache.Get(ctx, p.cacheKey(), &cached)
		if err != nil {
			p.Logger().Warn("capability cache read failed", zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	gw, err := p.client.FindGateway(ctx, p.gatewayToken)
	if err != nil {
		return nil, fmt.Errorf("spreedly: probe gateway %s: %w", p.gatewayToken, err)
	}
	chars, err := parseCharacteristics(gw.Characteristics)
	if err != nil {
		return nil, fmt.Errorf("spreedly: parse characteristics: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, p.cacheKey(), chars); err != nil {
			p.Logger().Warn("capability cache write failed", zap.Error(err))
		}
	}
	p.Logger().Debug("gateway characteristics loaded", zap.Any("characteristics", chars))
	return chars, nil
}

func (p *Provider) notFound(kind, id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return err
}

func (p *Provider) LookupInstrument(ctx context.Context, id string) (*models.Instrument, error) {
	pm, err := p.client.FindPaymentMethod(ctx, id)
	if err != nil {
		return nil, p.notFound("payment method", id, err)
	}
	return p.coerceCard(pm), nil
}

func (p *Provider) LookupInstrumentFromOperation(ctx context.Context, ref models.OperationRef) (*models.Instrument, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	tx, err := p.client.FindTransaction(ctx, id)
	if err != nil {
		return nil, p.notFound("transaction", id, err)
	}
	if tx.PaymentMethod == nil {
		return nil, fmt.Errorf("payment method for transaction %s: %w", id, models.ErrNotFound)
	}
	return p.coerceCard(tx.PaymentMethod), nil
}

func (p *Provider) LookupOperation(ctx context.Context, id string) (*models.Operation, error) {
	tx, err := p.client.FindTransaction(ctx, id)
	if err != nil {
		return nil, p.notFound("transaction", id, err)
	}
	op := p.coerceTransaction(tx)
	if op == nil {
		return nil, fmt.Errorf("transaction %s is a %s: %w", id, tx.TransactionType, models.ErrNotFound)
	}
	return op, nil
}

// PrepareSubmission returns the vault form. Amount and type are applied at
// confirmation, since Spreedly only stores the card on submit.
func (p *Provider) PrepareSubmission(ctx context.Context, redirectURL string, opts models.SubmissionOptions) (*models.Submission, error) {
	hidden := map[string]string{
		"redirect_url":    redirectURL,
		"environment_key": p.client.EnvironmentKey(),
	}
	if opts.Token != "" {
		hidden["payment_method_token"] = opts.Token
	}
	return &models.Submission{
		URL:          p.client.TransparentRedirectURL(),
		HiddenFields: hidden,
		FieldNames:   FieldNames,
	}, nil
}

// ConfirmSubmission looks up the card Spreedly redirected back with and, if
// it is valid, runs opts.Execute on it. An empty Execute stores the card.
func (p *Provider) ConfirmSubmission(ctx context.Context, rawQuery string, opts models.ConfirmOptions) (*models.Result, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("spreedly: parse redirect query: %w", err)
	}
	token := q.Get("token")
	if token == "" {
		return nil, fmt.Errorf("spreedly: redirect query has no token: %w: %w", models.ErrInvalidOptions, models.ErrMissingID)
	}

	card, err := p.LookupInstrument(ctx, token)
	if err != nil {
		return nil, err
	}
	if valid, _ := card.Valid(); !valid {
		pm, _ := card.Raw().(*PaymentMethod)
		return models.NewResult(false, pm,
			models.WithInstrument(card),
			models.WithErrors(cardErrors(pm)...)), nil
	}

	switch opts.Execute {
	case models.SubmitAuthorize, models.SubmitPurchase:
		if !opts.Amount.Valid {
			return nil, fmt.Errorf("spreedly: %s requires an amount: %w", opts.Execute, models.ErrInvalidOptions)
		}
		if opts.Execute == models.SubmitAuthorize {
			return card.Authorize(ctx, opts.Amount.Decimal)
		}
		return card.Purchase(ctx, opts.Amount.Decimal)
	case models.SubmitStore, "":
		return models.NewResult(true, card.Raw(), models.WithInstrument(card)), nil
	}
	return nil, fmt.Errorf("spreedly: unknown submission type %q: %w", opts.Execute, models.ErrInvalidOptions)
}

func (p *Provider) CaptureOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	return p.onTransaction(ctx, ref, models.FeatureCapture, p.client.Capture)
}

func (p *Provider) VoidOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	return p.onTransaction(ctx, ref, models.FeatureVoid, p.client.Void)
}

func (p *Provider) RefundOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	return p.onTransaction(ctx, ref, models.FeatureRefund, func(ctx context.Context, id string) (*Transaction, error) {
		return p.client.Credit(ctx, id, nil)
	})
}

func (p *Provider) PartiallyRefundOperation(ctx context.Context, ref models.OperationRef, amount decimal.Decimal) (*models.Result, error) {
	cents := providers.MinorUnits(amount)
	return p.onTransaction(ctx, ref, models.FeaturePartialRefund, func(ctx context.Context, id string) (*Transaction, error) {
		return p.client.Credit(ctx, id, &cents)
	})
}

func (p *Provider) onTransaction(ctx context.Context, ref models.OperationRef, f models.Feature, call func(context.Context, string) (*Transaction, error)) (*models.Result, error) {
	if err := p.Require(ctx, f); err != nil {
		return nil, err
	}
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	tx, err := call(ctx, id)
	if err != nil {
		return nil, p.notFound("transaction", id, err)
	}
	return p.coerceResult(tx), nil
}

func (p *Provider) AuthorizeViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return p.onGateway(ctx, in, amount, models.FeatureAuthorize, p.client.Authorize)
}

func (p *Provider) PurchaseViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return p.onGateway(ctx, in, amount, models.FeaturePurchase, p.client.Purchase)
}

func (p *Provider) CreditViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return p.onGateway(ctx, in, amount, models.FeatureCredit, p.client.GeneralCredit)
}

func (p *Provider) onGateway(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal, f models.Feature, call func(context.Context, string, GatewayRequest) (*Transaction, error)) (*models.Result, error) {
	if err := p.Require(ctx, f); err != nil {
		return nil, err
	}
	token, err := providers.InstrumentIDOf(in)
	if err != nil {
		return nil, err
	}
	tx, err := call(ctx, p.gatewayToken, GatewayRequest{
		PaymentMethodToken: token,
		Amount:             providers.MinorUnits(amount),
		CurrencyCode:       p.currencyCode,
	})
	if err != nil {
		return nil, p.notFound("payment method", token, err)
	}
	p.Logger().Debug("spreedly gateway transaction",
		zap.String("feature", string(f)),
		zap.String("transaction", tx.Token),
		zap.Bool("succeeded", tx.Succeeded))
	return p.coerceResult(tx), nil
}

func (p *Provider) DeleteInstrument(ctx context.Context, in models.InstrumentRef) (*models.Result, error) {
	return p.onVault(ctx, in, p.client.RedactPaymentMethod)
}

func (p *Provider) RetainInstrument(ctx context.Context, in models.InstrumentRef) (*models.Result, error) {
	return p.onVault(ctx, in, p.client.RetainPaymentMethod)
}

func (p *Provider) onVault(ctx context.Context, in models.InstrumentRef, call func(context.Context, string) (*Transaction, error)) (*models.Result, error) {
	token, err := providers.InstrumentIDOf(in)
	if err != nil {
		return nil, err
	}
	tx, err := call(ctx, token)
	if err != nil {
		return nil, p.notFound("payment method", token, err)
	}
	return p.coerceResult(tx), nil
}
