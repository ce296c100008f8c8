// Package braintree adapts the Braintree gateway to models.Provider.
//
// Cards are collected through Braintree's transparent redirect: the client
// posts the form returned by PrepareSubmission straight to Braintree, which
// redirects back with a signed query that ConfirmSubmission verifies.
package braintree

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"gatepay/internal/config"
	"gatepay/internal/models"
	"gatepay/internal/providers"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Config struct {
	Name        string
	Environment config.Environment
	Credentials Credentials
	BaseURL     string
	Timeout     time.Duration
	Logger      *zap.Logger
}

type Provider struct {
	providers.Base
	client Client
	now    func() time.Time
}

var _ models.Provider = (*Provider)(nil)

// New builds a provider with its own HTTP client.
func New(cfg Config) *Provider {
	return NewWithClient(cfg, NewHTTPClient(cfg.Environment, cfg.BaseURL, cfg.Credentials, cfg.Timeout))
}

func NewWithClient(cfg Config, client Client) *Provider {
	name := cfg.Name
	if name == "" {
		name = "braintree"
	}
	p := &Provider{client: client, now: time.Now}
	p.Base = providers.NewBase(name, cfg.Environment, supports, cfg.Logger)
	return p
}

// supports reports everything except retain; cards are vaulted at
// submission time instead.
func supports(_ context.Context, f models.Feature) (bool, error) {
	return f != models.FeatureRetain, nil
}

func (p *Provider) LookupInstrument(ctx context.Context, id string) (*models.Instrument, error) {
	card, err := p.client.FindCreditCard(ctx, id)
	if err != nil {
		return nil, p.lookupErr("credit card", id, err)
	}
	return p.cardFromObject(card, true), nil
}

func (p *Provider) LookupInstrumentFromOperation(ctx context.Context, ref models.OperationRef) (*models.Instrument, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	tx, err := p.client.FindTransaction(ctx, id)
	if err != nil {
		return nil, p.lookupErr("transaction", id, err)
	}
	if tx.CreditCard == nil {
		return nil, fmt.Errorf("credit card for transaction %s: %w", id, models.ErrNotFound)
	}
	return p.cardFromObject(tx.CreditCard, true), nil
}

func (p *Provider) LookupOperation(ctx context.Context, id string) (*models.Operation, error) {
	tx, err := p.client.FindTransaction(ctx, id)
	if err != nil {
		return nil, p.lookupErr("transaction", id, err)
	}
	return p.operationFromTransaction(tx, ""), nil
}

func (p *Provider) lookupErr(kind, id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return err
}

// PrepareSubmission signs a sale for the transparent redirect. Braintree
// charges when the card is submitted, so the amount is fixed here.
func (p *Provider) PrepareSubmission(ctx context.Context, redirectURL string, opts models.SubmissionOptions) (*models.Submission, error) {
	params := url.Values{}
	params.Set("transaction[type]", "sale")
	if opts.Amount.Valid {
		params.Set("transaction[amount]", opts.Amount.Decimal.StringFixed(2))
	}
	if opts.Vault {
		params.Set("transaction[options][store_in_vault]", "true")
	}
	if opts.Type == models.SubmitPurchase {
		params.Set("transaction[options][submit_for_settlement]", "true")
	}
	if opts.Token != "" {
		params.Set("transaction[payment_method_token]", opts.Token)
	}

	return &models.Submission{
		URL:          p.client.TransparentRedirectURL(),
		HiddenFields: map[string]string{"tr_data": p.client.TransactionData(params, redirectURL)},
		FieldNames:   FieldNames,
	}, nil
}

// ConfirmSubmission completes the redirect. The sale already happened, so
// opts is not consulted.
func (p *Provider) ConfirmSubmission(ctx context.Context, rawQuery string, opts models.ConfirmOptions) (*models.Result, error) {
	res, err := p.client.ConfirmTransparentRedirect(ctx, rawQuery)
	if err != nil {
		return nil, err
	}
	return p.result(res, ""), nil
}

func (p *Provider) CaptureOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	res, err := p.client.SubmitForSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.result(res, models.TypeCapture), nil
}

func (p *Provider) RefundOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	return p.refund(ctx, ref, decimal.NullDecimal{})
}

func (p *Provider) PartiallyRefundOperation(ctx context.Context, ref models.OperationRef, amount decimal.Decimal) (*models.Result, error) {
	return p.refund(ctx, ref, decimal.NewNullDecimal(amount))
}

func (p *Provider) refund(ctx context.Context, ref models.OperationRef, amount decimal.NullDecimal) (*models.Result, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	res, err := p.client.Refund(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	return p.result(res, models.TypeCredit), nil
}

func (p *Provider) VoidOperation(ctx context.Context, ref models.OperationRef) (*models.Result, error) {
	id, err := providers.OperationIDOf(ref)
	if err != nil {
		return nil, err
	}
	res, err := p.client.Void(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.result(res, models.TypeVoid), nil
}

func (p *Provider) AuthorizeViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return p.sale(ctx, in, amount, false)
}

func (p *Provider) PurchaseViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return p.sale(ctx, in, amount, true)
}

func (p *Provider) sale(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal, settle bool) (*models.Result, error) {
	token, err := providers.InstrumentIDOf(in)
	if err != nil {
		return nil, err
	}
	res, err := p.client.Sale(ctx, SaleRequest{Token: token, Amount: amount, SubmitForSettlement: settle})
	if err != nil {
		return nil, err
	}
	return p.result(res, ""), nil
}

func (p *Provider) CreditViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	token, err := providers.InstrumentIDOf(in)
	if err != nil {
		return nil, err
	}
	res, err := p.client.Credit(ctx, token, amount)
	if err != nil {
		return nil, err
	}
	return p.result(res, models.TypeCredit), nil
}

func (p *Provider) DeleteInstrument(ctx context.Context, in models.InstrumentRef) (*models.Result, error) {
	token, err := providers.InstrumentIDOf(in)
	if err != nil {
		return nil, err
	}
	if err := p.client.DeleteCreditCard(ctx, token); err != nil {
		return nil, p.lookupErr("credit card", token, err)
	}
	return models.NewResult(true, nil), nil
}

// result normalizes a gateway response. Errors on an unsuccessful response
// are mapped through errorCodes; a declined transaction without validation
// errors gets a declined error of its own.
func (p *Provider) result(res *Response, as models.OperationType) *models.Result {
	if res.Success {
		op := p.operationFromTransaction(res.Transaction, as)
		opts := []models.ResultOption{models.WithOperation(op)}
		if op != nil {
			opts = append(opts, models.WithInstrument(op.Instrument()))
		}
		p.Logger().Debug("braintree call succeeded", zap.String("operation_id", op.OperationRefID()))
		return models.NewResult(true, res, opts...)
	}

	errs := mapErrors(res.Errors)
	var (
		op   *models.Operation
		card *models.Instrument
	)
	if res.Transaction != nil {
		op = p.operationFromTransaction(res.Transaction, as)
		card = op.Instrument()
		if len(errs) == 0 {
			errs = append(errs, declined.With(res.Transaction.ProcessorResponseText))
		}
	} else {
		card = p.cardFromParams(res.Params, !hasCardErrors(errs))
		op = p.operationFromParams(res.Params, card)
	}
	if len(errs) == 0 {
		errs = append(errs, models.UnknownMapping.With(res.Message))
	}

	p.Logger().Info("braintree call failed",
		zap.String("message", res.Message),
		zap.Int("errors", len(errs)))

	return models.NewResult(false, res,
		models.WithOperation(op),
		models.WithInstrument(card),
		models.WithErrors(errs...))
}
