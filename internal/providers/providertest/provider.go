// Package providertest provides a testify mock of models.Provider.
package providertest

import (
	"context"

	"gatepay/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type Provider struct {
	mock.Mock
}

var _ models.Provider = (*Provider)(nil)

// SupportsAll stubs Supports to return ok for every feature.
func (m *Provider) SupportsAll(ok bool) *Provider {
	m.On("Supports", mock.Anything, mock.Anything).Return(ok, nil).Maybe()
	return m
}

func (m *Provider) Name() string {
	return "mock"
}

func (m *Provider) Supports(ctx context.Context, f models.Feature) (bool, error) {
	args := m.Called(ctx, f)
	return args.Bool(0), args.Error(1)
}

func (m *Provider) LookupInstrument(ctx context.Context, id string) (*models.Instrument, error) {
	args := m.Called(ctx, id)
	return instrument(args.Get(0)), args.Error(1)
}

func (m *Provider) LookupInstrumentFromOperation(ctx context.Context, op models.OperationRef) (*models.Instrument, error) {
	args := m.Called(ctx, op)
	return instrument(args.Get(0)), args.Error(1)
}

func (m *Provider) LookupOperation(ctx context.Context, id string) (*models.Operation, error) {
	args := m.Called(ctx, id)
	op, _ := args.Get(0).(*models.Operation)
	return op, args.Error(1)
}

func (m *Provider) PrepareSubmission(ctx context.Context, redirectURL string, opts models.SubmissionOptions) (*models.Submission, error) {
	args := m.Called(ctx, redirectURL, opts)
	sub, _ := args.Get(0).(*models.Submission)
	return sub, args.Error(1)
}

func (m *Provider) ConfirmSubmission(ctx context.Context, rawQuery string, opts models.ConfirmOptions) (*models.Result, error) {
	args := m.Called(ctx, rawQuery, opts)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) CaptureOperation(ctx context.Context, op models.OperationRef) (*models.Result, error) {
	args := m.Called(ctx, op)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) RefundOperation(ctx context.Context, op models.OperationRef) (*models.Result, error) {
	args := m.Called(ctx, op)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) PartiallyRefundOperation(ctx context.Context, op models.OperationRef, amount decimal.Decimal) (*models.Result, error) {
	args := m.Called(ctx, op, amount)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) VoidOperation(ctx context.Context, op models.OperationRef) (*models.Result, error) {
	args := m.Called(ctx, op)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) AuthorizeViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	args := m.Called(ctx, in, amount)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) PurchaseViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	args := m.Called(ctx, in, amount)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) CreditViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	args := m.Called(ctx, in, amount)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) DeleteInstrument(ctx context.Context, in models.InstrumentRef) (*models.Result, error) {
	args := m.Called(ctx, in)
	return result(args.Get(0)), args.Error(1)
}

func (m *Provider) RetainInstrument(ctx context.Context, in models.InstrumentRef) (*models.Result, error) {
	args := m.Called(ctx, in)
	return result(args.Get(0)), args.Error(1)
}

func instrument(v any) *models.Instrument {
	in, _ := v.(*models.Instrument)
	return in
}

func result(v any) *models.Result {
	r, _ := v.(*models.Result)
	return r
}

// Card builds a usable instrument bound to p.
func Card(p models.Provider, id string) *models.Instrument {
	return models.NewInstrument(p, models.InstrumentAttrs{
		ID:              id,
		Number:          "4111111111111111",
		ExpirationMonth: 12,
		ExpirationYear:  2099,
		CardType:        "Visa",
		HolderName:      "Jane Doe",
		Valid:           models.FlagTrue,
		Expired:         models.FlagFalse,
	})
}

// Transaction builds an operation bound to p in the given status.
func Transaction(p models.Provider, id string, status models.Status) *models.Operation {
	return models.NewOperation(p, models.OperationAttrs{
		ID:     id,
		Type:   models.TypeAuthorize,
		Status: status,
		Amount: decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
	})
}
