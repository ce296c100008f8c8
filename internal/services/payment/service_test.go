package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gatepay/internal/models"
	"gatepay/internal/providers/providertest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errUnknown = errors.New("unknown gateway")

type fakeGateways map[string]models.Provider

func (g fakeGateways) Get(name string) (models.Provider, error) {
	if name == "" {
		name = "mock"
	}
	p, ok := g[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknown, name)
	}
	return p, nil
}

func (g fakeGateways) Names() []string {
	names := make([]string, 0, len(g))
	for n := range g {
		names = append(names, n)
	}
	return names
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Record(ctx context.Context, rec *models.OperationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordOperationDuration(gateway, action string, d time.Duration) {
	m.Called(gateway, action, d)
}

func (m *MockMetrics) RecordOperationResult(gateway, action, result string) {
	m.Called(gateway, action, result)
}

func (m *MockMetrics) RecordError(gateway, action, kind string) {
	m.Called(gateway, action, kind)
}

func setup(t *testing.T) (*providertest.Provider, *MockJournal, *MockMetrics, Service) {
	t.Helper()
	p := new(providertest.Provider)
	journal := new(MockJournal)
	metrics := new(MockMetrics)
	metrics.On("RecordOperationDuration", mock.Anything, mock.Anything, mock.Anything).Maybe()
	svc := NewService(fakeGateways{"mock": p}, journal, metrics)
	return p, journal, metrics, svc
}

func TestService_Purchase(t *testing.T) {
	ctx := context.Background()
	p, journal, metrics, svc := setup(t)
	p.SupportsAll(true)

	card := providertest.Card(p, "card-1")
	op := providertest.Transaction(p, "tx-1", models.StatusSettled)
	amount := decimal.RequireFromString("10.00")

	p.On("LookupInstrument", mock.Anything, "card-1").Return(card, nil)
	p.On("PurchaseViaInstrument", mock.Anything, card, amount).
		Return(models.NewResult(true, nil, models.WithOperation(op), models.WithInstrument(card)), nil)
	journal.On("Record", mock.Anything, mock.MatchedBy(func(rec *models.OperationRecord) bool {
		return rec.Gateway == "mock" && rec.Action == ActionPurchase &&
			rec.Successful && rec.OperationID == "tx-1" && rec.InstrumentID == "card-1"
	})).Return(nil).Once()
	metrics.On("RecordOperationResult", "mock", ActionPurchase, "ok").Once()

	res, err := svc.Purchase(ctx, "mock", "card-1", amount)
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, "tx-1", res.Operation().ID())

	journal.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestService_PurchaseInvalidCard(t *testing.T) {
	p, journal, metrics, svc := setup(t)
	p.SupportsAll(true)

	card := models.NewInstrument(p, models.InstrumentAttrs{
		ID: "card-2", Valid: models.FlagFalse, Expired: models.FlagFalse,
	})
	p.On("LookupInstrument", mock.Anything, "card-2").Return(card, nil)
	journal.On("Record", mock.Anything, mock.MatchedBy(func(rec *models.OperationRecord) bool {
		return !rec.Successful && rec.Metadata["kind"] == KindInvalidCard
	})).Return(nil)
	metrics.On("RecordOperationResult", "mock", ActionPurchase, "error").Once()
	metrics.On("RecordError", "mock", ActionPurchase, KindInvalidCard).Once()

	_, err := svc.Purchase(context.Background(), "mock", "card-2", decimal.NewFromInt(1))
	var invalid *models.InvalidCardError
	require.ErrorAs(t, err, &invalid)
	p.AssertNotCalled(t, "PurchaseViaInstrument", mock.Anything, mock.Anything, mock.Anything)
	metrics.AssertExpectations(t)
}

func TestService_FailedResultIsNotAnError(t *testing.T) {
	p, journal, metrics, svc := setup(t)

	op := providertest.Transaction(p, "tx-1", models.StatusAuthorized)
	declined := models.SubmissionError{
		Target: models.TargetTransaction, Kind: models.KindCannotCapture, Field: models.FieldTransaction,
	}
	p.On("LookupOperation", mock.Anything, "tx-1").Return(op, nil)
	p.On("CaptureOperation", mock.Anything, op).Return(models.NewResult(false, nil, models.WithErrors(declined)), nil)
	journal.On("Record", mock.Anything, mock.MatchedBy(func(rec *models.OperationRecord) bool {
		return !rec.Successful && len(rec.ErrorKinds) == 1 && rec.ErrorKinds[0] == "transaction.transaction.cannot_capture"
	})).Return(nil)
	metrics.On("RecordOperationResult", "mock", ActionCapture, "failed").Once()
	metrics.On("RecordError", "mock", ActionCapture, "cannot_capture").Once()

	res, err := svc.Capture(context.Background(), "mock", "tx-1")
	require.NoError(t, err)
	assert.True(t, res.Failed())
	metrics.AssertExpectations(t)
	journal.AssertExpectations(t)
}

func TestService_InvalidTransition(t *testing.T) {
	p, journal, metrics, svc := setup(t)

	op := providertest.Transaction(p, "tx-1", models.StatusSettled)
	p.On("LookupOperation", mock.Anything, "tx-1").Return(op, nil)
	journal.On("Record", mock.Anything, mock.Anything).Return(nil)
	metrics.On("RecordOperationResult", mock.Anything, mock.Anything, mock.Anything)
	metrics.On("RecordError", "mock", ActionVoid, KindInvalidAction).Once()

	_, err := svc.Void(context.Background(), "mock", "tx-1")
	var invalid *models.InvalidActionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.StatusSettled, invalid.Status)
	p.AssertNotCalled(t, "VoidOperation", mock.Anything, mock.Anything)
}

func TestService_Refund(t *testing.T) {
	ctx := context.Background()
	p, journal, metrics, svc := setup(t)
	journal.On("Record", mock.Anything, mock.Anything).Return(nil)
	metrics.On("RecordOperationResult", mock.Anything, mock.Anything, mock.Anything)

	op := providertest.Transaction(p, "tx-1", models.StatusSettled)
	p.On("LookupOperation", mock.Anything, "tx-1").Return(op, nil)
	p.On("RefundOperation", mock.Anything, op).Return(models.NewResult(true, nil), nil).Once()
	p.On("PartiallyRefundOperation", mock.Anything, op, decimal.NewFromInt(3)).Return(models.NewResult(true, nil), nil).Once()

	_, err := svc.Refund(ctx, "mock", "tx-1", decimal.NullDecimal{})
	require.NoError(t, err)
	_, err = svc.Refund(ctx, "mock", "tx-1", decimal.NewNullDecimal(decimal.NewFromInt(3)))
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestService_UnknownGateway(t *testing.T) {
	_, journal, metrics, svc := setup(t)

	_, err := svc.Capture(context.Background(), "nope", "tx-1")
	assert.ErrorIs(t, err, errUnknown)
	assert.Equal(t, KindUnknownGateway, ErrorKind(err))
	journal.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	metrics.AssertNotCalled(t, "RecordOperationResult", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_JournalFailureDoesNotFailAction(t *testing.T) {
	p, journal, metrics, svc := setup(t)
	metrics.On("RecordOperationResult", mock.Anything, mock.Anything, mock.Anything)
	journal.On("Record", mock.Anything, mock.Anything).Return(errors.New("db down"))
	p.On("DeleteInstrument", mock.Anything, models.InstrumentID("card-1")).Return(models.NewResult(true, nil), nil)

	res, err := svc.DeleteInstrument(context.Background(), "mock", "card-1")
	require.NoError(t, err)
	assert.True(t, res.Successful())
}

func TestService_Capabilities(t *testing.T) {
	p := new(providertest.Provider)
	for _, f := range models.Features {
		p.On("Supports", mock.Anything, f).Return(f != models.FeatureRetain, nil)
	}
	svc := NewService(fakeGateways{"mock": p}, nil, nil)

	caps, err := svc.Capabilities(context.Background(), "mock")
	require.NoError(t, err)
	assert.Len(t, caps, len(models.Features))
	assert.False(t, caps[models.FeatureRetain])
	assert.True(t, caps[models.FeaturePurchase])
	assert.Equal(t, []string{"mock"}, svc.Gateways())
}

func TestService_Lookups(t *testing.T) {
	ctx := context.Background()
	p := new(providertest.Provider)
	svc := NewService(fakeGateways{"mock": p}, nil, nil)

	card := providertest.Card(p, "card-1")
	p.On("LookupInstrument", mock.Anything, "missing").Return(nil, fmt.Errorf("card: %w", models.ErrNotFound))
	p.On("LookupInstrumentFromOperation", mock.Anything, models.OperationID("tx-1")).Return(card, nil)

	_, err := svc.LookupInstrument(ctx, "mock", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, KindNotFound, ErrorKind(err))

	in, err := svc.InstrumentFromOperation(ctx, "", "tx-1")
	require.NoError(t, err)
	assert.Same(t, card, in)
}

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		KindNotSupported:  &models.FeatureError{Provider: "x", Feature: models.FeatureCredit, Err: models.ErrNotSupported},
		KindUnimplemented: fmt.Errorf("wrap: %w", models.ErrUnimplemented),
		KindMissingField:  &models.MissingFieldError{Field: "valid", Record: "instrument"},
		KindValidation:    fmt.Errorf("no token: %w: %w", models.ErrInvalidOptions, models.ErrMissingID),
		KindVendor:        errors.New("connection reset"),
	}
	for want, err := range cases {
		assert.Equal(t, want, ErrorKind(err))
	}
}
