package spreedly

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gatepay/internal/config"
	"gatepay/internal/models"
	"gatepay/internal/repositories/cache"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) FindPaymentMethod(ctx context.Context, token string) (*PaymentMethod, error) {
	args := m.Called(ctx, token)
	pm, _ := args.Get(0).(*PaymentMethod)
	return pm, args.Error(1)
}

func (m *MockClient) RedactPaymentMethod(ctx context.Context, token string) (*Transaction, error) {
	args := m.Called(ctx, token)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) RetainPaymentMethod(ctx context.Context, token string) (*Transaction, error) {
	args := m.Called(ctx, token)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) FindTransaction(ctx context.Context, token string) (*Transaction, error) {
	args := m.Called(ctx, token)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) Authorize(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error) {
	args := m.Called(ctx, gatewayToken, req)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) Purchase(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error) {
	args := m.Called(ctx, gatewayToken, req)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) GeneralCredit(ctx context.Context, gatewayToken string, req GatewayRequest) (*Transaction, error) {
	args := m.Called(ctx, gatewayToken, req)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) Capture(ctx context.Context, token string) (*Transaction, error) {
	args := m.Called(ctx, token)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) Void(ctx context.Context, token string) (*Transaction, error) {
	args := m.Called(ctx, token)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) Credit(ctx context.Context, token string, amount *int64) (*Transaction, error) {
	args := m.Called(ctx, token, amount)
	return transaction(args.Get(0)), args.Error(1)
}

func (m *MockClient) FindGateway(ctx context.Context, token string) (*Gateway, error) {
	args := m.Called(ctx, token)
	gw, _ := args.Get(0).(*Gateway)
	return gw, args.Error(1)
}

func (m *MockClient) TransparentRedirectURL() string { return m.Called().String(0) }
func (m *MockClient) EnvironmentKey() string         { return m.Called().String(0) }

func transaction(v any) *Transaction {
	tx, _ := v.(*Transaction)
	return tx
}

const characteristics = `{
	"supports_purchase": true,
	"supports_authorize": true,
	"supports_capture": true,
	"supports_credit": true,
	"supports_general_credit": false,
	"supports_void": true
}`

func gateway(chars string) *Gateway {
	return &Gateway{Token: "gw-1", GatewayType: "test", Characteristics: []byte(chars)}
}

func newTestProvider(client Client, store cache.Store) *Provider {
	return NewWithClient(Config{
		Environment:  config.Test,
		GatewayToken: "gw-1",
		CurrencyCode: "USD",
		Cache:        store,
	}, client)
}

func card() *PaymentMethod {
	return &PaymentMethod{
		Token:          "pm-1",
		CardType:       "visa",
		FullName:       "Jane Doe",
		Number:         "XXXX-XXXX-XXXX-1111",
		LastFourDigits: "1111",
		Month:          12,
		Year:           2030,
	}
}

func amount(c int64) *int64 { return &c }

func TestProvider_Supports(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindGateway", mock.Anything, "gw-1").Return(gateway(characteristics), nil).Once()

	cases := map[models.Feature]bool{
		models.FeaturePurchase:      true,
		models.FeatureAuthorize:     true,
		models.FeatureCapture:       true,
		models.FeatureVoid:          true,
		models.FeatureRefund:        true,
		models.FeaturePartialRefund: true,
		models.FeatureCredit:        false,
		models.FeatureDelete:        true,
		models.FeatureRetain:        true,
	}
	for f, want := range cases {
		got, err := p.Supports(ctx, f)
		require.NoError(t, err, f)
		assert.Equal(t, want, got, f)
	}
	client.AssertNumberOfCalls(t, "FindGateway", 1)
}

func TestProvider_SupportsListCharacteristics(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindGateway", mock.Anything, "gw-1").Return(gateway(`["purchase","void"]`), nil)

	ok, err := p.Supports(ctx, models.FeaturePurchase)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Supports(ctx, models.FeatureCapture)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_SupportsProbeFailure(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindGateway", mock.Anything, "gw-1").Return(nil, ErrNotFound)

	_, err := p.Supports(context.Background(), models.FeaturePurchase)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProvider_SupportsConcurrentCallersShareProbe(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client, nil)
	release := make(chan time.Time)
	client.On("FindGateway", mock.Anything, "gw-1").
		WaitUntil(release).
		Return(gateway(characteristics), nil).Once()

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := p.Supports(context.Background(), models.FeatureCapture)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	close(release)
	wg.Wait()
	close(results)

	for ok := range results {
		assert.True(t, ok)
	}
	client.AssertNumberOfCalls(t, "FindGateway", 1)
}

func TestProvider_SupportsRetriesAfterProbeFailure(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindGateway", mock.Anything, "gw-1").Return(nil, errors.New("timeout")).Once()
	client.On("FindGateway", mock.Anything, "gw-1").Return(gateway(characteristics), nil).Once()

	_, err := p.Supports(context.Background(), models.FeaturePurchase)
	require.Error(t, err)

	ok, err := p.Supports(context.Background(), models.FeaturePurchase)
	require.NoError(t, err)
	assert.True(t, ok)
	client.AssertNumberOfCalls(t, "FindGateway", 2)
}

func TestProvider_SupportsSharedCache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryCache(time.Hour)

	first := new(MockClient)
	first.On("FindGateway", mock.Anything, "gw-1").Return(gateway(characteristics), nil).Once()
	ok, err := newTestProvider(first, store).Supports(ctx, models.FeatureCapture)
	require.NoError(t, err)
	assert.True(t, ok)

	second := new(MockClient)
	ok, err = newTestProvider(second, store).Supports(ctx, models.FeatureCapture)
	require.NoError(t, err)
	assert.True(t, ok)
	second.AssertNotCalled(t, "FindGateway", mock.Anything, mock.Anything)
}

func TestProvider_LookupInstrument(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindPaymentMethod", mock.Anything, "pm-1").Return(card(), nil)
	client.On("FindPaymentMethod", mock.Anything, "missing").Return(nil, ErrNotFound)

	in, err := p.LookupInstrument(ctx, "pm-1")
	require.NoError(t, err)
	assert.Equal(t, "pm-1", in.ID())
	assert.Equal(t, "XXXX-XXXX-XXXX-1111", in.Number())
	assert.Equal(t, 12, in.ExpirationMonth())
	assert.Equal(t, 2030, in.ExpirationYear())
	assert.Equal(t, "Jane Doe", in.HolderName())
	usable, err := in.Usable()
	require.NoError(t, err)
	assert.True(t, usable)

	_, err = p.LookupInstrument(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProvider_LookupOperation(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client, nil)

	client.On("FindTransaction", mock.Anything, "tx-1").Return(&Transaction{
		Token:           "tx-1",
		TransactionType: "Authorization",
		Succeeded:       true,
		Amount:          amount(1050),
		PaymentMethod:   card(),
	}, nil)
	client.On("FindTransaction", mock.Anything, "redact-1").Return(&Transaction{
		Token:           "redact-1",
		TransactionType: "RedactPaymentMethod",
		Succeeded:       true,
	}, nil)

	op, err := p.LookupOperation(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.TypeAuthorize, op.Type())
	assert.Equal(t, models.StatusAuthorized, op.Status())
	assert.True(t, op.Amount().Valid)
	assert.True(t, decimal.RequireFromString("10.50").Equal(op.Amount().Decimal))
	require.True(t, op.HasInstrument())
	assert.Equal(t, "pm-1", op.Instrument().ID())

	in, err := p.LookupInstrumentFromOperation(ctx, models.OperationID("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, "pm-1", in.ID())

	_, err = p.LookupOperation(ctx, "redact-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProvider_PurchaseViaInstrument(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindGateway", mock.Anything, "gw-1").Return(gateway(characteristics), nil)
	client.On("Purchase", mock.Anything, "gw-1", GatewayRequest{
		PaymentMethodToken: "pm-1",
		Amount:             1050,
		CurrencyCode:       "USD",
	}).Return(&Transaction{
		Token:           "tx-2",
		TransactionType: "Purchase",
		Succeeded:       true,
		Amount:          amount(1050),
		PaymentMethod:   card(),
	}, nil)

	res, err := p.PurchaseViaInstrument(ctx, models.InstrumentID("pm-1"), decimal.RequireFromString("10.50"))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	require.True(t, res.HasOperation())
	assert.Equal(t, models.TypePurchase, res.Operation().Type())
	assert.Equal(t, models.StatusSettled, res.Operation().Status())
	assert.True(t, res.HasInstrument())
	assert.False(t, res.HasErrors())
}

func TestProvider_CreditNotSupported(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindGateway", mock.Anything, "gw-1").Return(gateway(characteristics), nil)

	_, err := p.CreditViaInstrument(context.Background(), models.InstrumentID("pm-1"), decimal.NewFromInt(5))
	assert.ErrorIs(t, err, models.ErrNotSupported)
	client.AssertNotCalled(t, "GeneralCredit", mock.Anything, mock.Anything, mock.Anything)
}

func TestProvider_FailedCapture(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindGateway", mock.Anything, "gw-1").Return(gateway(characteristics), nil)
	client.On("Capture", mock.Anything, "tx-1").Return(&Transaction{
		Token:           "tx-3",
		TransactionType: "Capture",
		Succeeded:       false,
		Message:         "Unable to capture",
	}, nil)

	res, err := p.CaptureOperation(context.Background(), models.OperationID("tx-1"))
	require.NoError(t, err)
	assert.True(t, res.Failed())
	require.True(t, res.HasOperation())
	assert.Equal(t, models.StatusGatewayRejected, res.Operation().Status())

	errs := res.ErrorsForField(models.TargetTransaction, models.FieldTransaction)
	require.Len(t, errs, 1)
	assert.Equal(t, models.KindCannotCapture, errs[0].Kind)
	assert.Equal(t, "Unable to capture", errs[0].Raw)
}

func TestProvider_Refunds(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("FindGateway", mock.Anything, "gw-1").Return(gateway(characteristics), nil)

	refunded := &Transaction{Token: "tx-4", TransactionType: "Credit", Succeeded: true}
	client.On("Credit", mock.Anything, "tx-1", (*int64)(nil)).Return(refunded, nil).Once()
	client.On("Credit", mock.Anything, "tx-2", mock.MatchedBy(func(a *int64) bool {
		return a != nil && *a == 500
	})).Return(refunded, nil).Once()

	res, err := p.RefundOperation(ctx, models.OperationID("tx-1"))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, models.StatusRefunded, res.Operation().Status())

	res, err = p.PartiallyRefundOperation(ctx, models.OperationID("tx-2"), decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	client.AssertExpectations(t)
}

func TestProvider_DeleteAndRetain(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("RedactPaymentMethod", mock.Anything, "pm-1").Return(&Transaction{
		Token: "r-1", TransactionType: "RedactPaymentMethod", Succeeded: true,
	}, nil)
	client.On("RetainPaymentMethod", mock.Anything, "pm-1").Return(&Transaction{
		Token: "r-2", TransactionType: "RetainPaymentMethod", Succeeded: true,
	}, nil)

	res, err := p.DeleteInstrument(ctx, models.InstrumentID("pm-1"))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.False(t, res.HasOperation())

	res, err = p.RetainInstrument(ctx, models.InstrumentID("pm-1"))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	client.AssertNotCalled(t, "FindGateway", mock.Anything, mock.Anything)
}

func TestProvider_PrepareSubmission(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client, nil)
	client.On("TransparentRedirectURL").Return("https://core.spreedly.com/v1/payment_methods")
	client.On("EnvironmentKey").Return("env-key")

	sub, err := p.PrepareSubmission(context.Background(), "https://shop.test/back", models.SubmissionOptions{
		Type:  models.SubmitPurchase,
		Token: "pm-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://core.spreedly.com/v1/payment_methods", sub.URL)
	assert.Equal(t, "https://shop.test/back", sub.HiddenFields["redirect_url"])
	assert.Equal(t, "env-key", sub.HiddenFields["environment_key"])
	assert.Equal(t, "pm-1", sub.HiddenFields["payment_method_token"])
	assert.Equal(t, "credit_card[number]", sub.FieldNames[models.FieldNumber])
}

func TestProvider_ConfirmSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid card", func(t *testing.T) {
		client := new(MockClient)
		p := newTestProvider(client, nil)
		pm := card()
		pm.Errors = []FieldError{
			{Attribute: "first_name", Key: "errors.blank"},
			{Attribute: "last_name", Key: "errors.blank"},
			{Attribute: "number", Key: "errors.invalid"},
		}
		client.On("FindPaymentMethod", mock.Anything, "pm-1").Return(pm, nil)

		res, err := p.ConfirmSubmission(ctx, "token=pm-1", models.ConfirmOptions{Execute: models.SubmitPurchase})
		require.NoError(t, err)
		assert.True(t, res.Failed())
		assert.True(t, res.HasInstrument())

		byField := res.ErrorsFor(models.TargetCreditCard)
		require.Len(t, byField[models.FieldName], 1)
		assert.Equal(t, models.KindRequired, byField[models.FieldName][0].Kind)
		require.Len(t, byField[models.FieldNumber], 1)
		assert.Equal(t, models.KindInvalid, byField[models.FieldNumber][0].Kind)
		client.AssertNotCalled(t, "Purchase", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store", func(t *testing.T) {
		client := new(MockClient)
		p := newTestProvider(client, nil)
		client.On("FindPaymentMethod", mock.Anything, "pm-1").Return(card(), nil)

		res, err := p.ConfirmSubmission(ctx, "token=pm-1", models.ConfirmOptions{})
		require.NoError(t, err)
		assert.True(t, res.Successful())
		assert.Equal(t, "pm-1", res.Instrument().ID())
		assert.False(t, res.HasOperation())
	})

	t.Run("authorize", func(t *testing.T) {
		client := new(MockClient)
		p := newTestProvider(client, nil)
		client.On("FindPaymentMethod", mock.Anything, "pm-1").Return(card(), nil)
		client.On("FindGateway", mock.Anything, "gw-1").Return(gateway(characteristics), nil)
		client.On("Authorize", mock.Anything, "gw-1", GatewayRequest{
			PaymentMethodToken: "pm-1", Amount: 2500, CurrencyCode: "USD",
		}).Return(&Transaction{
			Token: "tx-9", TransactionType: "Authorization", Succeeded: true, Amount: amount(2500),
		}, nil)

		res, err := p.ConfirmSubmission(ctx, "token=pm-1", models.ConfirmOptions{
			Execute: models.SubmitAuthorize,
			Amount:  decimal.NewNullDecimal(decimal.NewFromInt(25)),
		})
		require.NoError(t, err)
		assert.True(t, res.Successful())
		assert.Equal(t, models.StatusAuthorized, res.Operation().Status())
	})

	t.Run("missing token", func(t *testing.T) {
		p := newTestProvider(new(MockClient), nil)
		_, err := p.ConfirmSubmission(ctx, "", models.ConfirmOptions{})
		assert.True(t, errors.Is(err, models.ErrMissingID))
		assert.True(t, errors.Is(err, models.ErrInvalidOptions))
	})

	t.Run("authorize without amount", func(t *testing.T) {
		client := new(MockClient)
		p := newTestProvider(client, nil)
		client.On("FindPaymentMethod", mock.Anything, "pm-1").Return(card(), nil)

		_, err := p.ConfirmSubmission(ctx, "token=pm-1", models.ConfirmOptions{Execute: models.SubmitAuthorize})
		assert.ErrorIs(t, err, models.ErrInvalidOptions)
		client.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCardErrors_KeepsDistinctLastNameErrors(t *testing.T) {
	pm := &PaymentMethod{Errors: []FieldError{
		{Attribute: "first_name", Key: "errors.blank"},
		{Attribute: "last_name", Key: "errors.too_short"},
		{Attribute: "shipping", Key: "errors.blank"},
	}}

	errs := cardErrors(pm)
	require.Len(t, errs, 3)
	assert.Equal(t, "credit_card.name.required", errs[0].String())
	assert.Equal(t, "credit_card.name.too_short", errs[1].String())
	assert.Equal(t, models.UnknownMapping.With(pm.Errors[2]), errs[2])
}
