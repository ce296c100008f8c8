package stripe

import (
	"context"
	"testing"
	"time"

	"gatepay/internal/config"
	"gatepay/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	args := m.Called(ctx, id)
	pm, _ := args.Get(0).(*stripe.PaymentMethod)
	return pm, args.Error(1)
}

func (m *MockClient) DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	args := m.Called(ctx, id)
	pm, _ := args.Get(0).(*stripe.PaymentMethod)
	return pm, args.Error(1)
}

func (m *MockClient) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	return intent(args.Get(0)), args.Error(1)
}

func (m *MockClient) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, req)
	return intent(args.Get(0)), args.Error(1)
}

func (m *MockClient) CapturePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	return intent(args.Get(0)), args.Error(1)
}

func (m *MockClient) CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	return intent(args.Get(0)), args.Error(1)
}

func (m *MockClient) CreateRefund(ctx context.Context, paymentIntent string, amount *int64) (*stripe.Refund, error) {
	args := m.Called(ctx, paymentIntent, amount)
	r, _ := args.Get(0).(*stripe.Refund)
	return r, args.Error(1)
}

func (m *MockClient) GetRefund(ctx context.Context, id string) (*stripe.Refund, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*stripe.Refund)
	return r, args.Error(1)
}

func (m *MockClient) CreateSetupIntent(ctx context.Context) (*stripe.SetupIntent, error) {
	args := m.Called(ctx)
	si, _ := args.Get(0).(*stripe.SetupIntent)
	return si, args.Error(1)
}

func (m *MockClient) GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error) {
	args := m.Called(ctx, id)
	si, _ := args.Get(0).(*stripe.SetupIntent)
	return si, args.Error(1)
}

func intent(v any) *stripe.PaymentIntent {
	pi, _ := v.(*stripe.PaymentIntent)
	return pi
}

func newTestProvider(client Client) *Provider {
	p := NewWithClient(Config{
		Environment:    config.Test,
		PublishableKey: "pk_test",
		CurrencyCode:   "USD",
	}, client)
	p.now = func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

func visa() *stripe.PaymentMethod {
	return &stripe.PaymentMethod{
		ID:             "pm_1",
		BillingDetails: &stripe.BillingDetails{Name: "Jane Doe"},
		Card: &stripe.PaymentMethodCard{
			Brand:    stripe.PaymentMethodCardBrandVisa,
			Last4:    "4242",
			ExpMonth: 12,
			ExpYear:  2030,
		},
	}
}

func TestProvider_Supports(t *testing.T) {
	p := newTestProvider(new(MockClient))
	for _, f := range models.Features {
		ok, err := p.Supports(context.Background(), f)
		require.NoError(t, err)
		want := f != models.FeatureCredit && f != models.FeatureRetain
		assert.Equal(t, want, ok, f)
	}
}

func TestProvider_LookupInstrument(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client)
	client.On("GetPaymentMethod", mock.Anything, "pm_1").Return(visa(), nil)
	client.On("GetPaymentMethod", mock.Anything, "pm_missing").Return(nil, &stripe.Error{
		Type: stripe.ErrorTypeInvalidRequest,
		Code: stripe.ErrorCodeResourceMissing,
		Msg:  "No such PaymentMethod",
	})

	card, err := p.LookupInstrument(ctx, "pm_1")
	require.NoError(t, err)
	assert.Equal(t, "XXXX-XXXX-XXXX-4242", card.Number())
	assert.Equal(t, "Jane Doe", card.HolderName())
	usable, err := card.Usable()
	require.NoError(t, err)
	assert.True(t, usable)

	_, err = p.LookupInstrument(ctx, "pm_missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProvider_LookupExpiredCard(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client)
	pm := visa()
	pm.Card.ExpYear = 2023
	client.On("GetPaymentMethod", mock.Anything, "pm_1").Return(pm, nil)

	card, err := p.LookupInstrument(context.Background(), "pm_1")
	require.NoError(t, err)
	expired, err := card.Expired()
	require.NoError(t, err)
	assert.True(t, expired)

	_, err = card.Purchase(context.Background(), decimal.NewFromInt(1))
	var invalid *models.InvalidCardError
	require.ErrorAs(t, err, &invalid)
	assert.True(t, invalid.Expired)
	client.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
}

func TestProvider_LookupOperation(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client)

	client.On("GetPaymentIntent", mock.Anything, "pi_1").Return(&stripe.PaymentIntent{
		ID:            "pi_1",
		Amount:        1999,
		CaptureMethod: stripe.PaymentIntentCaptureMethodManual,
		Status:        stripe.PaymentIntentStatusRequiresCapture,
		PaymentMethod: visa(),
	}, nil)
	client.On("GetPaymentIntent", mock.Anything, "pi_2").Return(&stripe.PaymentIntent{
		ID:            "pi_2",
		Amount:        500,
		CaptureMethod: stripe.PaymentIntentCaptureMethodAutomatic,
		Status:        stripe.PaymentIntentStatusSucceeded,
		Charges:       &stripe.ChargeList{Data: []*stripe.Charge{{Refunded: true}}},
	}, nil)
	client.On("GetRefund", mock.Anything, "re_1").Return(&stripe.Refund{
		ID:     "re_1",
		Amount: 500,
		Status: "succeeded",
	}, nil)

	op, err := p.LookupOperation(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.TypeAuthorize, op.Type())
	assert.Equal(t, models.StatusAuthorized, op.Status())
	assert.True(t, decimal.RequireFromString("19.99").Equal(op.Amount().Decimal))
	assert.True(t, op.CanCapture())

	op, err = p.LookupOperation(ctx, "pi_2")
	require.NoError(t, err)
	assert.Equal(t, models.TypePurchase, op.Type())
	assert.Equal(t, models.StatusRefunded, op.Status())

	op, err = p.LookupOperation(ctx, "re_1")
	require.NoError(t, err)
	assert.Equal(t, models.TypeCredit, op.Type())
	assert.Equal(t, models.StatusRefunded, op.Status())

	card, err := p.LookupInstrumentFromOperation(ctx, models.OperationID("pi_1"))
	require.NoError(t, err)
	assert.Equal(t, "pm_1", card.ID())

	_, err = p.LookupInstrumentFromOperation(ctx, models.OperationID("pi_2"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProvider_Authorize(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client)
	client.On("CreatePaymentIntent", mock.Anything, IntentRequest{
		PaymentMethod: "pm_1",
		Amount:        1050,
		Currency:      "usd",
		ManualCapture: true,
	}).Return(&stripe.PaymentIntent{
		ID:            "pi_3",
		Amount:        1050,
		CaptureMethod: stripe.PaymentIntentCaptureMethodManual,
		Status:        stripe.PaymentIntentStatusRequiresCapture,
		PaymentMethod: visa(),
	}, nil)

	res, err := p.AuthorizeViaInstrument(context.Background(), models.InstrumentID("pm_1"), decimal.RequireFromString("10.50"))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, models.StatusAuthorized, res.Operation().Status())
	assert.Equal(t, "pm_1", res.Instrument().ID())
}

func TestProvider_PurchaseDeclined(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client)
	declined := &stripe.Error{
		Type:        stripe.ErrorTypeCard,
		Code:        stripe.ErrorCodeCardDeclined,
		DeclineCode: "insufficient_funds",
		Msg:         "Your card has insufficient funds.",
		PaymentIntent: &stripe.PaymentIntent{
			ID:     "pi_4",
			Amount: 1000,
			Status: stripe.PaymentIntentStatusRequiresPaymentMethod,
		},
	}
	client.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(nil, declined)

	res, err := p.PurchaseViaInstrument(context.Background(), models.InstrumentID("pm_1"), decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, res.Failed())
	require.True(t, res.HasOperation())
	assert.Equal(t, models.StatusGatewayRejected, res.Operation().Status())

	errs := res.ErrorsForField(models.TargetTransaction, models.FieldTransaction)
	require.Len(t, errs, 1)
	assert.Equal(t, models.KindDeclined, errs[0].Kind)
}

func TestProvider_IncompleteIntentsFail(t *testing.T) {
	tests := []struct {
		status stripe.PaymentIntentStatus
	}{
		{stripe.PaymentIntentStatusRequiresAction},
		{stripe.PaymentIntentStatusRequiresConfirmation},
		{stripe.PaymentIntentStatusRequiresPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			client := new(MockClient)
			p := newTestProvider(client)
			client.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(&stripe.PaymentIntent{
				ID: "pi_6", Amount: 1000, Status: tt.status, PaymentMethod: visa(),
			}, nil)

			res, err := p.PurchaseViaInstrument(context.Background(), models.InstrumentID("pm_1"), decimal.NewFromInt(10))
			require.NoError(t, err)
			assert.True(t, res.Failed())
			require.True(t, res.HasOperation())
			assert.False(t, res.Operation().CanCapture())
			assert.False(t, res.Operation().CanRefund())

			errs := res.ErrorsForField(models.TargetTransaction, models.FieldTransaction)
			require.Len(t, errs, 1)
			assert.Equal(t, models.KindDeclined, errs[0].Kind)
			assert.Equal(t, tt.status, errs[0].Raw)
		})
	}
}

func TestProvider_APIErrorPropagates(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client)
	apiErr := &stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "boom"}
	client.On("CapturePaymentIntent", mock.Anything, "pi_1").Return(nil, apiErr)

	_, err := p.CaptureOperation(context.Background(), models.OperationID("pi_1"))
	assert.ErrorIs(t, err, apiErr)
}

func TestProvider_CaptureAndVoid(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client)
	client.On("CapturePaymentIntent", mock.Anything, "pi_1").Return(&stripe.PaymentIntent{
		ID: "pi_1", Amount: 1999, CaptureMethod: stripe.PaymentIntentCaptureMethodManual,
		Status: stripe.PaymentIntentStatusSucceeded,
	}, nil)
	client.On("CancelPaymentIntent", mock.Anything, "pi_2").Return(nil, &stripe.Error{
		Type: stripe.ErrorTypeInvalidRequest,
		Code: "payment_intent_unexpected_state",
	})

	res, err := p.CaptureOperation(ctx, models.OperationID("pi_1"))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, models.TypeCapture, res.Operation().Type())
	assert.Equal(t, models.StatusSettled, res.Operation().Status())

	res, err = p.VoidOperation(ctx, models.OperationID("pi_2"))
	require.NoError(t, err)
	assert.True(t, res.Failed())
	errs := res.ErrorsForField(models.TargetTransaction, models.FieldTransaction)
	require.Len(t, errs, 1)
	assert.Equal(t, models.KindCannotVoid, errs[0].Kind)
}

func TestProvider_Refunds(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client)
	client.On("CreateRefund", mock.Anything, "pi_1", (*int64)(nil)).Return(&stripe.Refund{
		ID: "re_1", Amount: 1999, Status: "succeeded",
	}, nil)
	client.On("CreateRefund", mock.Anything, "pi_2", mock.MatchedBy(func(a *int64) bool {
		return a != nil && *a == 250
	})).Return(&stripe.Refund{ID: "re_2", Amount: 250, Status: "failed"}, nil)

	res, err := p.RefundOperation(ctx, models.OperationID("pi_1"))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, models.StatusRefunded, res.Operation().Status())

	res, err = p.PartiallyRefundOperation(ctx, models.OperationID("pi_2"), decimal.RequireFromString("2.50"))
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, models.KindCannotRefund, res.Errors()[0].Kind)
}

func TestProvider_UnsupportedFeatures(t *testing.T) {
	p := newTestProvider(new(MockClient))
	ctx := context.Background()

	_, err := p.CreditViaInstrument(ctx, models.InstrumentID("pm_1"), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrNotSupported)

	_, err = p.RetainInstrument(ctx, models.InstrumentID("pm_1"))
	assert.ErrorIs(t, err, models.ErrNotSupported)
}

func TestProvider_DeleteInstrument(t *testing.T) {
	client := new(MockClient)
	p := newTestProvider(client)
	client.On("DetachPaymentMethod", mock.Anything, "pm_1").Return(visa(), nil)

	res, err := p.DeleteInstrument(context.Background(), models.InstrumentID("pm_1"))
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, "pm_1", res.Instrument().ID())
}

func TestProvider_Submission(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	p := newTestProvider(client)
	client.On("CreateSetupIntent", mock.Anything).Return(&stripe.SetupIntent{
		ID: "seti_1", ClientSecret: "seti_1_secret",
	}, nil)
	client.On("GetSetupIntent", mock.Anything, "seti_1").Return(&stripe.SetupIntent{
		ID: "seti_1", Status: stripe.SetupIntentStatusSucceeded, PaymentMethod: visa(),
	}, nil)
	client.On("GetSetupIntent", mock.Anything, "seti_2").Return(&stripe.SetupIntent{
		ID: "seti_2", Status: stripe.SetupIntentStatusRequiresPaymentMethod,
		LastSetupError: &stripe.Error{Type: stripe.ErrorTypeCard, Code: stripe.ErrorCodeIncorrectCVC},
	}, nil)
	client.On("CreatePaymentIntent", mock.Anything, IntentRequest{
		PaymentMethod: "pm_1", Amount: 2000, Currency: "usd",
	}).Return(&stripe.PaymentIntent{
		ID: "pi_5", Amount: 2000, Status: stripe.PaymentIntentStatusSucceeded,
	}, nil)

	sub, err := p.PrepareSubmission(ctx, "https://shop.test/back", models.SubmissionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "pk_test", sub.HiddenFields["publishable_key"])
	assert.Equal(t, "seti_1_secret", sub.HiddenFields["client_secret"])
	assert.Equal(t, "https://shop.test/back", sub.HiddenFields["return_url"])
	assert.Equal(t, "cardNumber", sub.FieldNames[models.FieldNumber])

	res, err := p.ConfirmSubmission(ctx, "setup_intent=seti_1&redirect_status=succeeded", models.ConfirmOptions{})
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, "pm_1", res.Instrument().ID())

	res, err = p.ConfirmSubmission(ctx, "setup_intent=seti_1", models.ConfirmOptions{
		Execute: models.SubmitPurchase,
		Amount:  decimal.NewNullDecimal(decimal.NewFromInt(20)),
	})
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, models.StatusSettled, res.Operation().Status())

	res, err = p.ConfirmSubmission(ctx, "setup_intent=seti_2", models.ConfirmOptions{})
	require.NoError(t, err)
	assert.True(t, res.Failed())
	errs := res.ErrorsForField(models.TargetCreditCard, models.FieldCVV)
	require.Len(t, errs, 1)
	assert.Equal(t, models.KindInvalid, errs[0].Kind)

	_, err = p.ConfirmSubmission(ctx, "redirect_status=succeeded", models.ConfirmOptions{})
	assert.ErrorIs(t, err, models.ErrInvalidOptions)
	assert.ErrorIs(t, err, models.ErrMissingID)

	_, err = p.ConfirmSubmission(ctx, "setup_intent=seti_1", models.ConfirmOptions{Execute: models.SubmitAuthorize})
	assert.ErrorIs(t, err, models.ErrInvalidOptions)
}
