package stripe

import (
	"errors"
	"fmt"
	"time"

	"gatepay/internal/models"
	"gatepay/internal/providers"

	"github.com/stripe/stripe-go/v72"
	"go.uber.org/zap"
)

// FieldNames are the Stripe Elements slots a form mounts card inputs into.
var FieldNames = map[models.Field]string{
	models.FieldName:            "billing_details[name]",
	models.FieldNumber:          "cardNumber",
	models.FieldExpirationMonth: "cardExpiry",
	models.FieldExpirationYear:  "cardExpiry",
	models.FieldCVV:             "cardCvc",
}

var errorCodes = map[string]models.ErrorMapping{
	"incorrect_number":        {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldNumber},
	"invalid_number":          {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldNumber},
	"invalid_expiry_month":    {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldExpirationMonth},
	"invalid_expiry_year":     {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldExpirationYear},
	"expired_card":            {Target: models.TargetCreditCard, Kind: models.KindExpired, Field: models.FieldExpirationYear},
	"incorrect_cvc":           {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldCVV},
	"invalid_cvc":             {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldCVV},
	"card_declined":           {Target: models.TargetTransaction, Kind: models.KindDeclined, Field: models.FieldTransaction},
	"processing_error":        {Target: models.TargetTransaction, Kind: models.KindDeclined, Field: models.FieldTransaction},
	"amount_too_small":        {Target: models.TargetTransaction, Kind: models.KindInvalid, Field: models.FieldAmount},
	"amount_too_large":        {Target: models.TargetTransaction, Kind: models.KindInvalid, Field: models.FieldAmount},
	"charge_already_captured": {Target: models.TargetTransaction, Kind: models.KindCannotCapture, Field: models.FieldTransaction},
	"charge_already_refunded": {Target: models.TargetTransaction, Kind: models.KindCannotRefund, Field: models.FieldTransaction},
}

// stateErrors classifies payment_intent_unexpected_state by the action that
// hit it.
var stateErrors = map[models.Feature]models.Kind{
	models.FeatureCapture:       models.KindCannotCapture,
	models.FeatureVoid:          models.KindCannotVoid,
	models.FeatureRefund:        models.KindCannotRefund,
	models.FeaturePartialRefund: models.KindCannotRefund,
}

// Incomplete intents have moved no money yet and map to StatusNone.
var intentStatuses = map[stripe.PaymentIntentStatus]models.Status{
	stripe.PaymentIntentStatusRequiresCapture:       models.StatusAuthorized,
	stripe.PaymentIntentStatusProcessing:            models.StatusSettling,
	stripe.PaymentIntentStatusSucceeded:             models.StatusSettled,
	stripe.PaymentIntentStatusCanceled:              models.StatusVoided,
	stripe.PaymentIntentStatusRequiresPaymentMethod: models.StatusGatewayRejected,
	stripe.PaymentIntentStatusRequiresAction:        models.StatusNone,
	stripe.PaymentIntentStatusRequiresConfirmation:  models.StatusNone,
}

// incompleteIntents wait on the customer, usually for 3-D Secure.
var incompleteIntents = map[stripe.PaymentIntentStatus]bool{
	stripe.PaymentIntentStatusRequiresAction:       true,
	stripe.PaymentIntentStatusRequiresConfirmation: true,
}

var refundStatuses = map[string]models.Status{
	"succeeded": models.StatusRefunded,
	"pending":   models.StatusSettling,
	"failed":    models.StatusGatewayRejected,
	"canceled":  models.StatusGatewayRejected,
}

func mapError(se *stripe.Error, action models.Feature) models.SubmissionError {
	code := string(se.Code)
	if m, ok := errorCodes[code]; ok {
		return m.With(se)
	}
	if kind, ok := stateErrors[action]; ok && code == "payment_intent_unexpected_state" {
		return models.SubmissionError{Target: models.TargetTransaction, Kind: kind, Field: models.FieldTransaction, Raw: se}
	}
	if se.Type == stripe.ErrorTypeCard {
		return models.SubmissionError{Target: models.TargetTransaction, Kind: models.KindDeclined, Field: models.FieldTransaction, Raw: se}
	}
	return models.UnknownMapping.With(se)
}

func unix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func (p *Provider) coerceCard(pm *stripe.PaymentMethod) *models.Instrument {
	if pm == nil {
		return nil
	}
	attrs := models.InstrumentAttrs{ID: pm.ID, Raw: pm}
	if pm.BillingDetails != nil {
		attrs.HolderName = pm.BillingDetails.Name
	}
	if pm.Card != nil {
		attrs.Number = pm.Card.Last4
		attrs.CardType = string(pm.Card.Brand)
		attrs.ExpirationMonth = int(pm.Card.ExpMonth)
		attrs.ExpirationYear = int(pm.Card.ExpYear)
		// Stripe refuses to store a card that fails validation.
		attrs.Valid = models.FlagTrue
		attrs.Expired = models.FlagOf(models.CardExpired(attrs.ExpirationMonth, attrs.ExpirationYear, p.now()))
	}
	return models.NewInstrument(p, attrs)
}

func intentType(pi *stripe.PaymentIntent) models.OperationType {
	if pi.CaptureMethod == stripe.PaymentIntentCaptureMethodManual {
		return models.TypeAuthorize
	}
	return models.TypePurchase
}

func intentStatus(pi *stripe.PaymentIntent) models.Status {
	status := intentStatuses[pi.Status]
	if status == models.StatusSettled && pi.Charges != nil {
		for _, ch := range pi.Charges.Data {
			if ch.Refunded {
				return models.StatusRefunded
			}
		}
	}
	return status
}

// coerceIntent maps a PaymentIntent. as overrides the type for intents
// returned by capture and cancel.
func (p *Provider) coerceIntent(pi *stripe.PaymentIntent, as models.OperationType) *models.Operation {
	typ := as
	if typ == "" {
		typ = intentType(pi)
	}
	attrs := models.OperationAttrs{
		ID:         pi.ID,
		Type:       typ,
		Status:     intentStatus(pi),
		CreatedAt:  unix(pi.Created),
		Instrument: p.coerceCard(pi.PaymentMethod),
		Raw:        pi,
	}
	attrs.Amount.Decimal = providers.FromMinorUnits(pi.Amount)
	attrs.Amount.Valid = true
	return models.NewOperation(p, attrs)
}

func (p *Provider) coerceRefund(r *stripe.Refund) *models.Operation {
	attrs := models.OperationAttrs{
		ID:        r.ID,
		Type:      models.TypeCredit,
		Status:    refundStatuses[string(r.Status)],
		CreatedAt: unix(r.Created),
		Raw:       r,
	}
	if r.PaymentIntent != nil {
		attrs.Instrument = p.coerceCard(r.PaymentIntent.PaymentMethod)
	}
	attrs.Amount.Decimal = providers.FromMinorUnits(r.Amount)
	attrs.Amount.Valid = true
	return models.NewOperation(p, attrs)
}

func (p *Provider) intentResult(pi *stripe.PaymentIntent, as models.OperationType) *models.Result {
	op := p.coerceIntent(pi, as)
	opts := []models.ResultOption{models.WithOperation(op)}
	if op.HasInstrument() {
		opts = append(opts, models.WithInstrument(op.Instrument()))
	}
	if pi.LastPaymentError != nil {
		opts = append(opts, models.WithErrors(mapError(pi.LastPaymentError, "")))
		return models.NewResult(false, pi, opts...)
	}
	if op.Status() == models.StatusGatewayRejected || incompleteIntents[pi.Status] {
		opts = append(opts, models.WithErrors(models.SubmissionError{
			Target: models.TargetTransaction, Kind: models.KindDeclined, Field: models.FieldTransaction, Raw: pi.Status,
		}))
		if incompleteIntents[pi.Status] {
			p.Logger().Info("payment intent needs customer action",
				zap.String("intent", pi.ID), zap.String("status", string(pi.Status)))
		}
		return models.NewResult(false, pi, opts...)
	}
	return models.NewResult(true, pi, opts...)
}

func (p *Provider) refundResult(r *stripe.Refund) *models.Result {
	op := p.coerceRefund(r)
	if op.Status() == models.StatusGatewayRejected {
		return models.NewResult(false, r, models.WithOperation(op), models.WithErrors(models.SubmissionError{
			Target: models.TargetTransaction, Kind: models.KindCannotRefund, Field: models.FieldTransaction, Raw: r.Status,
		}))
	}
	return models.NewResult(true, r, models.WithOperation(op))
}

// failure turns card and request errors into a failed result. Missing
// resources become models.ErrNotFound and anything else is returned as is.
func (p *Provider) failure(err error, action models.Feature) (*models.Result, error) {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return nil, err
	}
	if se.Code == stripe.ErrorCodeResourceMissing {
		return nil, fmt.Errorf("stripe: %s: %w", se.Msg, models.ErrNotFound)
	}
	if se.Type != stripe.ErrorTypeCard && se.Type != stripe.ErrorTypeInvalidRequest {
		return nil, err
	}

	p.Logger().Info("stripe request rejected",
		zap.String("action", string(action)),
		zap.String("code", string(se.Code)),
		zap.String("decline_code", string(se.DeclineCode)))

	opts := []models.ResultOption{models.WithErrors(mapError(se, action))}
	if se.PaymentIntent != nil {
		op := p.coerceIntent(se.PaymentIntent, "")
		opts = append(opts, models.WithOperation(op))
		if op.HasInstrument() {
			opts = append(opts, models.WithInstrument(op.Instrument()))
		}
	}
	return models.NewResult(false, se, opts...), nil
}

func lookupError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Code == stripe.ErrorCodeResourceMissing {
		return fmt.Errorf("stripe: %s: %w", se.Msg, models.ErrNotFound)
	}
	return err
}
