package spreedly

import (
	"gatepay/internal/models"
	"gatepay/internal/providers"

	"github.com/goccy/go-json"
)

// FieldNames are the transparent redirect form inputs.
var FieldNames = map[models.Field]string{
	models.FieldName:            "credit_card[full_name]",
	models.FieldNumber:          "credit_card[number]",
	models.FieldExpirationMonth: "credit_card[month]",
	models.FieldExpirationYear:  "credit_card[year]",
	models.FieldCVV:             "credit_card[verification_value]",
}

var cardFields = map[string]models.Field{
	"full_name":          models.FieldName,
	"number":             models.FieldNumber,
	"year":               models.FieldExpirationYear,
	"month":              models.FieldExpirationMonth,
	"verification_value": models.FieldCVV,
	"card_type":          models.FieldCardType,
}

var cardErrorKeys = map[string]models.Kind{
	"errors.invalid":               models.KindInvalid,
	"errors.blank":                 models.KindRequired,
	"errors.expired":               models.KindExpired,
	"errors.too_short":             models.KindTooShort,
	"errors.unsupported_card_type": models.KindTypeNotAccepted,
}

type transactionKind struct {
	typ    models.OperationType
	status models.Status
}

var transactionKinds = map[string]transactionKind{
	"Authorization": {models.TypeAuthorize, models.StatusAuthorized},
	"Purchase":      {models.TypePurchase, models.StatusSettled},
	"Capture":       {models.TypeCapture, models.StatusSettled},
	"Credit":        {models.TypeCredit, models.StatusRefunded},
	"GeneralCredit": {models.TypeCredit, models.StatusSettled},
	"Void":          {models.TypeVoid, models.StatusVoided},
}

// transactionFailures classifies a failed transaction by the action that
// produced it.
var transactionFailures = map[string]models.Kind{
	"Capture": models.KindCannotCapture,
	"Void":    models.KindCannotVoid,
	"Credit":  models.KindCannotRefund,
}

// cardErrors maps payment method errors. Spreedly takes a full name but
// reports errors on first_name and last_name; both fold into full_name, and a
// last_name error that duplicates a first_name error is dropped.
func cardErrors(pm *PaymentMethod) []models.SubmissionError {
	if pm == nil {
		return nil
	}
	firstNameKeys := map[string]bool{}
	for _, e := range pm.Errors {
		if e.Attribute == "first_name" {
			firstNameKeys[e.Key] = true
		}
	}

	out := make([]models.SubmissionError, 0, len(pm.Errors))
	for _, e := range pm.Errors {
		attr := e.Attribute
		switch attr {
		case "first_name":
			attr = "full_name"
		case "last_name":
			if firstNameKeys[e.Key] {
				continue
			}
			attr = "full_name"
		}

		field, fok := cardFields[attr]
		kind, kok := cardErrorKeys[e.Key]
		if !fok || !kok {
			out = append(out, models.UnknownMapping.With(e))
			continue
		}
		out = append(out, models.SubmissionError{
			Target: models.TargetCreditCard,
			Kind:   kind,
			Field:  field,
			Raw:    e,
		})
	}
	return out
}

func hasExpiredError(pm *PaymentMethod) bool {
	for _, e := range pm.Errors {
		if e.Key == "errors.expired" {
			return true
		}
	}
	return false
}

func (p *Provider) coerceCard(pm *PaymentMethod) *models.Instrument {
	if pm == nil {
		return nil
	}
	number := pm.Number
	if number == "" {
		number = pm.LastFourDigits
	}
	return models.NewInstrument(p, models.InstrumentAttrs{
		ID:              pm.Token,
		Number:          number,
		ExpirationMonth: pm.Month,
		ExpirationYear:  pm.Year,
		CVV:             pm.VerificationValue,
		CardType:        pm.CardType,
		HolderName:      pm.FullName,
		Valid:           models.FlagOf(len(pm.Errors) == 0),
		Expired:         models.FlagOf(hasExpiredError(pm)),
		Raw:             pm,
	})
}

// coerceTransaction returns nil for transactions that are not money
// movements, such as redactions.
func (p *Provider) coerceTransaction(tx *Transaction) *models.Operation {
	kind, ok := transactionKinds[tx.TransactionType]
	if !ok {
		return nil
	}
	status := kind.status
	if !tx.Succeeded {
		status = models.StatusGatewayRejected
	}
	op := models.OperationAttrs{
		ID:         tx.Token,
		Type:       kind.typ,
		Status:     status,
		CreatedAt:  tx.CreatedAt,
		UpdatedAt:  tx.UpdatedAt,
		Instrument: p.coerceCard(tx.PaymentMethod),
		Raw:        tx,
	}
	if tx.Amount != nil {
		op.Amount.Decimal = providers.FromMinorUnits(*tx.Amount)
		op.Amount.Valid = true
	}
	return models.NewOperation(p, op)
}

func transactionErrors(tx *Transaction) []models.SubmissionError {
	if tx.Succeeded {
		return nil
	}
	errs := cardErrors(tx.PaymentMethod)

	kind, ok := transactionFailures[tx.TransactionType]
	if !ok {
		kind = models.KindDeclined
	}
	raw := tx.Message
	if tx.Response != nil && tx.Response.Message != "" {
		raw = tx.Response.Message
	}
	return append(errs, models.SubmissionError{
		Target: models.TargetTransaction,
		Kind:   kind,
		Field:  models.FieldTransaction,
		Raw:    raw,
	})
}

func (p *Provider) coerceResult(tx *Transaction) *models.Result {
	opts := []models.ResultOption{models.WithErrors(transactionErrors(tx)...)}
	if op := p.coerceTransaction(tx); op != nil {
		opts = append(opts, models.WithOperation(op))
	}
	if tx.PaymentMethod != nil {
		opts = append(opts, models.WithInstrument(p.coerceCard(tx.PaymentMethod)))
	}
	return models.NewResult(tx.Succeeded, tx, opts...)
}

// parseCharacteristics accepts both descriptor shapes Spreedly has used: an
// object of supports_* flags and a list of capability names.
func parseCharacteristics(raw json.RawMessage) (map[string]bool, error) {
	out := map[string]bool{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, err
	}
	out = make(map[string]bool, len(names))
	for _, n := range names {
		out["supports_"+n] = true
	}
	return out, nil
}
