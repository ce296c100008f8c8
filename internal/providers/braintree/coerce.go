package braintree

import (
	"strconv"
	"strings"
	"time"

	"gatepay/internal/models"

	"github.com/shopspring/decimal"
)

// FieldNames are the transparent redirect form inputs.
var FieldNames = map[models.Field]string{
	models.FieldName:            "transaction[credit_card][cardholder_name]",
	models.FieldNumber:          "transaction[credit_card][number]",
	models.FieldExpirationMonth: "transaction[credit_card][expiration_month]",
	models.FieldExpirationYear:  "transaction[credit_card][expiration_year]",
	models.FieldCVV:             "transaction[credit_card][cvv]",
}

var errorCodes = map[string]models.ErrorMapping{
	"81715": {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldNumber},
	"81725": {Target: models.TargetCreditCard, Kind: models.KindRequired, Field: models.FieldNumber},
	"81703": {Target: models.TargetCreditCard, Kind: models.KindTypeNotAccepted, Field: models.FieldCardType},
	"81716": {Target: models.TargetCreditCard, Kind: models.KindTooShort, Field: models.FieldNumber},
	"81712": {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldExpirationMonth},
	"81713": {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldExpirationYear},
	"81709": {Target: models.TargetCreditCard, Kind: models.KindRequired, Field: models.FieldExpirationMonth},
	"81707": {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldCVV},
	"81736": {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldCVV},
	"91507": {Target: models.TargetTransaction, Kind: models.KindCannotCapture, Field: models.FieldTransaction},
	"91506": {Target: models.TargetTransaction, Kind: models.KindCannotRefund, Field: models.FieldTransaction},
	"91504": {Target: models.TargetTransaction, Kind: models.KindCannotVoid, Field: models.FieldTransaction},
}

var statuses = map[string]models.Status{
	"authorizing":              models.StatusAuthorized,
	"authorized":               models.StatusAuthorized,
	"submitted_for_settlement": models.StatusSettling,
	"settlement_pending":       models.StatusSettling,
	"settling":                 models.StatusSettling,
	"settlement_confirmed":     models.StatusSettled,
	"settled":                  models.StatusSettled,
	"voided":                   models.StatusVoided,
	"processor_declined":       models.StatusGatewayRejected,
	"gateway_rejected":         models.StatusGatewayRejected,
	"settlement_declined":      models.StatusGatewayRejected,
	"failed":                   models.StatusGatewayRejected,
}

var declined = models.ErrorMapping{
	Target: models.TargetTransaction,
	Kind:   models.KindDeclined,
	Field:  models.FieldTransaction,
}

func coerceStatus(s string) models.Status {
	return statuses[s]
}

// coerceType maps Braintree's sale/credit onto the canonical types. A sale
// that has been submitted for settlement is a purchase.
func coerceType(vendorType string, status models.Status) models.OperationType {
	if vendorType == "credit" {
		return models.TypeCredit
	}
	switch status {
	case models.StatusSettling, models.StatusSettled:
		return models.TypePurchase
	}
	return models.TypeAuthorize
}

func mapErrors(errs []ValidationError) []models.SubmissionError {
	out := make([]models.SubmissionError, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.MapError(errorCodes, e.Code, e))
	}
	return out
}

func hasCardErrors(errs []models.SubmissionError) bool {
	for _, e := range errs {
		if e.Target == models.TargetCreditCard {
			return true
		}
	}
	return false
}

func parseAmount(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func expiredFlag(reported string, month, year int, now time.Time) models.Flag {
	if b, err := strconv.ParseBool(strings.TrimSpace(reported)); err == nil {
		return models.FlagOf(b)
	}
	if month == 0 || year == 0 {
		return models.FlagUnset
	}
	return models.FlagOf(models.CardExpired(month, year, now))
}

// cardFromObject builds an instrument from a decoded card element.
func (p *Provider) cardFromObject(c *CreditCard, valid bool) *models.Instrument {
	if c == nil {
		return nil
	}
	month, year := atoi(c.ExpirationMonth), atoi(c.ExpirationYear)
	number := c.MaskedNumber
	if number == "" {
		number = c.Last4
	}
	return models.NewInstrument(p, models.InstrumentAttrs{
		ID:              c.Token,
		Number:          number,
		ExpirationMonth: month,
		ExpirationYear:  year,
		CardType:        c.CardType,
		HolderName:      c.CardholderName,
		Valid:           models.FlagOf(valid),
		Expired:         expiredFlag(c.Expired, month, year, p.now()),
		Raw:             c,
	})
}

// cardFromParams builds an instrument from the form echo of an error
// response.
func (p *Provider) cardFromParams(params map[string]any, valid bool) *models.Instrument {
	card := lookupMap(params, "transaction", "credit_card")
	if card == nil {
		return nil
	}
	month := atoi(lookupString(card, "expiration_month"))
	year := atoi(lookupString(card, "expiration_year"))
	return models.NewInstrument(p, models.InstrumentAttrs{
		ID:              lookupString(card, "token"),
		Number:          lookupString(card, "last_4"),
		ExpirationMonth: month,
		ExpirationYear:  year,
		CardType:        lookupString(card, "card_type"),
		HolderName:      lookupString(card, "cardholder_name"),
		Valid:           models.FlagOf(valid),
		Expired:         expiredFlag(lookupString(card, "expired"), month, year, p.now()),
		Raw:             card,
	})
}

// operationFromTransaction builds an operation from a decoded transaction.
// A non-empty as overrides the type inferred from the vendor payload.
func (p *Provider) operationFromTransaction(tx *Transaction, as models.OperationType) *models.Operation {
	if tx == nil {
		return nil
	}
	status := coerceStatus(tx.Status)
	typ := as
	if typ == "" {
		typ = coerceType(tx.Type, status)
	}
	return models.NewOperation(p, models.OperationAttrs{
		ID:         tx.ID,
		Type:       typ,
		Status:     status,
		Amount:     parseAmount(tx.Amount),
		CreatedAt:  parseTime(tx.CreatedAt),
		UpdatedAt:  parseTime(tx.UpdatedAt),
		Instrument: p.cardFromObject(tx.CreditCard, true),
		Raw:        tx,
	})
}

// operationFromParams builds the unsaved operation echoed by an error
// response.
func (p *Provider) operationFromParams(params map[string]any, card *models.Instrument) *models.Operation {
	tx := lookupMap(params, "transaction")
	if tx == nil {
		return nil
	}
	status := coerceStatus(lookupString(tx, "status"))
	typ := coerceType(lookupString(tx, "type"), status)
	if opts := lookupMap(tx, "options"); lookupString(opts, "submit_for_settlement") == "true" {
		typ = models.TypePurchase
	}
	return models.NewOperation(p, models.OperationAttrs{
		ID:         lookupString(tx, "id"),
		Type:       typ,
		Status:     status,
		Amount:     parseAmount(lookupString(tx, "amount")),
		Instrument: card,
		Raw:        tx,
	})
}
