// Package presenter renders gateway entities as JSON documents.
package presenter

import (
	"time"

	"gatepay/internal/models"

	"github.com/shopspring/decimal"
)

// Instrument is the public view of a stored card. Valid and Expired are
// null when the gateway did not report them.
type Instrument struct {
	ID              string `json:"id"`
	Gateway         string `json:"gateway"`
	Number          string `json:"number,omitempty"`
	ExpirationMonth int    `json:"expiration_month,omitempty"`
	ExpirationYear  int    `json:"expiration_year,omitempty"`
	CardType        string `json:"card_type,omitempty"`
	HolderName      string `json:"holder_name,omitempty"`
	Valid           *bool  `json:"valid"`
	Expired         *bool  `json:"expired"`
}

type Operation struct {
	ID         string               `json:"id"`
	Gateway    string               `json:"gateway"`
	Type       models.OperationType `json:"type"`
	Status     models.Status        `json:"status"`
	Amount     decimal.NullDecimal  `json:"amount"`
	CreatedAt  *time.Time           `json:"created_at,omitempty"`
	UpdatedAt  *time.Time           `json:"updated_at,omitempty"`
	Instrument *Instrument          `json:"instrument,omitempty"`
	CanCapture bool                 `json:"can_capture"`
	CanVoid    bool                 `json:"can_void"`
	CanRefund  bool                 `json:"can_refund"`
}

// SubmissionError carries the dotted code target.field.kind.
type SubmissionError struct {
	Target models.Target `json:"target"`
	Field  models.Field  `json:"field"`
	Kind   models.Kind   `json:"kind"`
	Code   string        `json:"code"`
}

type Result struct {
	Successful bool              `json:"successful"`
	Operation  *Operation        `json:"operation,omitempty"`
	Instrument *Instrument       `json:"instrument,omitempty"`
	Errors     []SubmissionError `json:"errors"`
}

func optionalBool(get func() (bool, error)) *bool {
	v, err := get()
	if err != nil {
		return nil
	}
	return &v
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func FromInstrument(in *models.Instrument) *Instrument {
	if in == nil {
		return nil
	}
	return &Instrument{
		ID:              in.ID(),
		Gateway:         in.Provider().Name(),
		Number:          in.Number(),
		ExpirationMonth: in.ExpirationMonth(),
		ExpirationYear:  in.ExpirationYear(),
		CardType:        in.CardType(),
		HolderName:      in.HolderName(),
		Valid:           optionalBool(in.Valid),
		Expired:         optionalBool(in.Expired),
	}
}

func FromOperation(op *models.Operation) *Operation {
	if op == nil {
		return nil
	}
	return &Operation{
		ID:         op.ID(),
		Gateway:    op.Provider().Name(),
		Type:       op.Type(),
		Status:     op.Status(),
		Amount:     op.Amount(),
		CreatedAt:  optionalTime(op.CreatedAt()),
		UpdatedAt:  optionalTime(op.UpdatedAt()),
		Instrument: FromInstrument(op.Instrument()),
		CanCapture: op.CanCapture(),
		CanVoid:    op.CanVoid(),
		CanRefund:  op.CanRefund(),
	}
}

func FromResult(r *models.Result) *Result {
	out := &Result{
		Successful: r.Successful(),
		Operation:  FromOperation(r.Operation()),
		Instrument: FromInstrument(r.Instrument()),
		Errors:     []SubmissionError{},
	}
	for _, e := range r.Errors() {
		out.Errors = append(out.Errors, SubmissionError{
			Target: e.Target,
			Field:  e.Field,
			Kind:   e.Kind,
			Code:   e.String(),
		})
	}
	return out
}
