package models

import "fmt"

// Target is the entity a submission error refers to.
type Target string

const (
	TargetCreditCard  Target = "credit_card"
	TargetTransaction Target = "transaction"
	TargetUnknown     Target = "unknown"
)

// Kind classifies a submission error.
type Kind string

const (
	KindInvalid         Kind = "invalid"
	KindRequired        Kind = "required"
	KindExpired         Kind = "expired"
	KindTooShort        Kind = "too_short"
	KindTypeNotAccepted Kind = "type_not_accepted"
	KindCannotCapture   Kind = "cannot_capture"
	KindCannotRefund    Kind = "cannot_refund"
	KindCannotVoid      Kind = "cannot_void"
	KindDeclined        Kind = "declined"
	KindUnknown         Kind = "unknown"
)

// Field is the attribute a submission error refers to. Fields double as the
// keys of a Submission's field name table.
type Field string

const (
	FieldName            Field = "name"
	FieldNumber          Field = "number"
	FieldExpirationMonth Field = "expiration_month"
	FieldExpirationYear  Field = "expiration_year"
	FieldCVV             Field = "cvv"
	FieldCardType        Field = "card_type"
	FieldTransaction     Field = "transaction"
	FieldAmount          Field = "amount"
	FieldUnknown         Field = "unknown"
)

// SubmissionError is a normalized validation or processing error reported
// by a gateway. Raw keeps the vendor payload it came from.
type SubmissionError struct {
	Target Target `json:"target"`
	Kind   Kind   `json:"kind"`
	Field  Field  `json:"field"`
	Raw    any    `json:"raw,omitempty"`
}

func (e SubmissionError) String() string {
	return fmt.Sprintf("%s.%s.%s", e.Target, e.Field, e.Kind)
}

// ErrorMapping is one row of an adapter's vendor error table.
type ErrorMapping struct {
	Target Target
	Kind   Kind
	Field  Field
}

// UnknownMapping is used for vendor codes missing from a table.
var UnknownMapping = ErrorMapping{Target: TargetUnknown, Kind: KindUnknown, Field: FieldUnknown}

// With builds the SubmissionError for this mapping.
func (m ErrorMapping) With(raw any) SubmissionError {
	return SubmissionError{Target: m.Target, Kind: m.Kind, Field: m.Field, Raw: raw}
}

// MapError looks a vendor code up in table. Unknown codes degrade to
// UnknownMapping so no vendor error is dropped.
func MapError(table map[string]ErrorMapping, code string, raw any) SubmissionError {
	if m, ok := table[code]; ok {
		return m.With(raw)
	}
	return UnknownMapping.With(raw)
}
