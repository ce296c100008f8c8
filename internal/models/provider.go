package models

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider is the contract every payment gateway adapter satisfies.
//
// Action methods that an adapter does not implement fail with
// ErrUnimplemented when Supports reports the feature, and ErrNotSupported
// otherwise. Validation problems reported by the gateway come back as a
// failed Result, not as an error.
type Provider interface {
	Name() string
	Supports(ctx context.Context, feature Feature) (bool, error)

	LookupInstrument(ctx context.Context, id string) (*Instrument, error)
	LookupInstrumentFromOperation(ctx context.Context, op OperationRef) (*Instrument, error)
	LookupOperation(ctx context.Context, id string) (*Operation, error)

	PrepareSubmission(ctx context.Context, redirectURL string, opts SubmissionOptions) (*Submission, error)
	// ConfirmSubmission consumes the raw query string of the gateway redirect.
	ConfirmSubmission(ctx context.Context, rawQuery string, opts ConfirmOptions) (*Result, error)

	CaptureOperation(ctx context.Context, op OperationRef) (*Result, error)
	RefundOperation(ctx context.Context, op OperationRef) (*Result, error)
	PartiallyRefundOperation(ctx context.Context, op OperationRef, amount decimal.Decimal) (*Result, error)
	VoidOperation(ctx context.Context, op OperationRef) (*Result, error)

	AuthorizeViaInstrument(ctx context.Context, in InstrumentRef, amount decimal.Decimal) (*Result, error)
	PurchaseViaInstrument(ctx context.Context, in InstrumentRef, amount decimal.Decimal) (*Result, error)
	CreditViaInstrument(ctx context.Context, in InstrumentRef, amount decimal.Decimal) (*Result, error)
	DeleteInstrument(ctx context.Context, in InstrumentRef) (*Result, error)
	RetainInstrument(ctx context.Context, in InstrumentRef) (*Result, error)
}

// InstrumentRef is anything that identifies a stored instrument: an
// *Instrument or a bare InstrumentID.
type InstrumentRef interface {
	InstrumentRefID() string
}

// OperationRef is anything that identifies an operation: an *Operation or a
// bare OperationID.
type OperationRef interface {
	OperationRefID() string
}

type InstrumentID string

func (id InstrumentID) InstrumentRefID() string { return string(id) }

type OperationID string

func (id OperationID) OperationRefID() string { return string(id) }

// SubmissionType selects what a confirmed card submission does.
type SubmissionType string

const (
	SubmitPurchase  SubmissionType = "purchase"
	SubmitAuthorize SubmissionType = "authorize"
	SubmitStore     SubmissionType = "store"
)

// ParseSubmissionType validates a submission type name. An empty name is
// accepted and returned as is.
func ParseSubmissionType(name string) (SubmissionType, bool) {
	switch t := SubmissionType(name); t {
	case "", SubmitPurchase, SubmitAuthorize, SubmitStore:
		return t, true
	}
	return "", false
}

// SubmissionOptions are the provider independent knobs of a card form.
type SubmissionOptions struct {
	Amount decimal.NullDecimal
	Type   SubmissionType
	Vault  bool
	// Token updates an already stored instrument instead of creating one.
	Token string
}

// ConfirmOptions control what happens once the gateway redirects back.
type ConfirmOptions struct {
	Execute SubmissionType
	Amount  decimal.NullDecimal
}

// Submission describes the form a client posts card details through.
type Submission struct {
	URL          string            `json:"url"`
	HiddenFields map[string]string `json:"hidden_fields"`
	FieldNames   map[Field]string  `json:"field_names"`
}
