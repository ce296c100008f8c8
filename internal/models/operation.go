package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OperationType is the kind of money movement an operation represents.
type OperationType string

const (
	TypePurchase  OperationType = "purchase"
	TypeAuthorize OperationType = "authorize"
	TypeCapture   OperationType = "capture"
	TypeCredit    OperationType = "credit"
	TypeVoid      OperationType = "void"
)

// Status is the canonical lifecycle state of an operation.
type Status string

const (
	StatusNone            Status = ""
	StatusAuthorized      Status = "authorized"
	StatusSettling        Status = "settling"
	StatusSettled         Status = "settled"
	StatusVoided          Status = "voided"
	StatusRefunded        Status = "refunded"
	StatusGatewayRejected Status = "gateway_rejected"
)

func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}

// OperationAttrs is what an adapter extracts from a vendor transaction.
type OperationAttrs struct {
	ID         string
	Type       OperationType
	Status     Status
	Amount     decimal.NullDecimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Instrument *Instrument
	Raw        any
}

// Operation is a single transaction on a gateway. It is immutable; every
// action returns a new Operation inside its Result.
type Operation struct {
	provider   Provider
	id         string
	typ        OperationType
	status     Status
	amount     decimal.NullDecimal
	createdAt  time.Time
	updatedAt  time.Time
	instrument *Instrument
	raw        any
}

func NewOperation(p Provider, a OperationAttrs) *Operation {
	return &Operation{
		provider:   p,
		id:         a.ID,
		typ:        a.Type,
		status:     a.Status,
		amount:     a.Amount,
		createdAt:  a.CreatedAt,
		updatedAt:  a.UpdatedAt,
		instrument: a.Instrument,
		raw:        a.Raw,
	}
}

func (o *Operation) ID() string                  { return o.id }
func (o *Operation) Provider() Provider          { return o.provider }
func (o *Operation) Type() OperationType         { return o.typ }
func (o *Operation) Status() Status              { return o.status }
func (o *Operation) Amount() decimal.NullDecimal { return o.amount }
func (o *Operation) CreatedAt() time.Time        { return o.createdAt }
func (o *Operation) UpdatedAt() time.Time        { return o.updatedAt }
func (o *Operation) Instrument() *Instrument     { return o.instrument }
func (o *Operation) HasInstrument() bool         { return o.instrument != nil }
func (o *Operation) Raw() any                    { return o.raw }

func (o *Operation) OperationRefID() string {
	if o == nil {
		return ""
	}
	return o.id
}

// Equal reports whether both operations have the same id.
func (o *Operation) Equal(other *Operation) bool {
	if o == nil || other == nil {
		return false
	}
	return o.id == other.id
}

func (o *Operation) CanCapture() bool { return o.status == StatusAuthorized }

func (o *Operation) CanVoid() bool {
	return o.status == StatusAuthorized || o.status == StatusSettling
}

func (o *Operation) CanRefund() bool { return o.status == StatusSettled }

func (o *Operation) Capture(ctx context.Context) (*Result, error) {
	if !o.CanCapture() {
		return nil, o.invalid("capture")
	}
	return o.provider.CaptureOperation(ctx, o)
}

func (o *Operation) Refund(ctx context.Context) (*Result, error) {
	if !o.CanRefund() {
		return nil, o.invalid("refund")
	}
	return o.provider.RefundOperation(ctx, o)
}

func (o *Operation) PartiallyRefund(ctx context.Context, amount decimal.Decimal) (*Result, error) {
	if !o.CanRefund() {
		return nil, o.invalid("partially refund")
	}
	return o.provider.PartiallyRefundOperation(ctx, o, amount)
}

func (o *Operation) Void(ctx context.Context) (*Result, error) {
	if !o.CanVoid() {
		return nil, o.invalid("void")
	}
	return o.provider.VoidOperation(ctx, o)
}

func (o *Operation) invalid(action string) error {
	return &InvalidActionError{ID: o.id, Action: action, Status: o.status}
}
