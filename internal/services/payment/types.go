package payment

import (
	"context"
	"time"

	"gatepay/internal/models"

	"github.com/shopspring/decimal"
)

// Action names used for journaling, metrics and spans.
const (
	ActionLookupInstrument        = "lookup_instrument"
	ActionInstrumentFromOperation = "instrument_from_operation"
	ActionLookupOperation         = "lookup_operation"
	ActionPrepareSubmission       = "prepare_submission"
	ActionConfirmSubmission       = "confirm_submission"
	ActionAuthorize               = "authorize"
	ActionPurchase                = "purchase"
	ActionCredit                  = "credit"
	ActionDelete                  = "delete"
	ActionRetain                  = "retain"
	ActionCapture                 = "capture"
	ActionRefund                  = "refund"
	ActionPartialRefund           = "partial_refund"
	ActionVoid                    = "void"
)

// Service runs gateway actions by gateway name.
type Service interface {
	Gateways() []string
	Capabilities(ctx context.Context, gateway string) (map[models.Feature]bool, error)

	LookupInstrument(ctx context.Context, gateway, id string) (*models.Instrument, error)
	InstrumentFromOperation(ctx context.Context, gateway, operationID string) (*models.Instrument, error)
	LookupOperation(ctx context.Context, gateway, id string) (*models.Operation, error)

	PrepareSubmission(ctx context.Context, gateway, redirectURL string, opts models.SubmissionOptions) (*models.Submission, error)
	ConfirmSubmission(ctx context.Context, gateway, rawQuery string, opts models.ConfirmOptions) (*models.Result, error)

	Authorize(ctx context.Context, gateway, instrumentID string, amount decimal.Decimal) (*models.Result, error)
	Purchase(ctx context.Context, gateway, instrumentID string, amount decimal.Decimal) (*models.Result, error)
	Credit(ctx context.Context, gateway, instrumentID string, amount decimal.Decimal) (*models.Result, error)
	DeleteInstrument(ctx context.Context, gateway, instrumentID string) (*models.Result, error)
	RetainInstrument(ctx context.Context, gateway, instrumentID string) (*models.Result, error)

	Capture(ctx context.Context, gateway, operationID string) (*models.Result, error)
	// Refund refunds in full when amount is null.
	Refund(ctx context.Context, gateway, operationID string, amount decimal.NullDecimal) (*models.Result, error)
	Void(ctx context.Context, gateway, operationID string) (*models.Result, error)
}

// Gateways resolves providers by name.
type Gateways interface {
	Get(name string) (models.Provider, error)
	Names() []string
}

// Journal persists action outcomes.
type Journal interface {
	Record(ctx context.Context, rec *models.OperationRecord) error
}

// MetricsCollector defines the interface for collecting gateway metrics
type MetricsCollector interface {
	RecordOperationDuration(gateway, action string, duration time.Duration)
	RecordOperationResult(gateway, action, result string)
	RecordError(gateway, action, kind string)
}
