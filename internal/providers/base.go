// Package providers holds the behaviour shared by every gateway adapter.
//
// Adapters embed Base and override the methods their gateway implements.
// Whatever is left falls back to Base, which reports ErrUnimplemented when
// the adapter claims the feature and ErrNotSupported when it does not.
package providers

import (
	"context"
	"fmt"

	"gatepay/internal/config"
	"gatepay/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SupportsFunc answers feature queries for an adapter.
type SupportsFunc func(ctx context.Context, f models.Feature) (bool, error)

type Base struct {
	name     string
	env      config.Environment
	supports SupportsFunc
	logger   *zap.Logger
}

// NewBase builds the embedded base. A nil supports func claims every
// feature.
func NewBase(name string, env config.Environment, supports SupportsFunc, logger *zap.Logger) Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Base{
		name:     name,
		env:      env,
		supports: supports,
		logger:   logger.With(zap.String("gateway", name)),
	}
}

func (b *Base) Name() string                    { return b.name }
func (b *Base) Environment() config.Environment { return b.env }
func (b *Base) Logger() *zap.Logger             { return b.logger }

func (b *Base) Supports(ctx context.Context, f models.Feature) (bool, error) {
	if b.supports == nil {
		return true, nil
	}
	return b.supports(ctx, f)
}

// Require returns a not supported error when the feature is unavailable.
func (b *Base) Require(ctx context.Context, f models.Feature) error {
	ok, err := b.Supports(ctx, f)
	if err != nil {
		return err
	}
	if !ok {
		return &models.FeatureError{Provider: b.name, Feature: f, Err: models.ErrNotSupported}
	}
	return nil
}

func (b *Base) unavailable(ctx context.Context, f models.Feature) error {
	if err := b.Require(ctx, f); err != nil {
		return err
	}
	return &models.FeatureError{Provider: b.name, Feature: f, Err: models.ErrUnimplemented}
}

func (b *Base) unimplemented(method string) error {
	return fmt.Errorf("%s: %s: %w", b.name, method, models.ErrUnimplemented)
}

func (b *Base) LookupInstrument(ctx context.Context, id string) (*models.Instrument, error) {
	return nil, b.unimplemented("lookup instrument")
}

func (b *Base) LookupInstrumentFromOperation(ctx context.Context, op models.OperationRef) (*models.Instrument, error) {
	return nil, fmt.Errorf("%s: lookup instrument from operation: %w", b.name, models.ErrNotSupported)
}

func (b *Base) LookupOperation(ctx context.Context, id string) (*models.Operation, error) {
	return nil, b.unimplemented("lookup operation")
}

func (b *Base) PrepareSubmission(ctx context.Context, redirectURL string, opts models.SubmissionOptions) (*models.Submission, error) {
	return nil, b.unimplemented("prepare submission")
}

func (b *Base) ConfirmSubmission(ctx context.Context, rawQuery string, opts models.ConfirmOptions) (*models.Result, error) {
	return nil, b.unimplemented("confirm submission")
}

func (b *Base) CaptureOperation(ctx context.Context, op models.OperationRef) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeatureCapture)
}

func (b *Base) RefundOperation(ctx context.Context, op models.OperationRef) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeatureRefund)
}

func (b *Base) PartiallyRefundOperation(ctx context.Context, op models.OperationRef, amount decimal.Decimal) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeaturePartialRefund)
}

func (b *Base) VoidOperation(ctx context.Context, op models.OperationRef) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeatureVoid)
}

func (b *Base) AuthorizeViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeatureAuthorize)
}

func (b *Base) PurchaseViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeaturePurchase)
}

func (b *Base) CreditViaInstrument(ctx context.Context, in models.InstrumentRef, amount decimal.Decimal) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeatureCredit)
}

func (b *Base) DeleteInstrument(ctx context.Context, in models.InstrumentRef) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeatureDelete)
}

func (b *Base) RetainInstrument(ctx context.Context, in models.InstrumentRef) (*models.Result, error) {
	return nil, b.unavailable(ctx, models.FeatureRetain)
}
