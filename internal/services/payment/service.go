package payment

import (
	"context"
	"errors"
	"time"

	"gatepay/internal/logging"
	"gatepay/internal/models"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "gatepay/payment"

// Outcome labels. A failed result is a gateway answer, not an error.
const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
	outcomeError  = "error"
)

type service struct {
	gateways Gateways
	journal  Journal
	metrics  MetricsCollector
	tracer   trace.Tracer
}

// NewService creates a new payment service. journal and metrics may be nil.
func NewService(gateways Gateways, journal Journal, metrics MetricsCollector) Service {
	if gateways == nil {
		panic("gateways are required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{
		gateways: gateways,
		journal:  journal,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

func (s *service) Gateways() []string {
	return s.gateways.Names()
}

func (s *service) Capabilities(ctx context.Context, gateway string) (map[models.Feature]bool, error) {
	p, err := s.gateways.Get(gateway)
	if err != nil {
		return nil, err
	}
	out := make(map[models.Feature]bool, len(models.Features))
	for _, f := range models.Features {
		ok, err := p.Supports(ctx, f)
		if err != nil {
			return nil, err
		}
		out[f] = ok
	}
	return out, nil
}

func (s *service) LookupInstrument(ctx context.Context, gateway, id string) (*models.Instrument, error) {
	var in *models.Instrument
	err := s.observe(ctx, gateway, ActionLookupInstrument, func(ctx context.Context, p models.Provider) (string, error) {
		var err error
		in, err = p.LookupInstrument(ctx, id)
		return outcomeOK, err
	})
	return in, err
}

func (s *service) InstrumentFromOperation(ctx context.Context, gateway, operationID string) (*models.Instrument, error) {
	var in *models.Instrument
	err := s.observe(ctx, gateway, ActionInstrumentFromOperation, func(ctx context.Context, p models.Provider) (string, error) {
		var err error
		in, err = p.LookupInstrumentFromOperation(ctx, models.OperationID(operationID))
		return outcomeOK, err
	})
	return in, err
}

func (s *service) LookupOperation(ctx context.Context, gateway, id string) (*models.Operation, error) {
	var op *models.Operation
	err := s.observe(ctx, gateway, ActionLookupOperation, func(ctx context.Context, p models.Provider) (string, error) {
		var err error
		op, err = p.LookupOperation(ctx, id)
		return outcomeOK, err
	})
	return op, err
}

func (s *service) PrepareSubmission(ctx context.Context, gateway, redirectURL string, opts models.SubmissionOptions) (*models.Submission, error) {
	var sub *models.Submission
	err := s.observe(ctx, gateway, ActionPrepareSubmission, func(ctx context.Context, p models.Provider) (string, error) {
		var err error
		sub, err = p.PrepareSubmission(ctx, redirectURL, opts)
		return outcomeOK, err
	})
	return sub, err
}

func (s *service) ConfirmSubmission(ctx context.Context, gateway, rawQuery string, opts models.ConfirmOptions) (*models.Result, error) {
	return s.act(ctx, gateway, ActionConfirmSubmission, func(ctx context.Context, p models.Provider) (*models.Result, error) {
		return p.ConfirmSubmission(ctx, rawQuery, opts)
	})
}

// onInstrument looks the card up first so the instrument guards run before
// the gateway is asked to move money.
func (s *service) onInstrument(ctx context.Context, gateway, action, id string, fn func(context.Context, *models.Instrument) (*models.Result, error)) (*models.Result, error) {
	return s.act(ctx, gateway, action, func(ctx context.Context, p models.Provider) (*models.Result, error) {
		in, err := p.LookupInstrument(ctx, id)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	})
}

func (s *service) Authorize(ctx context.Context, gateway, instrumentID string, amount decimal.Decimal) (*models.Result, error) {
	return s.onInstrument(ctx, gateway, ActionAuthorize, instrumentID, func(ctx context.Context, in *models.Instrument) (*models.Result, error) {
		return in.Authorize(ctx, amount)
	})
}

func (s *service) Purchase(ctx context.Context, gateway, instrumentID string, amount decimal.Decimal) (*models.Result, error) {
	return s.onInstrument(ctx, gateway, ActionPurchase, instrumentID, func(ctx context.Context, in *models.Instrument) (*models.Result, error) {
		return in.Purchase(ctx, amount)
	})
}

func (s *service) Credit(ctx context.Context, gateway, instrumentID string, amount decimal.Decimal) (*models.Result, error) {
	return s.onInstrument(ctx, gateway, ActionCredit, instrumentID, func(ctx context.Context, in *models.Instrument) (*models.Result, error) {
		return in.Credit(ctx, amount)
	})
}

// DeleteInstrument and RetainInstrument act on the id directly; a card
// that no longer validates can still be removed.
func (s *service) DeleteInstrument(ctx context.Context, gateway, instrumentID string) (*models.Result, error) {
	return s.act(ctx, gateway, ActionDelete, func(ctx context.Context, p models.Provider) (*models.Result, error) {
		return p.DeleteInstrument(ctx, models.InstrumentID(instrumentID))
	})
}

func (s *service) RetainInstrument(ctx context.Context, gateway, instrumentID string) (*models.Result, error) {
	return s.act(ctx, gateway, ActionRetain, func(ctx context.Context, p models.Provider) (*models.Result, error) {
		return p.RetainInstrument(ctx, models.InstrumentID(instrumentID))
	})
}

// onOperation looks the operation up so its status guards run first.
func (s *service) onOperation(ctx context.Context, gateway, action, id string, fn func(context.Context, *models.Operation) (*models.Result, error)) (*models.Result, error) {
	return s.act(ctx, gateway, action, func(ctx context.Context, p models.Provider) (*models.Result, error) {
		op, err := p.LookupOperation(ctx, id)
		if err != nil {
			return nil, err
		}
		return fn(ctx, op)
	})
}

func (s *service) Capture(ctx context.Context, gateway, operationID string) (*models.Result, error) {
	return s.onOperation(ctx, gateway, ActionCapture, operationID, func(ctx context.Context, op *models.Operation) (*models.Result, error) {
		return op.Capture(ctx)
	})
}

func (s *service) Refund(ctx context.Context, gateway, operationID string, amount decimal.NullDecimal) (*models.Result, error) {
	if amount.Valid {
		return s.onOperation(ctx, gateway, ActionPartialRefund, operationID, func(ctx context.Context, op *models.Operation) (*models.Result, error) {
			return op.PartiallyRefund(ctx, amount.Decimal)
		})
	}
	return s.onOperation(ctx, gateway, ActionRefund, operationID, func(ctx context.Context, op *models.Operation) (*models.Result, error) {
		return op.Refund(ctx)
	})
}

func (s *service) Void(ctx context.Context, gateway, operationID string) (*models.Result, error) {
	return s.onOperation(ctx, gateway, ActionVoid, operationID, func(ctx context.Context, op *models.Operation) (*models.Result, error) {
		return op.Void(ctx)
	})
}

// act runs a result-producing action and journals its outcome.
func (s *service) act(ctx context.Context, gateway, action string, fn func(context.Context, models.Provider) (*models.Result, error)) (*models.Result, error) {
	var (
		res  *models.Result
		name string
	)
	err := s.observe(ctx, gateway, action, func(ctx context.Context, p models.Provider) (string, error) {
		name = p.Name()
		var err error
		res, err = fn(ctx, p)
		if err == nil && res.Failed() {
			return outcomeFailed, nil
		}
		return outcomeOK, err
	})

	var unknown *unknownGatewayError
	if errors.As(err, &unknown) {
		return nil, err
	}
	s.record(ctx, name, action, res, err)
	if err == nil && res.Failed() {
		for _, e := range res.Errors() {
			s.metrics.RecordError(name, action, string(e.Kind))
		}
	}
	return res, err
}

type unknownGatewayError struct{ err error }

func (e *unknownGatewayError) Error() string { return e.err.Error() }
func (e *unknownGatewayError) Unwrap() error { return e.err }

// observe resolves the provider and wraps fn in a span, a latency sample, an
// outcome counter and a log line.
func (s *service) observe(ctx context.Context, gateway, action string, fn func(context.Context, models.Provider) (string, error)) error {
	p, err := s.gateways.Get(gateway)
	if err != nil {
		return &unknownGatewayError{err: err}
	}
	name := p.Name()

	ctx, span := s.tracer.Start(ctx, "payment."+action, trace.WithAttributes(
		attribute.String("gateway", name),
		attribute.String("action", action),
	))
	defer span.End()

	logger := logging.FromContext(ctx).With(zap.String("gateway", name), zap.String("action", action))
	start := time.Now()
	outcome, err := fn(ctx, p)
	elapsed := time.Since(start)
	s.metrics.RecordOperationDuration(name, action, elapsed)

	if err != nil {
		kind := ErrorKind(err)
		s.metrics.RecordOperationResult(name, action, outcomeError)
		s.metrics.RecordError(name, action, kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		if kind == KindVendor {
			logger.Error("gateway action failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		} else {
			logger.Info("gateway action rejected", zap.String("kind", kind), zap.Error(err))
		}
		return err
	}

	s.metrics.RecordOperationResult(name, action, outcome)
	logger.Debug("gateway action completed", zap.String("outcome", outcome), zap.Duration("elapsed", elapsed))
	return nil
}

func (s *service) record(ctx context.Context, gateway, action string, res *models.Result, actErr error) {
	if s.journal == nil {
		return
	}
	rec := models.NewOperationRecord(gateway, action, res)
	if actErr != nil {
		rec.Metadata = models.JSON{"error": actErr.Error(), "kind": ErrorKind(actErr)}
	}
	if err := s.journal.Record(ctx, rec); err != nil {
		logging.FromContext(ctx).Warn("journal write failed",
			zap.String("gateway", gateway),
			zap.String("action", action),
			zap.Error(err))
	}
}
