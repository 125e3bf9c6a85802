// Package document runs the document lifecycle: per-type creation machines
// that validate and reserve funds, execution machines that move money, and
// folder cancellation.
//
// Every command runs in one StoreTx transaction. Creation failures are
// business outcomes: the document is persisted as invalid with its reason and
// the transaction commits. Execution and cancellation failures roll the whole
// transaction back.
package document

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"modwallet/internal/ledger/metrics"
	"modwallet/internal/ledger/models"
	"modwallet/internal/ledger/ports"
	"modwallet/internal/ledger/service/balance"
	"modwallet/internal/platform/tracing"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/requestcontext"
)

const tracerName = "modwallet/ledger/document"

// DefaultTransferLimit caps individual-to-individual transfers.
var DefaultTransferLimit = decimal.NewFromInt(50000)

// Service orchestrates document creation, execution and cancellation.
type Service struct {
	tx       ports.StoreTx
	stores   ports.Stores
	ledger   *balance.Ledger
	registry *registry
	cache    ports.HistoryDatesCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	limit    decimal.Decimal
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracerProvider takes spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithHistoryDatesCache invalidates cached history dates after execution.
func WithHistoryDatesCache(c ports.HistoryDatesCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithTransferLimit overrides DefaultTransferLimit.
func WithTransferLimit(limit decimal.Decimal) Option {
	return func(s *Service) {
		if limit.IsPositive() {
			s.limit = limit
		}
	}
}

// New constructs a Service with the emission, withdrawal and transfer machines.
func New(tx ports.StoreTx, stores ports.Stores, opts ...Option) (*Service, error) {
	if tx == nil {
		return nil, errors.New("store transaction is required")
	}
	switch {
	case stores.Accounts == nil:
		return nil, errors.New("account store is required")
	case stores.Folders == nil:
		return nil, errors.New("folder store is required")
	case stores.Documents == nil:
		return nil, errors.New("document store is required")
	case stores.Outbox == nil:
		return nil, errors.New("outbox is required")
	}
	ledger, err := balance.New(stores)
	if err != nil {
		return nil, err
	}
	s := &Service{
		tx:     tx,
		stores: stores,
		ledger: ledger,
		logger: slog.Default(),
		tracer: tracing.Tracer(tracerName),
		limit:  DefaultTransferLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	env := &env{
		accounts:      stores.Accounts,
		documents:     stores.Documents,
		ledger:        ledger,
		transferLimit: s.limit,
	}
	s.registry = newRegistry(
		&emission{env: env},
		&withdrawal{env: env},
		&transfer{env: env},
	)
	return s, nil
}

func (s *Service) emit(ctx context.Context, t models.EventType, doc *models.Document, at time.Time) error {
	entry, err := models.NewDocumentEntry(t, doc, requestcontext.RequestID(ctx), at)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if err := s.stores.Outbox.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append event")
	}
	return nil
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}

func (s *Service) setStatus(ctx context.Context, doc *models.Document, next models.Status, at *time.Time) error {
	if !doc.Status.CanTransitionTo(next) {
		return models.Fail(models.ErrInvalidRequest, "document is "+string(doc.Status))
	}
	if err := s.stores.Documents.UpdateStatus(ctx, doc.ID, next, at); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document status")
	}
	doc.Status = next
	doc.ExecutedAt = at
	return nil
}

func (s *Service) logRejected(ctx context.Context, op string, err error, args ...any) {
	if f, ok := models.AsFailure(err); ok {
		s.logger.WarnContext(ctx, op+" rejected", append(args, "reason", string(f))...)
		return
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeInvariantViolation:
		s.logger.ErrorContext(ctx, op+" failed", append(args, "error", err)...)
	default:
		s.logger.WarnContext(ctx, op+" rejected", append(args, "error", err)...)
	}
}
