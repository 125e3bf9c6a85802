// Package account implements the account registry commands (create, close,
// block, unblock) and the account read models (balance, history, history dates).
package account

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"modwallet/internal/ledger/metrics"
	"modwallet/internal/ledger/models"
	"modwallet/internal/ledger/ports"
	"modwallet/internal/ledger/service/balance"
	"modwallet/internal/platform/tracing"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/platform/sentinel"
)

const tracerName = "modwallet/ledger/account"

// Service orchestrates account commands and queries.
type Service struct {
	tx           ports.StoreTx
	accounts     ports.AccountStore
	documents    ports.DocumentStore
	outbox       ports.Outbox
	ledger       *balance.Ledger
	cache        ports.HistoryDatesCache
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	historyLimit int
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

// WithHistoryDatesCache memoizes GetHistoryDates results.
func WithHistoryDatesCache(c ports.HistoryDatesCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithHistoryLimit sets the page size used when a history query has none.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// New constructs a Service.
func New(tx ports.StoreTx, stores ports.Stores, opts ...Option) (*Service, error) {
	if tx == nil {
		return nil, errors.New("store transaction is required")
	}
	if stores.Accounts == nil {
		return nil, errors.New("account store is required")
	}
	if stores.Documents == nil {
		return nil, errors.New("document store is required")
	}
	if stores.Outbox == nil {
		return nil, errors.New("outbox is required")
	}
	ledger, err := balance.New(stores)
	if err != nil {
		return nil, err
	}
	s := &Service{
		tx:           tx,
		accounts:     stores.Accounts,
		documents:    stores.Documents,
		outbox:       stores.Outbox,
		ledger:       ledger,
		logger:       slog.Default(),
		tracer:       tracing.Tracer(tracerName),
		historyLimit: models.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// find loads an account, translating a missing row to AccountNotFound.
func (s *Service) find(ctx context.Context, identity string, lock bool) (*models.Account, error) {
	var (
		a   *models.Account
		err error
	)
	if lock {
		a, err = s.accounts.LockByIdentity(ctx, identity)
	} else {
		a, err = s.accounts.FindByIdentity(ctx, identity)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.Fail(models.ErrAccountNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return a, nil
}

// findOpen is find that also rejects closed accounts.
func (s *Service) findOpen(ctx context.Context, identity string, lock bool) (*models.Account, error) {
	a, err := s.find(ctx, identity, lock)
	if err != nil {
		return nil, err
	}
	if a.Closed {
		return nil, models.Fail(models.ErrAccountClosed, "account is closed")
	}
	return a, nil
}

func (s *Service) logRejected(ctx context.Context, op string, err error, args ...any) {
	if f, ok := models.AsFailure(err); ok {
		s.logger.WarnContext(ctx, op+" rejected", append(args, "reason", string(f))...)
		return
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		s.logger.ErrorContext(ctx, op+" failed", append(args, "error", err)...)
	}
}
