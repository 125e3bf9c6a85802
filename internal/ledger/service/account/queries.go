package account

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"modwallet/internal/ledger/models"
	"modwallet/internal/ledger/ports"
	"modwallet/internal/platform/tracing"
	dErrors "modwallet/pkg/domain-errors"
)

// GetBalance returns current, held and available amounts of an open account.
func (s *Service) GetBalance(ctx context.Context, identityNumber string) (sum models.BalanceSummary, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, s.tracer, "account.GetBalance", attribute.String("account_id", identityNumber))
	defer func() {
		tracing.End(span, err)
		s.observe("get_balance", start)
	}()

	acc, err := s.findOpen(ctx, identityNumber, false)
	if err != nil {
		return models.BalanceSummary{}, err
	}
	return s.ledger.Summary(ctx, acc.ID)
}

// GetHistory lists executed documents touching an open account, newest
// first. A non-positive limit falls back to the configured default.
func (s *Service) GetHistory(ctx context.Context, identityNumber string, q models.HistoryQuery) (entries []models.HistoryEntry, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, s.tracer, "account.GetHistory", attribute.String("account_id", identityNumber))
	defer func() {
		tracing.End(span, err)
		s.observe("get_history", start)
	}()

	acc, err := s.findOpen(ctx, identityNumber, false)
	if err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = s.historyLimit
	}
	docs, err := s.documents.History(ctx, acc.ID, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	entries = make([]models.HistoryEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, models.EntryFor(acc.ID, d))
	}
	return entries, nil
}

// GetHistoryDates lists the UTC days in year with executed activity on the
// account. Closed accounts may still be queried.
func (s *Service) GetHistoryDates(ctx context.Context, identityNumber string, year int) (dates []string, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "account.GetHistoryDates",
		attribute.String("account_id", identityNumber),
		attribute.Int("year", year),
	)
	defer func() { tracing.End(span, err) }()

	acc, err := s.find(ctx, identityNumber, false)
	if err != nil {
		return nil, err
	}

	// The generation is read before the store so a fill that races an
	// execution is stored under a superseded generation.
	lookup := ports.HistoryDatesLookup{Generation: ports.NoGeneration}
	if s.cache != nil {
		var cacheErr error
		lookup, cacheErr = s.cache.Get(ctx, identityNumber, year)
		if cacheErr != nil {
			s.logger.WarnContext(ctx, "history dates cache read failed", "account_id", identityNumber, "error", cacheErr)
			lookup.Generation = ports.NoGeneration
		} else if lookup.Hit {
			return lookup.Dates, nil
		}
	}

	dates, err = s.documents.HistoryDates(ctx, acc.ID, year)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history dates")
	}
	if dates == nil {
		dates = []string{}
	}

	if s.cache != nil && lookup.Generation != ports.NoGeneration {
		if cacheErr := s.cache.Set(ctx, identityNumber, year, dates, lookup.Generation); cacheErr != nil {
			s.logger.WarnContext(ctx, "history dates cache write failed", "account_id", identityNumber, "error", cacheErr)
		}
	}
	return dates, nil
}
