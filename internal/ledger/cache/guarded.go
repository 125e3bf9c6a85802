package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"modwallet/internal/ledger/ports"
	"modwallet/pkg/platform/circuit"
)

const defaultProbeInterval = 5 * time.Second

// Guarded puts a circuit breaker in front of a HistoryDatesCache. While the
// circuit is open reads and writes are skipped, except for one probe per
// interval. Invalidate always reaches the cache so no entry outlives a
// history change.
type Guarded struct {
	next    ports.HistoryDatesCache
	breaker *circuit.Breaker
	logger  *slog.Logger
	probe   time.Duration
	now     func() time.Time

	mu        sync.Mutex
	lastProbe time.Time
}

// GuardedOption configures Guarded.
type GuardedOption func(*Guarded)

func WithLogger(logger *slog.Logger) GuardedOption {
	return func(g *Guarded) { g.logger = logger }
}

func WithProbeInterval(d time.Duration) GuardedOption {
	return func(g *Guarded) {
		if d > 0 {
			g.probe = d
		}
	}
}

// NewGuarded wraps next with breaker.
func NewGuarded(next ports.HistoryDatesCache, breaker *circuit.Breaker, opts ...GuardedOption) *Guarded {
	g := &Guarded{
		next:    next,
		breaker: breaker,
		logger:  slog.Default(),
		probe:   defaultProbeInterval,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// allow reports whether a call should reach the cache.
func (g *Guarded) allow() bool {
	if !g.breaker.IsOpen() {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if now := g.now(); now.Sub(g.lastProbe) >= g.probe {
		g.lastProbe = now
		return true
	}
	return false
}

func (g *Guarded) record(ctx context.Context, err error) {
	if err == nil {
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.InfoContext(ctx, "history dates cache recovered", "breaker", g.breaker.Name())
		}
		return
	}
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.logger.WarnContext(ctx, "history dates cache disabled after repeated failures",
			"breaker", g.breaker.Name(),
			"error", err,
		)
	}
}

// Get reports a miss with NoGeneration while the circuit is open, so the
// caller's follow-up Set is dropped.
func (g *Guarded) Get(ctx context.Context, account string, year int) (ports.HistoryDatesLookup, error) {
	if !g.allow() {
		return ports.HistoryDatesLookup{Generation: ports.NoGeneration}, nil
	}
	lookup, err := g.next.Get(ctx, account, year)
	g.record(ctx, err)
	return lookup, err
}

func (g *Guarded) Set(ctx context.Context, account string, year int, dates []string, generation int64) error {
	if generation < 0 || !g.allow() {
		return nil
	}
	err := g.next.Set(ctx, account, year, dates, generation)
	g.record(ctx, err)
	return err
}

func (g *Guarded) Invalidate(ctx context.Context, accounts ...string) error {
	err := g.next.Invalidate(ctx, accounts...)
	g.record(ctx, err)
	return err
}
