// Package cache holds the redis-backed history dates cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"modwallet/internal/ledger/ports"
)

const (
	keyPrefix  = "wallet:history_dates:"
	DefaultTTL = 10 * time.Minute
)

// HistoryDates caches the per-year activity dates of an account. Entries are
// keyed by the account's generation. Invalidate increments the generation,
// so earlier entries, including fills still in flight, become unreachable and
// age out with their TTL.
type HistoryDates struct {
	client  redis.Cmdable
	ttl     time.Duration
	lookups *prometheus.CounterVec
}

// Option configures a HistoryDates cache.
type Option func(*HistoryDates)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *HistoryDates) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRegisterer registers the lookup counter on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *HistoryDates) {
		if reg != nil {
			c.lookups = newLookups(reg)
		}
	}
}

func newLookups(reg prometheus.Registerer) *prometheus.CounterVec {
	return promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_history_dates_cache_lookups_total",
		Help: "History dates cache lookups by result",
	}, []string{"result"})
}

// NewHistoryDates constructs a cache on client. Without WithRegisterer the
// lookup counter lives on a private registry.
func NewHistoryDates(client redis.Cmdable, opts ...Option) *HistoryDates {
	c := &HistoryDates{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.lookups == nil {
		c.lookups = newLookups(prometheus.NewRegistry())
	}
	return c
}

func datesKey(account string, generation int64, year int) string {
	return keyPrefix + account + ":" + strconv.FormatInt(generation, 10) + ":" + strconv.Itoa(year)
}

func generationKey(account string) string {
	return keyPrefix + account + ":gen"
}

// Get returns the dates cached for the account's current generation.
func (c *HistoryDates) Get(ctx context.Context, account string, year int) (ports.HistoryDatesLookup, error) {
	miss := ports.HistoryDatesLookup{Generation: ports.NoGeneration}

	gen, err := c.client.Get(ctx, generationKey(account)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.lookups.WithLabelValues("error").Inc()
		return miss, fmt.Errorf("get history dates generation: %w", err)
	}
	lookup := ports.HistoryDatesLookup{Generation: gen}

	raw, err := c.client.Get(ctx, datesKey(account, gen, year)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.lookups.WithLabelValues("miss").Inc()
		return lookup, nil
	}
	if err != nil {
		c.lookups.WithLabelValues("error").Inc()
		return miss, fmt.Errorf("get history dates: %w", err)
	}
	var dates []string
	if err := json.Unmarshal(raw, &dates); err != nil {
		c.lookups.WithLabelValues("error").Inc()
		return miss, fmt.Errorf("decode history dates: %w", err)
	}
	if dates == nil {
		dates = []string{}
	}
	c.lookups.WithLabelValues("hit").Inc()
	lookup.Dates, lookup.Hit = dates, true
	return lookup, nil
}

// Set stores dates under generation for ttl. If Invalidate ran since the
// caller's Get the entry lands under a superseded generation and is never
// read.
func (c *HistoryDates) Set(ctx context.Context, account string, year int, dates []string, generation int64) error {
	if generation < 0 {
		return nil
	}
	if dates == nil {
		dates = []string{}
	}
	raw, err := json.Marshal(dates)
	if err != nil {
		return fmt.Errorf("encode history dates: %w", err)
	}
	if err := c.client.Set(ctx, datesKey(account, generation, year), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set history dates: %w", err)
	}
	return nil
}

// Invalidate advances the generation of each account.
func (c *HistoryDates) Invalidate(ctx context.Context, accounts ...string) error {
	if len(accounts) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, account := range accounts {
		pipe.Incr(ctx, generationKey(account))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate history dates: %w", err)
	}
	return nil
}
