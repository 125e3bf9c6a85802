package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Worker polls the store and hands pending entries to the publisher.
// Run it as a single replica; concurrent workers would publish duplicates.
type Worker struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

type WorkerOption func(*Worker)

func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker builds a worker. Both store and publisher are required.
func NewWorker(store Store, publisher Publisher, opts ...WorkerOption) (*Worker, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if publisher == nil {
		return nil, errors.New("outbox publisher is required")
	}
	w := &Worker{
		store:     store,
		publisher: publisher,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run drains the outbox until ctx is canceled. Publish failures are logged and
// retried on the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := w.ProcessBatch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					w.logger.Error("outbox batch failed", "error", err)
					break
				}
				if n < w.batchSize {
					break
				}
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many entries it delivered.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	entries, err := w.store.FetchPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := w.publisher.Publish(ctx, entries); err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := w.store.MarkPublished(ctx, ids, w.now()); err != nil {
		return 0, err
	}
	w.logger.Debug("outbox batch published", "count", len(entries))
	return len(entries), nil
}
