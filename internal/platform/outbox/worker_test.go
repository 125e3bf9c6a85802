package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type fakeStore struct {
	mu        sync.Mutex
	entries   []Entry
	published map[uuid.UUID]time.Time
	fetchErr  error
}

func (f *fakeStore) Append(_ context.Context, e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) FetchPending(_ context.Context, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []Entry
	for _, e := range f.entries {
		if _, done := f.published[e.ID]; done {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.published[id] = at
	}
	return nil
}

type fakePublisher struct {
	batches [][]Entry
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, entries []Entry) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, entries)
	return nil
}

type WorkerSuite struct {
	suite.Suite
	store     *fakeStore
	publisher *fakePublisher
	worker    *Worker
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.store = &fakeStore{published: map[uuid.UUID]time.Time{}}
	s.publisher = &fakePublisher{}
	var err error
	s.worker, err = NewWorker(s.store, s.publisher,
		WithBatchSize(2),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *WorkerSuite) appendEntries(n int) {
	for i := 0; i < n; i++ {
		s.Require().NoError(s.store.Append(context.Background(), Entry{
			ID:        uuid.New(),
			EventType: "document_executed",
			Payload:   []byte(`{}`),
			CreatedAt: time.Now(),
		}))
	}
}

func (s *WorkerSuite) TestNewWorker() {
	s.Run("nil store returns error", func() {
		_, err := NewWorker(nil, s.publisher)
		s.Require().Error(err)
		s.Contains(err.Error(), "outbox store is required")
	})

	s.Run("nil publisher returns error", func() {
		_, err := NewWorker(s.store, nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "outbox publisher is required")
	})
}

func (s *WorkerSuite) TestProcessBatch() {
	s.Run("publishes up to batch size and marks entries", func() {
		s.appendEntries(3)

		n, err := s.worker.ProcessBatch(context.Background())
		s.Require().NoError(err)
		s.Equal(2, n)
		s.Len(s.store.published, 2)

		n, err = s.worker.ProcessBatch(context.Background())
		s.Require().NoError(err)
		s.Equal(1, n)
		s.Len(s.store.published, 3)
		s.Len(s.publisher.batches, 2)
	})

	s.Run("empty outbox publishes nothing", func() {
		n, err := s.worker.ProcessBatch(context.Background())
		s.Require().NoError(err)
		s.Zero(n)
	})
}

func (s *WorkerSuite) TestPublishFailureLeavesEntriesPending() {
	s.appendEntries(1)
	s.publisher.err = errors.New("broker down")

	_, err := s.worker.ProcessBatch(context.Background())
	s.Require().Error(err)
	s.Empty(s.store.published)
}

func (s *WorkerSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.worker.Run(ctx)
	s.ErrorIs(err, context.Canceled)
}
