package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"modwallet/internal/ledger/ports"
	"modwallet/internal/ledger/ports/mocks"
	"modwallet/pkg/platform/circuit"
)

type GuardedSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	next    *mocks.MockHistoryDatesCache
	breaker *circuit.Breaker
	guarded *Guarded
	clock   time.Time
}

func TestGuardedSuite(t *testing.T) {
	suite.Run(t, new(GuardedSuite))
}

func (s *GuardedSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.next = mocks.NewMockHistoryDatesCache(s.ctrl)
	s.breaker = circuit.New("history_dates", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	s.clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.guarded = NewGuarded(s.next, s.breaker,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithProbeInterval(time.Second),
	)
	s.guarded.now = func() time.Time { return s.clock }
}

func (s *GuardedSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GuardedSuite) TestPassesThroughWhileClosed() {
	s.next.EXPECT().Get(gomock.Any(), "acc-1", 2026).
		Return(ports.HistoryDatesLookup{Dates: []string{"2026-01-01"}, Hit: true, Generation: 2}, nil)
	s.next.EXPECT().Set(gomock.Any(), "acc-1", 2025, []string{}, int64(2)).Return(nil)

	lookup, err := s.guarded.Get(context.Background(), "acc-1", 2026)
	s.Require().NoError(err)
	s.True(lookup.Hit)
	s.Equal(int64(2), lookup.Generation)
	s.Equal([]string{"2026-01-01"}, lookup.Dates)
	s.Require().NoError(s.guarded.Set(context.Background(), "acc-1", 2025, []string{}, 2))
}

func (s *GuardedSuite) TestOpensAndProbes() {
	ctx := context.Background()
	down := errors.New("connection refused")

	s.next.EXPECT().Get(gomock.Any(), "acc-1", 2026).Return(ports.HistoryDatesLookup{}, down).Times(2)
	for range 2 {
		_, err := s.guarded.Get(ctx, "acc-1", 2026)
		s.Require().Error(err)
	}
	s.Require().True(s.breaker.IsOpen())

	s.Run("first call after opening probes", func() {
		s.next.EXPECT().Get(gomock.Any(), "acc-1", 2026).Return(ports.HistoryDatesLookup{}, down)
		_, err := s.guarded.Get(ctx, "acc-1", 2026)
		s.Require().Error(err)
	})

	s.Run("calls inside the probe interval are skipped", func() {
		lookup, err := s.guarded.Get(ctx, "acc-1", 2026)
		s.Require().NoError(err)
		s.False(lookup.Hit)
		s.Equal(ports.NoGeneration, lookup.Generation)
		s.Require().NoError(s.guarded.Set(ctx, "acc-1", 2026, []string{}, 0))
	})

	s.Run("invalidate is never skipped", func() {
		s.next.EXPECT().Invalidate(gomock.Any(), "acc-1").Return(nil)
		s.Require().NoError(s.guarded.Invalidate(ctx, "acc-1"))
		s.False(s.breaker.IsOpen())
	})
}

func (s *GuardedSuite) TestProbeSuccessCloses() {
	ctx := context.Background()
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.Require().True(s.breaker.IsOpen())

	s.clock = s.clock.Add(2 * time.Second)
	s.next.EXPECT().Get(gomock.Any(), "acc-1", 2026).Return(ports.HistoryDatesLookup{}, nil)

	lookup, err := s.guarded.Get(ctx, "acc-1", 2026)
	s.Require().NoError(err)
	s.False(lookup.Hit)
	s.False(s.breaker.IsOpen())
}

func (s *GuardedSuite) TestSetWithoutGenerationIsDropped() {
	s.Require().NoError(s.guarded.Set(context.Background(), "acc-1", 2026, []string{"2026-01-01"}, ports.NoGeneration))
}

func (s *GuardedSuite) TestSingleSuccessBelowThresholdKeepsSkipping() {
	ctx := context.Background()
	s.breaker = circuit.New("history_dates", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(2))
	s.guarded = NewGuarded(s.next, s.breaker, WithLogger(slog.New(slog.DiscardHandler)), WithProbeInterval(time.Second))
	s.guarded.now = func() time.Time { return s.clock }
	s.breaker.RecordFailure()

	s.next.EXPECT().Get(gomock.Any(), "acc-1", 2026).Return(ports.HistoryDatesLookup{}, nil)
	_, err := s.guarded.Get(ctx, "acc-1", 2026)
	s.Require().NoError(err)
	s.True(s.breaker.IsOpen())

	lookup, err := s.guarded.Get(ctx, "acc-1", 2026)
	s.Require().NoError(err)
	s.Equal(ports.NoGeneration, lookup.Generation)

	s.clock = s.clock.Add(time.Second)
	s.next.EXPECT().Get(gomock.Any(), "acc-1", 2026).Return(ports.HistoryDatesLookup{}, nil)
	_, err = s.guarded.Get(ctx, "acc-1", 2026)
	s.Require().NoError(err)
	s.False(s.breaker.IsOpen())
}
