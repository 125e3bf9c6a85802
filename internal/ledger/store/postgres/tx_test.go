package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/platform/sentinel"
	txcontext "modwallet/pkg/platform/tx"
)

type TxSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	tx   *Tx
}

func TestTxSuite(t *testing.T) {
	suite.Run(t, new(TxSuite))
}

func (s *TxSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.mock = mock
	s.tx = NewTx(db, time.Second)
}

func (s *TxSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *TxSuite) TestCommit() {
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	var inTx bool
	err := s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		inTx = txcontext.InTx(ctx)
		return nil
	})
	s.Require().NoError(err)
	s.True(inTx)
}

func (s *TxSuite) TestRollbackKeepsTheCause() {
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	cause := dErrors.New(dErrors.CodeConflict, "insufficient balance")
	err := s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		return cause
	})
	s.Require().ErrorIs(err, cause)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
}

func (s *TxSuite) TestDeadlockIsUnavailable() {
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	err := s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		return dErrors.Wrap(fmt.Errorf("lock account: %w", sentinel.ErrUnavailable), dErrors.CodeInternal, "failed to lock account")
	})
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

func (s *TxSuite) TestNestedCallsShareTheTransaction() {
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	err := s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(ctx context.Context) error { return nil })
	})
	s.Require().NoError(err)
}

func (s *TxSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		s.Fail("fn must not run")
		return nil
	})
	s.Require().Error(err)
	s.Equal(dErrors.CodeTimeout, dErrors.CodeOf(err))
}

func (s *TxSuite) TestBeginFailure() {
	s.mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := s.tx.RunInTx(context.Background(), func(ctx context.Context) error { return nil })
	s.Require().Error(err)
	s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))
}
