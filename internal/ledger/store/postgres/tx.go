package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/platform/sentinel"
	txcontext "modwallet/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Tx runs each ledger command in one database transaction and hands it to the
// stores through ctx.
type Tx struct {
	db      *sql.DB
	timeout time.Duration
}

// NewTx builds a Tx. A zero timeout uses the 5s default.
func NewTx(db *sql.DB, timeout time.Duration) *Tx {
	return &Tx{db: db, timeout: timeout}
}

// RunInTx implements ports.StoreTx. Nested calls join the outer transaction.
func (t *Tx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txcontext.InTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return retryable(err)
	}

	if err := tx.Commit(); err != nil {
		return retryable(dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction"))
	}
	return nil
}

// retryable surfaces deadlocks and serialization failures as unavailable so
// callers can retry the whole command.
func retryable(err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "transaction aborted, retry")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
	}
	return err
}
