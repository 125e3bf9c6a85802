// Package postgres implements the ledger stores on database/sql with lib/pq.
//
// Stores are pure I/O. Every call joins the transaction carried by ctx (see
// pkg/platform/tx) and falls back to the pool otherwise. Row locks use
// SELECT ... FOR UPDATE; the correspondent account uses a transaction-scoped
// advisory lock because it has no single row to lock.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"modwallet/internal/ledger/ports"
	"modwallet/internal/platform/outbox"
	"modwallet/pkg/platform/sentinel"
	txcontext "modwallet/pkg/platform/tx"
)

// Migrations holds the ledger schema for golang-migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type base struct {
	db *sql.DB
}

func (b base) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return b.db
}

// Stores returns the PostgreSQL-backed store bundle.
func Stores(db *sql.DB) ports.Stores {
	b := base{db: db}
	return ports.Stores{
		Accounts:      &AccountStore{base: b},
		Balances:      &BalanceStore{base: b},
		Holds:         &HoldStore{base: b},
		Correspondent: &CorrespondentStore{base: b},
		Folders:       &FolderStore{base: b},
		Documents:     &DocumentStore{base: b},
		Outbox:        outbox.NewPostgresStore(db),
	}
}

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
	lockNotAvailable     = "55P03"
)

// classify maps driver errors onto sentinel errors, keeping the cause.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %w", sentinel.ErrAlreadyUsed, err)
	case serializationFailure, deadlockDetected, lockNotAvailable:
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}
