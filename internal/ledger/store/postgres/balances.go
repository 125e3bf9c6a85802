package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"modwallet/internal/ledger/models"
	"modwallet/pkg/platform/sentinel"
)

// correspondentLockKey identifies the advisory lock serializing writers of
// correspondent_accounts.
const correspondentLockKey int64 = 0x77616c6c6574

// BalanceStore appends balance snapshots.
type BalanceStore struct {
	base
}

func (s *BalanceStore) Current(ctx context.Context, account models.AccountID) (decimal.Decimal, error) {
	query := `SELECT amount FROM balances WHERE account_id = $1 ORDER BY id DESC LIMIT 1`
	var amount decimal.Decimal
	err := s.execer(ctx).QueryRowContext(ctx, query, int64(account)).Scan(&amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("current balance: %w", classify(err))
	}
	return amount, nil
}

func (s *BalanceStore) Append(ctx context.Context, b *models.Balance) error {
	query := `
		INSERT INTO balances (account_id, document_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		int64(b.AccountID),
		nullDocumentID(b.DocumentID),
		b.Amount,
		b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert balance: %w", classify(err))
	}
	return nil
}

func (s *BalanceStore) ListByAccount(ctx context.Context, account models.AccountID) ([]models.Balance, error) {
	query := `
		SELECT id, account_id, COALESCE(document_id, 0), amount, created_at
		FROM balances
		WHERE account_id = $1
		ORDER BY id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, int64(account))
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", classify(err))
	}
	defer rows.Close()

	var out []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.ID, &b.AccountID, &b.DocumentID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}

// HoldStore persists per-document reservations.
type HoldStore struct {
	base
}

func (s *HoldStore) Create(ctx context.Context, h *models.HeldBalance) error {
	query := `
		INSERT INTO held_balances (account_id, document_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		int64(h.AccountID),
		int64(h.DocumentID),
		h.Amount,
		h.CreatedAt,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("insert held balance: %w", classify(err))
	}
	return nil
}

func (s *HoldStore) FindByDocument(ctx context.Context, doc models.DocumentID) (*models.HeldBalance, error) {
	query := `
		SELECT id, account_id, document_id, amount, created_at
		FROM held_balances
		WHERE document_id = $1
	`
	var h models.HeldBalance
	err := s.execer(ctx).QueryRowContext(ctx, query, int64(doc)).
		Scan(&h.ID, &h.AccountID, &h.DocumentID, &h.Amount, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find held balance: %w", classify(err))
	}
	return &h, nil
}

func (s *HoldStore) DeleteByDocument(ctx context.Context, doc models.DocumentID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM held_balances WHERE document_id = $1`, int64(doc))
	if err != nil {
		return fmt.Errorf("delete held balance: %w", classify(err))
	}
	return requireRow(res, "delete held balance")
}

func (s *HoldStore) TotalByAccount(ctx context.Context, account models.AccountID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM held_balances WHERE account_id = $1`
	var total decimal.Decimal
	if err := s.execer(ctx).QueryRowContext(ctx, query, int64(account)).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum held balances: %w", classify(err))
	}
	return total, nil
}

func (s *HoldStore) TotalByAccountExcluding(ctx context.Context, account models.AccountID, doc models.DocumentID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM held_balances WHERE account_id = $1 AND document_id <> $2`
	var total decimal.Decimal
	if err := s.execer(ctx).QueryRowContext(ctx, query, int64(account), int64(doc)).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum held balances excluding document: %w", classify(err))
	}
	return total, nil
}

func (s *HoldStore) CountByAccount(ctx context.Context, account models.AccountID) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM held_balances WHERE account_id = $1`, int64(account)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count held balances: %w", classify(err))
	}
	return n, nil
}

// CorrespondentStore appends counter-account snapshots.
type CorrespondentStore struct {
	base
}

// Lock takes a transaction-scoped advisory lock. Outside a transaction it
// would be released immediately, so callers run it inside RunInTx.
func (s *CorrespondentStore) Lock(ctx context.Context) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, correspondentLockKey); err != nil {
		return fmt.Errorf("lock correspondent account: %w", classify(err))
	}
	return nil
}

func (s *CorrespondentStore) Current(ctx context.Context) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT amount FROM correspondent_accounts ORDER BY id DESC LIMIT 1`).Scan(&amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("current correspondent amount: %w", classify(err))
	}
	return amount, nil
}

func (s *CorrespondentStore) Append(ctx context.Context, amount decimal.Decimal, at time.Time) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO correspondent_accounts (amount, created_at) VALUES ($1, $2)`,
		amount, at,
	)
	if err != nil {
		return fmt.Errorf("insert correspondent snapshot: %w", classify(err))
	}
	return nil
}

func nullDocumentID(id models.DocumentID) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}
