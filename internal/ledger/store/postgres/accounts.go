package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"modwallet/internal/ledger/models"
	"modwallet/pkg/platform/sentinel"
)

// AccountStore persists accounts with their roles and blocked operations.
type AccountStore struct {
	base
}

const accountColumns = `
	a.id, a.identity_number, a.country_code, a.closed, a.created_at,
	COALESCE((SELECT array_agg(r.role ORDER BY r.role) FROM account_roles r WHERE r.account_id = a.id), '{}'),
	COALESCE((SELECT array_agg(b.operation ORDER BY b.operation) FROM blocked_operations b WHERE b.account_id = a.id), '{}')
`

func (s *AccountStore) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (identity_number, country_code, closed, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := s.execer(ctx).QueryRowContext(ctx, query, a.IdentityNumber, a.CountryCode, a.Closed, a.CreatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert account: %w", classify(err))
	}
	a.ID = models.AccountID(id)

	for _, role := range a.Roles {
		_, err := s.execer(ctx).ExecContext(ctx,
			`INSERT INTO account_roles (account_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, string(role),
		)
		if err != nil {
			return fmt.Errorf("insert account role: %w", classify(err))
		}
	}
	return nil
}

func (s *AccountStore) FindByIdentity(ctx context.Context, identityNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.identity_number = $1`
	return s.one(ctx, "find account", query, identityNumber)
}

func (s *AccountStore) LockByIdentity(ctx context.Context, identityNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.identity_number = $1 FOR UPDATE OF a`
	return s.one(ctx, "lock account", query, identityNumber)
}

func (s *AccountStore) Lock(ctx context.Context, id models.AccountID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = $1 FOR UPDATE OF a`
	return s.one(ctx, "lock account", query, int64(id))
}

func (s *AccountStore) one(ctx context.Context, op, query string, arg any) (*models.Account, error) {
	var (
		a       models.Account
		id      int64
		roles   pq.StringArray
		blocked pq.StringArray
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, arg).
		Scan(&id, &a.IdentityNumber, &a.CountryCode, &a.Closed, &a.CreatedAt, &roles, &blocked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	a.ID = models.AccountID(id)
	for _, r := range roles {
		a.Roles = append(a.Roles, models.Role(r))
	}
	for _, b := range blocked {
		a.Blocked = append(a.Blocked, models.Operation(b))
	}
	return &a, nil
}

func (s *AccountStore) Close(ctx context.Context, id models.AccountID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `UPDATE accounts SET closed = TRUE WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("close account: %w", classify(err))
	}
	return requireRow(res, "close account")
}

func (s *AccountStore) Block(ctx context.Context, id models.AccountID, op models.Operation) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO blocked_operations (account_id, operation) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		int64(id), string(op),
	)
	if err != nil {
		return false, fmt.Errorf("block operation: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("block operation rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *AccountStore) Unblock(ctx context.Context, id models.AccountID, op models.Operation) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM blocked_operations WHERE account_id = $1 AND operation = $2`,
		int64(id), string(op),
	)
	if err != nil {
		return fmt.Errorf("unblock operation: %w", classify(err))
	}
	return requireRow(res, "unblock operation")
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
