// Package balance computes account balances from the append-only snapshots
// and holds, and appends new snapshots when money moves.
//
// Callers that read a balance in order to move money must hold the account's
// row lock (ports.AccountStore.Lock) for the surrounding transaction.
package balance

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"modwallet/internal/ledger/models"
	"modwallet/internal/ledger/ports"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/platform/sentinel"
)

// Ledger reads and writes balances, holds and the correspondent account.
type Ledger struct {
	balances      ports.BalanceStore
	holds         ports.HoldStore
	correspondent ports.CorrespondentStore
}

// New builds a Ledger over the balance, hold and correspondent stores.
func New(stores ports.Stores) (*Ledger, error) {
	if stores.Balances == nil {
		return nil, errors.New("balance store is required")
	}
	if stores.Holds == nil {
		return nil, errors.New("hold store is required")
	}
	if stores.Correspondent == nil {
		return nil, errors.New("correspondent store is required")
	}
	return &Ledger{
		balances:      stores.Balances,
		holds:         stores.Holds,
		correspondent: stores.Correspondent,
	}, nil
}

// Current returns the latest snapshot amount, zero when none exists.
func (l *Ledger) Current(ctx context.Context, account models.AccountID) (decimal.Decimal, error) {
	current, err := l.balances.Current(ctx, account)
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read current balance")
	}
	return current, nil
}

// HeldTotal sums every active hold on the account.
func (l *Ledger) HeldTotal(ctx context.Context, account models.AccountID) (decimal.Decimal, error) {
	held, err := l.holds.TotalByAccount(ctx, account)
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read held balance")
	}
	return models.Round2(held), nil
}

// HeldTotalExcluding sums the account's holds except the one owned by doc.
func (l *Ledger) HeldTotalExcluding(ctx context.Context, account models.AccountID, doc models.DocumentID) (decimal.Decimal, error) {
	held, err := l.holds.TotalByAccountExcluding(ctx, account, doc)
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read held balance")
	}
	return models.Round2(held), nil
}

// Summary returns current, held and available amounts.
func (l *Ledger) Summary(ctx context.Context, account models.AccountID) (models.BalanceSummary, error) {
	current, err := l.Current(ctx, account)
	if err != nil {
		return models.BalanceSummary{}, err
	}
	held, err := l.HeldTotal(ctx, account)
	if err != nil {
		return models.BalanceSummary{}, err
	}
	return models.BalanceSummary{
		Current:   current,
		Held:      held,
		Available: models.Available(current, held),
	}, nil
}

// Available is round2(current - held total).
func (l *Ledger) Available(ctx context.Context, account models.AccountID) (decimal.Decimal, error) {
	s, err := l.Summary(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Available, nil
}

// Spendable is the execution-time view of an account: the current balance
// and the available balance ignoring doc's own hold.
func (l *Ledger) Spendable(ctx context.Context, account models.AccountID, doc models.DocumentID) (current, available decimal.Decimal, err error) {
	current, err = l.Current(ctx, account)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	held, err := l.HeldTotalExcluding(ctx, account, doc)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return current, models.Available(current, held), nil
}

// Credit appends current+amount and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, account models.AccountID, doc models.DocumentID, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	return l.move(ctx, account, doc, amount, at)
}

// Debit appends current-amount and returns the new balance.
func (l *Ledger) Debit(ctx context.Context, account models.AccountID, doc models.DocumentID, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	return l.move(ctx, account, doc, amount.Neg(), at)
}

func (l *Ledger) move(ctx context.Context, account models.AccountID, doc models.DocumentID, delta decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	current, err := l.Current(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}
	next := current.Add(delta)
	if err := l.balances.Append(ctx, &models.Balance{
		AccountID:  account,
		DocumentID: doc,
		Amount:     next,
		CreatedAt:  at,
	}); err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append balance")
	}
	return next, nil
}

// Hold reserves amount on account for doc.
func (l *Ledger) Hold(ctx context.Context, account models.AccountID, doc models.DocumentID, amount decimal.Decimal, at time.Time) error {
	err := l.holds.Create(ctx, &models.HeldBalance{
		AccountID:  account,
		DocumentID: doc,
		Amount:     amount,
		CreatedAt:  at,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "document already holds funds")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create hold")
	}
	return nil
}

// OwnHold returns doc's hold, or nil when it has none.
func (l *Ledger) OwnHold(ctx context.Context, doc models.DocumentID) (*models.HeldBalance, error) {
	h, err := l.holds.FindByDocument(ctx, doc)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read hold")
	}
	return h, nil
}

// Release destroys doc's hold and reports whether one existed.
func (l *Ledger) Release(ctx context.Context, doc models.DocumentID) (bool, error) {
	if err := l.holds.DeleteByDocument(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to release hold")
	}
	return true, nil
}
