package balance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	dErrors "modwallet/pkg/domain-errors"
)

// CorrespondentCurrent returns the counter-account's latest amount.
func (l *Ledger) CorrespondentCurrent(ctx context.Context) (decimal.Decimal, error) {
	current, err := l.correspondent.Current(ctx)
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read correspondent account")
	}
	return current, nil
}

// Issue records an emission: the counter-account moves to current-amount.
func (l *Ledger) Issue(ctx context.Context, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	current, err := l.lockCorrespondent(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return l.appendCorrespondent(ctx, current.Sub(amount), at)
}

// Redeem records a withdrawal: the counter-account moves to -(|current|-amount).
// Redeeming more than was ever issued would make it positive and is refused.
func (l *Ledger) Redeem(ctx context.Context, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	current, err := l.lockCorrespondent(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	next := current.Abs().Sub(amount).Neg()
	if next.IsPositive() {
		return decimal.Zero, dErrors.New(dErrors.CodeInvariantViolation, "correspondent account cannot become positive")
	}
	return l.appendCorrespondent(ctx, next, at)
}

func (l *Ledger) lockCorrespondent(ctx context.Context) (decimal.Decimal, error) {
	if err := l.correspondent.Lock(ctx); err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock correspondent account")
	}
	return l.CorrespondentCurrent(ctx)
}

func (l *Ledger) appendCorrespondent(ctx context.Context, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if err := l.correspondent.Append(ctx, amount, at); err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append correspondent snapshot")
	}
	return amount, nil
}
