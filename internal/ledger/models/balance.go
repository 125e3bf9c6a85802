package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a NUMERIC(18,2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999999999.99")

// Round2 rounds a money amount to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Balance is an immutable snapshot of an account's resulting balance after a
// money movement. Amount is absolute, never a delta.
type Balance struct {
	ID         int64
	AccountID  AccountID
	DocumentID DocumentID
	Amount     decimal.Decimal
	CreatedAt  time.Time
}

// HeldBalance reserves funds for a created document until it executes or is
// canceled. A document owns at most one hold.
type HeldBalance struct {
	ID         int64
	AccountID  AccountID
	DocumentID DocumentID
	Amount     decimal.Decimal
	CreatedAt  time.Time
}

// CorrespondentSnapshot is one append-only row of the system counter-account.
// Amount is never positive.
type CorrespondentSnapshot struct {
	ID        int64
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// BalanceSummary is the read model returned by balance queries.
type BalanceSummary struct {
	Current   decimal.Decimal
	Held      decimal.Decimal
	Available decimal.Decimal
}

// Available computes round2(current - held).
func Available(current, held decimal.Decimal) decimal.Decimal {
	return Round2(current.Sub(held))
}
