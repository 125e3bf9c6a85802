package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultHistoryLimit applies when a history query carries no positive limit.
const DefaultHistoryLimit = 10

// HistoryQuery filters an account's executed documents. The date window is
// applied only when both ends are set; both ends are inclusive calendar days.
type HistoryQuery struct {
	Limit     int
	StartDate *time.Time
	EndDate   *time.Time
}

// HasWindow reports whether both window ends are set.
func (q HistoryQuery) HasWindow() bool {
	return q.StartDate != nil && q.EndDate != nil
}

// Window returns the half-open [from, to) range covering both end days.
func (q HistoryQuery) Window() (time.Time, time.Time) {
	from := truncateDay(*q.StartDate)
	to := truncateDay(*q.EndDate).AddDate(0, 0, 1)
	return from, to
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HistoryEntry is one executed document as seen from an account.
type HistoryEntry struct {
	DocumentNumber int64
	Amount         decimal.Decimal
	Message        string
	ExecutedAt     time.Time
}

// EntryFor projects an executed document onto account. Withdrawals and
// outgoing transfers are negated.
func EntryFor(account AccountID, doc *Document) HistoryEntry {
	sender := doc.SourceAccountID != nil && *doc.SourceAccountID == account
	amount := doc.Amount
	if doc.Type == DocumentTypeWithdrawal || (doc.Type == DocumentTypeTransfer && sender) {
		amount = amount.Neg()
	}
	entry := HistoryEntry{
		DocumentNumber: doc.Number,
		Amount:         amount,
		Message:        MessageFor(doc.Params, sender),
	}
	if doc.ExecutedAt != nil {
		entry.ExecutedAt = *doc.ExecutedAt
	}
	return entry
}

// DateKey formats t as the UTC calendar day used by history dates.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
