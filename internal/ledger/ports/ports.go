// Package ports declares the storage and cache boundaries of the ledger.
//
// Stores are pure I/O: they return pkg/platform/sentinel errors and leave
// business rules to the services. Every mutating call is expected to run
// inside StoreTx.RunInTx, which carries the transaction through ctx.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks HistoryDatesCache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"modwallet/internal/ledger/models"
	"modwallet/internal/platform/outbox"
)

// AccountStore persists the account registry.
type AccountStore interface {
	// Create assigns a.ID. Returns sentinel.ErrAlreadyUsed for a taken identity number.
	Create(ctx context.Context, a *models.Account) error
	// FindByIdentity loads roles and blocked operations with the account.
	FindByIdentity(ctx context.Context, identityNumber string) (*models.Account, error)
	// LockByIdentity is FindByIdentity holding a row lock until the transaction ends.
	LockByIdentity(ctx context.Context, identityNumber string) (*models.Account, error)
	// Lock row-locks an account by internal id.
	Lock(ctx context.Context, id models.AccountID) (*models.Account, error)
	Close(ctx context.Context, id models.AccountID) error
	// Block returns false when the operation was already blocked.
	Block(ctx context.Context, id models.AccountID, op models.Operation) (bool, error)
	// Unblock returns sentinel.ErrNotFound when the operation is not blocked.
	Unblock(ctx context.Context, id models.AccountID, op models.Operation) error
}

// BalanceStore holds the append-only balance snapshots.
type BalanceStore interface {
	// Current returns the amount of the latest snapshot, or zero.
	Current(ctx context.Context, account models.AccountID) (decimal.Decimal, error)
	Append(ctx context.Context, b *models.Balance) error
	ListByAccount(ctx context.Context, account models.AccountID) ([]models.Balance, error)
}

// HoldStore holds per-document reservations.
type HoldStore interface {
	Create(ctx context.Context, h *models.HeldBalance) error
	FindByDocument(ctx context.Context, doc models.DocumentID) (*models.HeldBalance, error)
	// DeleteByDocument returns sentinel.ErrNotFound when no hold exists.
	DeleteByDocument(ctx context.Context, doc models.DocumentID) error
	TotalByAccount(ctx context.Context, account models.AccountID) (decimal.Decimal, error)
	TotalByAccountExcluding(ctx context.Context, account models.AccountID, doc models.DocumentID) (decimal.Decimal, error)
	CountByAccount(ctx context.Context, account models.AccountID) (int, error)
}

// CorrespondentStore holds the system counter-account snapshots.
type CorrespondentStore interface {
	// Lock serializes writers for the rest of the transaction.
	Lock(ctx context.Context) error
	// Current returns the latest snapshot amount, or zero.
	Current(ctx context.Context) (decimal.Decimal, error)
	Append(ctx context.Context, amount decimal.Decimal, at time.Time) error
}

// FolderStore groups documents.
type FolderStore interface {
	GetOrCreate(ctx context.Context, id models.FolderID, now time.Time) (*models.Folder, error)
	FindByID(ctx context.Context, id models.FolderID) (*models.Folder, error)
}

// DocumentStore persists documents and serves the history read models.
type DocumentStore interface {
	// Create assigns d.ID. Returns sentinel.ErrAlreadyUsed for a taken number.
	Create(ctx context.Context, d *models.Document) error
	ExistsByNumber(ctx context.Context, number int64) (bool, error)
	FindByNumber(ctx context.Context, number int64) (*models.Document, error)
	LockByNumber(ctx context.Context, number int64) (*models.Document, error)
	// LockByFolder returns the folder's documents in id order, row-locked.
	LockByFolder(ctx context.Context, folder models.FolderID) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, id models.DocumentID, status models.Status, executedAt *time.Time) error
	// History returns executed documents touching the account, newest first.
	History(ctx context.Context, account models.AccountID, q models.HistoryQuery) ([]*models.Document, error)
	// HistoryDates returns distinct UTC days with executed activity in year, ascending.
	HistoryDates(ctx context.Context, account models.AccountID, year int) ([]string, error)
}

// Outbox appends events inside the current transaction.
type Outbox interface {
	Append(ctx context.Context, entry outbox.Entry) error
}

// Stores bundles every store the services use.
type Stores struct {
	Accounts      AccountStore
	Balances      BalanceStore
	Holds         HoldStore
	Correspondent CorrespondentStore
	Folders       FolderStore
	Documents     DocumentStore
	Outbox        Outbox
}

// StoreTx provides the transactional boundary. Implementations may wrap a
// database transaction or, in memory, a coarse lock with rollback.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoGeneration marks a lookup that never reached the cache. Set ignores it.
const NoGeneration int64 = -1

// HistoryDatesLookup is one cache read. Generation is the account's cache
// generation at read time; Invalidate advances it.
type HistoryDatesLookup struct {
	Dates      []string
	Hit        bool
	Generation int64
}

// HistoryDatesCache memoizes history dates per account and year. Set stores
// only while the account is still at the generation returned by the Get that
// preceded the store read, so a fill computed before an invalidation is
// dropped.
type HistoryDatesCache interface {
	Get(ctx context.Context, account string, year int) (HistoryDatesLookup, error)
	Set(ctx context.Context, account string, year int, dates []string, generation int64) error
	Invalidate(ctx context.Context, accounts ...string) error
}
