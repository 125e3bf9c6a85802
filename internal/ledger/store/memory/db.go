// Package memory is an in-process implementation of the ledger stores.
//
// All tables live in one state value guarded by a single mutex. RunInTx holds
// the mutex for the whole callback and restores a snapshot when it fails, so
// a failed command leaves no partial balance, hold or document behind.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"modwallet/internal/ledger/models"
	"modwallet/internal/ledger/ports"
	"modwallet/internal/platform/outbox"
	dErrors "modwallet/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

type state struct {
	seq           int64
	accounts      map[models.AccountID]*models.Account
	identities    map[string]models.AccountID
	balances      []models.Balance
	holds         map[models.DocumentID]models.HeldBalance
	correspondent []models.CorrespondentSnapshot
	folders       map[models.FolderID]models.Folder
	documents     map[models.DocumentID]*models.Document
	numbers       map[int64]models.DocumentID
	outbox        []outbox.Entry
}

func newState() *state {
	return &state{
		accounts:   make(map[models.AccountID]*models.Account),
		identities: make(map[string]models.AccountID),
		holds:      make(map[models.DocumentID]models.HeldBalance),
		folders:    make(map[models.FolderID]models.Folder),
		documents:  make(map[models.DocumentID]*models.Document),
		numbers:    make(map[int64]models.DocumentID),
	}
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	c := &state{
		seq:           s.seq,
		accounts:      make(map[models.AccountID]*models.Account, len(s.accounts)),
		identities:    maps.Clone(s.identities),
		balances:      slices.Clone(s.balances),
		holds:         maps.Clone(s.holds),
		correspondent: slices.Clone(s.correspondent),
		folders:       maps.Clone(s.folders),
		documents:     make(map[models.DocumentID]*models.Document, len(s.documents)),
		numbers:       maps.Clone(s.numbers),
		outbox:        slices.Clone(s.outbox),
	}
	for id, a := range s.accounts {
		c.accounts[id] = copyAccount(a)
	}
	for id, d := range s.documents {
		c.documents[id] = copyDocument(d)
	}
	return c
}

func copyAccount(a *models.Account) *models.Account {
	cp := *a
	cp.Roles = slices.Clone(a.Roles)
	cp.Blocked = slices.Clone(a.Blocked)
	return &cp
}

func copyDocument(d *models.Document) *models.Document {
	cp := *d
	cp.Params = slices.Clone(d.Params)
	return &cp
}

// DB owns the in-memory tables.
type DB struct {
	mu      sync.Mutex
	st      *state
	timeout time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithTimeout bounds RunInTx when the caller's ctx has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(db *DB) {
		db.timeout = d
	}
}

// New returns an empty DB.
func New(opts ...Option) *DB {
	db := &DB{st: newState(), timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

type inTxKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(inTxKey{}).(bool)
	return v
}

// RunInTx runs fn under the DB lock and rolls back every change when fn fails.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && db.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.timeout)
		defer cancel()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	snapshot := db.st.clone()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		db.st = snapshot
		return err
	}
	return nil
}

// guard takes the DB lock for calls made outside RunInTx.
func (db *DB) guard(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

// Stores returns the store bundle backed by db.
func (db *DB) Stores() ports.Stores {
	return ports.Stores{
		Accounts:      &AccountStore{db: db},
		Balances:      &BalanceStore{db: db},
		Holds:         &HoldStore{db: db},
		Correspondent: &CorrespondentStore{db: db},
		Folders:       &FolderStore{db: db},
		Documents:     &DocumentStore{db: db},
		Outbox:        &OutboxStore{db: db},
	}
}

// OutboxStore keeps outbox entries alongside the ledger tables so they roll
// back with them.
type OutboxStore struct {
	db *DB
}

func (s *OutboxStore) Append(ctx context.Context, entry outbox.Entry) error {
	defer s.db.guard(ctx)()
	s.db.st.outbox = append(s.db.st.outbox, entry)
	return nil
}

func (s *OutboxStore) FetchPending(ctx context.Context, limit int) ([]outbox.Entry, error) {
	defer s.db.guard(ctx)()
	var out []outbox.Entry
	for _, e := range s.db.st.outbox {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *OutboxStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	defer s.db.guard(ctx)()
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.db.st.outbox {
		if _, ok := want[s.db.st.outbox[i].ID]; ok {
			ts := at
			s.db.st.outbox[i].PublishedAt = &ts
		}
	}
	return nil
}

// Events returns every appended entry in order.
func (s *OutboxStore) Events() []outbox.Entry {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return slices.Clone(s.db.st.outbox)
}
