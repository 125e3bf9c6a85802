package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"modwallet/internal/ledger/models"
	"modwallet/pkg/platform/sentinel"
)

// AccountStore implements ports.AccountStore.
type AccountStore struct {
	db *DB
}

func (s *AccountStore) Create(ctx context.Context, a *models.Account) error {
	defer s.db.guard(ctx)()
	st := s.db.st
	if _, taken := st.identities[a.IdentityNumber]; taken {
		return sentinel.ErrAlreadyUsed
	}
	a.ID = models.AccountID(st.next())
	st.accounts[a.ID] = copyAccount(a)
	st.identities[a.IdentityNumber] = a.ID
	return nil
}

func (s *AccountStore) FindByIdentity(ctx context.Context, identityNumber string) (*models.Account, error) {
	defer s.db.guard(ctx)()
	id, ok := s.db.st.identities[identityNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyAccount(s.db.st.accounts[id]), nil
}

// LockByIdentity is FindByIdentity; the DB lock already serializes transactions.
func (s *AccountStore) LockByIdentity(ctx context.Context, identityNumber string) (*models.Account, error) {
	return s.FindByIdentity(ctx, identityNumber)
}

func (s *AccountStore) Lock(ctx context.Context, id models.AccountID) (*models.Account, error) {
	defer s.db.guard(ctx)()
	a, ok := s.db.st.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyAccount(a), nil
}

func (s *AccountStore) Close(ctx context.Context, id models.AccountID) error {
	defer s.db.guard(ctx)()
	a, ok := s.db.st.accounts[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.Closed = true
	return nil
}

func (s *AccountStore) Block(ctx context.Context, id models.AccountID, op models.Operation) (bool, error) {
	defer s.db.guard(ctx)()
	a, ok := s.db.st.accounts[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if slices.Contains(a.Blocked, op) {
		return false, nil
	}
	a.Blocked = append(a.Blocked, op)
	return true, nil
}

func (s *AccountStore) Unblock(ctx context.Context, id models.AccountID, op models.Operation) error {
	defer s.db.guard(ctx)()
	a, ok := s.db.st.accounts[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	i := slices.Index(a.Blocked, op)
	if i < 0 {
		return sentinel.ErrNotFound
	}
	a.Blocked = slices.Delete(a.Blocked, i, i+1)
	return nil
}

// BalanceStore implements ports.BalanceStore.
type BalanceStore struct {
	db *DB
}

func (s *BalanceStore) Current(ctx context.Context, account models.AccountID) (decimal.Decimal, error) {
	defer s.db.guard(ctx)()
	rows := s.db.st.balances
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].AccountID == account {
			return rows[i].Amount, nil
		}
	}
	return decimal.Zero, nil
}

func (s *BalanceStore) Append(ctx context.Context, b *models.Balance) error {
	defer s.db.guard(ctx)()
	b.ID = s.db.st.next()
	s.db.st.balances = append(s.db.st.balances, *b)
	return nil
}

func (s *BalanceStore) ListByAccount(ctx context.Context, account models.AccountID) ([]models.Balance, error) {
	defer s.db.guard(ctx)()
	var out []models.Balance
	for _, b := range s.db.st.balances {
		if b.AccountID == account {
			out = append(out, b)
		}
	}
	return out, nil
}

// HoldStore implements ports.HoldStore.
type HoldStore struct {
	db *DB
}

func (s *HoldStore) Create(ctx context.Context, h *models.HeldBalance) error {
	defer s.db.guard(ctx)()
	if _, exists := s.db.st.holds[h.DocumentID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	h.ID = s.db.st.next()
	s.db.st.holds[h.DocumentID] = *h
	return nil
}

func (s *HoldStore) FindByDocument(ctx context.Context, doc models.DocumentID) (*models.HeldBalance, error) {
	defer s.db.guard(ctx)()
	h, ok := s.db.st.holds[doc]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &h, nil
}

func (s *HoldStore) DeleteByDocument(ctx context.Context, doc models.DocumentID) error {
	defer s.db.guard(ctx)()
	if _, ok := s.db.st.holds[doc]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.db.st.holds, doc)
	return nil
}

func (s *HoldStore) TotalByAccount(ctx context.Context, account models.AccountID) (decimal.Decimal, error) {
	return s.TotalByAccountExcluding(ctx, account, 0)
}

func (s *HoldStore) TotalByAccountExcluding(ctx context.Context, account models.AccountID, doc models.DocumentID) (decimal.Decimal, error) {
	defer s.db.guard(ctx)()
	total := decimal.Zero
	for _, h := range s.db.st.holds {
		if h.AccountID == account && h.DocumentID != doc {
			total = total.Add(h.Amount)
		}
	}
	return total, nil
}

func (s *HoldStore) CountByAccount(ctx context.Context, account models.AccountID) (int, error) {
	defer s.db.guard(ctx)()
	n := 0
	for _, h := range s.db.st.holds {
		if h.AccountID == account {
			n++
		}
	}
	return n, nil
}

// CorrespondentStore implements ports.CorrespondentStore.
type CorrespondentStore struct {
	db *DB
}

// Lock is a no-op; the DB lock already serializes transactions.
func (s *CorrespondentStore) Lock(context.Context) error { return nil }

func (s *CorrespondentStore) Current(ctx context.Context) (decimal.Decimal, error) {
	defer s.db.guard(ctx)()
	rows := s.db.st.correspondent
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return rows[len(rows)-1].Amount, nil
}

func (s *CorrespondentStore) Append(ctx context.Context, amount decimal.Decimal, at time.Time) error {
	defer s.db.guard(ctx)()
	s.db.st.correspondent = append(s.db.st.correspondent, models.CorrespondentSnapshot{
		ID:        s.db.st.next(),
		Amount:    amount,
		CreatedAt: at,
	})
	return nil
}

// FolderStore implements ports.FolderStore.
type FolderStore struct {
	db *DB
}

func (s *FolderStore) GetOrCreate(ctx context.Context, id models.FolderID, now time.Time) (*models.Folder, error) {
	defer s.db.guard(ctx)()
	if f, ok := s.db.st.folders[id]; ok {
		return &f, nil
	}
	f := models.Folder{ID: s.db.st.next(), FolderID: id, CreatedAt: now}
	s.db.st.folders[id] = f
	return &f, nil
}

func (s *FolderStore) FindByID(ctx context.Context, id models.FolderID) (*models.Folder, error) {
	defer s.db.guard(ctx)()
	f, ok := s.db.st.folders[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &f, nil
}

// DocumentStore implements ports.DocumentStore.
type DocumentStore struct {
	db *DB
}

func (s *DocumentStore) Create(ctx context.Context, d *models.Document) error {
	defer s.db.guard(ctx)()
	st := s.db.st
	if _, taken := st.numbers[d.Number]; taken {
		return sentinel.ErrAlreadyUsed
	}
	d.ID = models.DocumentID(st.next())
	st.documents[d.ID] = copyDocument(d)
	st.numbers[d.Number] = d.ID
	return nil
}

func (s *DocumentStore) ExistsByNumber(ctx context.Context, number int64) (bool, error) {
	defer s.db.guard(ctx)()
	_, ok := s.db.st.numbers[number]
	return ok, nil
}

func (s *DocumentStore) FindByNumber(ctx context.Context, number int64) (*models.Document, error) {
	defer s.db.guard(ctx)()
	id, ok := s.db.st.numbers[number]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyDocument(s.db.st.documents[id]), nil
}

func (s *DocumentStore) LockByNumber(ctx context.Context, number int64) (*models.Document, error) {
	return s.FindByNumber(ctx, number)
}

func (s *DocumentStore) LockByFolder(ctx context.Context, folder models.FolderID) ([]*models.Document, error) {
	defer s.db.guard(ctx)()
	var out []*models.Document
	for _, d := range s.db.st.documents {
		if d.FolderID == folder {
			out = append(out, copyDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *DocumentStore) UpdateStatus(ctx context.Context, id models.DocumentID, status models.Status, executedAt *time.Time) error {
	defer s.db.guard(ctx)()
	d, ok := s.db.st.documents[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	d.Status = status
	if executedAt != nil {
		t := *executedAt
		d.ExecutedAt = &t
	}
	return nil
}

func (s *DocumentStore) executedFor(account models.AccountID) []*models.Document {
	var out []*models.Document
	for _, d := range s.db.st.documents {
		if d.Status != models.StatusExecuted {
			continue
		}
		if touches(d, account) {
			out = append(out, d)
		}
	}
	return out
}

func touches(d *models.Document, account models.AccountID) bool {
	return (d.SourceAccountID != nil && *d.SourceAccountID == account) ||
		(d.TargetAccountID != nil && *d.TargetAccountID == account)
}

func (s *DocumentStore) History(ctx context.Context, account models.AccountID, q models.HistoryQuery) ([]*models.Document, error) {
	defer s.db.guard(ctx)()
	docs := s.executedFor(account)
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID > docs[j].ID })

	var out []*models.Document
	for _, d := range docs {
		if q.HasWindow() {
			from, to := q.Window()
			if d.ExecutedAt == nil || d.ExecutedAt.Before(from) || !d.ExecutedAt.Before(to) {
				continue
			}
		}
		out = append(out, copyDocument(d))
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *DocumentStore) HistoryDates(ctx context.Context, account models.AccountID, year int) ([]string, error) {
	defer s.db.guard(ctx)()
	seen := make(map[string]struct{})
	for _, d := range s.executedFor(account) {
		if d.ExecutedAt == nil || d.ExecutedAt.UTC().Year() != year {
			continue
		}
		seen[models.DateKey(*d.ExecutedAt)] = struct{}{}
	}
	dates := make([]string, 0, len(seen))
	for k := range seen {
		dates = append(dates, k)
	}
	sort.Strings(dates)
	return dates, nil
}
