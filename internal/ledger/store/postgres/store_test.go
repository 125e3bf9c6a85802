package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"modwallet/internal/ledger/models"
	"modwallet/internal/ledger/ports"
	"modwallet/pkg/platform/sentinel"
	txcontext "modwallet/pkg/platform/tx"
)

type StoreSuite struct {
	suite.Suite
	mock   sqlmock.Sqlmock
	stores ports.Stores
	ctx    context.Context
	now    time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.mock = mock
	s.stores = Stores(db)
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

var documentRowColumns = []string{
	"id", "document_number", "type", "status", "amount", "source_account_id", "target_account_id",
	"folder_id", "params", "reason", "created_at", "executed_at",
}

func (s *StoreSuite) TestAccountCreateInsertsRoles() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs("acc-1", "KZ", false, s.now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO account_roles`)).
		WithArgs(int64(7), "agent").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO account_roles`)).
		WithArgs(int64(7), "individual").
		WillReturnResult(sqlmock.NewResult(0, 1))

	acc := &models.Account{
		IdentityNumber: "acc-1",
		CountryCode:    "KZ",
		Roles:          []models.Role{models.RoleAgent, models.RoleIndividual},
		CreatedAt:      s.now,
	}
	s.Require().NoError(s.stores.Accounts.Create(s.ctx, acc))
	s.Equal(models.AccountID(7), acc.ID)
}

func (s *StoreSuite) TestAccountCreateDuplicateIsAlreadyUsed() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.stores.Accounts.Create(s.ctx, &models.Account{IdentityNumber: "acc-1", CountryCode: "KZ", CreatedAt: s.now})
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *StoreSuite) TestAccountLockUsesRowLock() {
	s.mock.ExpectQuery(`FROM accounts a WHERE a.id = \$1 FOR UPDATE OF a`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identity_number", "country_code", "closed", "created_at", "roles", "blocked"}).
			AddRow(3, "acc-3", "KZ", false, s.now, "{agent,individual}", "{debit}"))

	acc, err := s.stores.Accounts.Lock(s.ctx, 3)
	s.Require().NoError(err)
	s.Equal("acc-3", acc.IdentityNumber)
	s.Equal([]models.Role{models.RoleAgent, models.RoleIndividual}, acc.Roles)
	s.Equal([]models.Operation{models.OperationDebit}, acc.Blocked)
}

func (s *StoreSuite) TestAccountNotFound() {
	s.mock.ExpectQuery(`FROM accounts a WHERE a.identity_number = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.stores.Accounts.FindByIdentity(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestBlockReportsWhetherARowWasAdded() {
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO blocked_operations`)).
		WithArgs(int64(1), "debit").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO blocked_operations`)).
		WithArgs(int64(1), "debit").
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := s.stores.Accounts.Block(s.ctx, 1, models.OperationDebit)
	s.Require().NoError(err)
	s.True(added)

	added, err = s.stores.Accounts.Block(s.ctx, 1, models.OperationDebit)
	s.Require().NoError(err)
	s.False(added)
}

func (s *StoreSuite) TestUnblockMissingRow() {
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM blocked_operations`)).
		WithArgs(int64(1), "credit").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.stores.Accounts.Unblock(s.ctx, 1, models.OperationCredit)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestBalanceCurrentDefaultsToZero() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT amount FROM balances`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"amount"}))

	amount, err := s.stores.Balances.Current(s.ctx, 5)
	s.Require().NoError(err)
	s.True(amount.IsZero())
}

func (s *StoreSuite) TestBalanceAppendWithoutDocument() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO balances`)).
		WithArgs(int64(5), nil, sqlmock.AnyArg(), s.now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	b := &models.Balance{AccountID: 5, Amount: decimal.RequireFromString("10.50"), CreatedAt: s.now}
	s.Require().NoError(s.stores.Balances.Append(s.ctx, b))
	s.Equal(int64(11), b.ID)
}

func (s *StoreSuite) TestHeldTotalExcludingDocument() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`document_id <> $2`)).
		WithArgs(int64(5), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("120.25"))

	total, err := s.stores.Holds.TotalByAccountExcluding(s.ctx, 5, 9)
	s.Require().NoError(err)
	s.True(total.Equal(decimal.RequireFromString("120.25")))
}

func (s *StoreSuite) TestCorrespondentLockRunsInsideTransaction() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(correspondentLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT amount FROM correspondent_accounts`)).
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow("-100.00"))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO correspondent_accounts`)).
		WithArgs(sqlmock.AnyArg(), s.now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	s.Require().NoError(err)
	ctx := txcontext.WithTx(s.ctx, tx)
	store := Stores(db).Correspondent

	s.Require().NoError(store.Lock(ctx))
	current, err := store.Current(ctx)
	s.Require().NoError(err)
	s.True(current.Equal(decimal.NewFromInt(-100)))
	s.Require().NoError(store.Append(ctx, current.Sub(decimal.NewFromInt(5)), s.now))
	s.Require().NoError(tx.Commit())
	s.NoError(mock.ExpectationsWereMet())
}

func (s *StoreSuite) TestFolderGetOrCreate() {
	s.mock.ExpectQuery(`(?s)INSERT INTO folders .* ON CONFLICT \(folder_id\) DO UPDATE`).
		WithArgs(int64(20), s.now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "folder_id", "created_at"}).AddRow(1, 20, s.now))

	f, err := s.stores.Folders.GetOrCreate(s.ctx, 20, s.now)
	s.Require().NoError(err)
	s.Equal(models.FolderID(20), f.FolderID)
}

func (s *StoreSuite) TestDocumentCreateDefaultsParams() {
	target := models.AccountID(4)
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO documents`)).
		WithArgs(int64(100), "emission", "created", sqlmock.AnyArg(), nil, int64(4), int64(20), []byte(`{}`), "", s.now, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(55))

	d := &models.Document{
		Number:          100,
		Type:            models.DocumentTypeEmission,
		Status:          models.StatusCreated,
		Amount:          decimal.NewFromInt(10),
		TargetAccountID: &target,
		FolderID:        20,
		CreatedAt:       s.now,
	}
	s.Require().NoError(s.stores.Documents.Create(s.ctx, d))
	s.Equal(models.DocumentID(55), d.ID)
}

func (s *StoreSuite) TestDocumentLockByNumber() {
	executed := s.now.Add(time.Hour)
	s.mock.ExpectQuery(`FROM documents WHERE document_number = \$1 FOR UPDATE`).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows(documentRowColumns).
			AddRow(55, 100, "transfer", "executed", "25.00", 1, 2, 20, []byte(`{"id":100}`), "", s.now, executed))

	d, err := s.stores.Documents.LockByNumber(s.ctx, 100)
	s.Require().NoError(err)
	s.Equal(models.DocumentTypeTransfer, d.Type)
	s.Equal(models.StatusExecuted, d.Status)
	s.Require().NotNil(d.SourceAccountID)
	s.Equal(models.AccountID(1), *d.SourceAccountID)
	s.Require().NotNil(d.ExecutedAt)
	s.True(d.ExecutedAt.Equal(executed))
}

func (s *StoreSuite) TestDocumentLockByNumberMissing() {
	s.mock.ExpectQuery(`FROM documents WHERE document_number = \$1 FOR UPDATE`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	_, err := s.stores.Documents.LockByNumber(s.ctx, 404)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestHistoryBuildsWindowAndLimit() {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(`executed_at >= \$2 AND executed_at < \$3 ORDER BY id DESC LIMIT \$4`).
		WithArgs(int64(1), start, end.AddDate(0, 0, 1), 5).
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	docs, err := s.stores.Documents.History(s.ctx, 1, models.HistoryQuery{Limit: 5, StartDate: &start, EndDate: &end})
	s.Require().NoError(err)
	s.Empty(docs)
}

func (s *StoreSuite) TestHistoryDatesYearRange() {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT to_char`)).
		WithArgs(int64(1), from, from.AddDate(1, 0, 0)).
		WillReturnRows(sqlmock.NewRows([]string{"day"}).AddRow("2026-01-05").AddRow("2026-02-10"))

	dates, err := s.stores.Documents.HistoryDates(s.ctx, 1, 2026)
	s.Require().NoError(err)
	s.Equal([]string{"2026-01-05", "2026-02-10"}, dates)
}

func (s *StoreSuite) TestUpdateStatusDeadlockIsUnavailable() {
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET status`)).
		WithArgs(int64(55), "executed", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "40P01"})

	at := s.now
	err := s.stores.Documents.UpdateStatus(s.ctx, 55, models.StatusExecuted, &at)
	s.Require().ErrorIs(err, sentinel.ErrUnavailable)
}

func TestClassify(t *testing.T) {
	plain := errors.New("boom")
	if got := classify(plain); got != plain {
		t.Fatalf("expected non-pq errors to pass through")
	}
	if !errors.Is(classify(&pq.Error{Code: "55P03"}), sentinel.ErrUnavailable) {
		t.Fatalf("expected lock_not_available to be unavailable")
	}
}
