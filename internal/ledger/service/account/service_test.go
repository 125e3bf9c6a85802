package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"modwallet/internal/ledger/models"
	"modwallet/internal/ledger/ports"
	"modwallet/internal/ledger/ports/mocks"
	"modwallet/internal/ledger/service/document"
	"modwallet/internal/ledger/store/memory"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/requestcontext"
)

type AccountSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	cache     *mocks.MockHistoryDatesCache
	db        *memory.DB
	stores    ports.Stores
	service   *Service
	documents *document.Service
	ctx       context.Context
	now       time.Time
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}

func (s *AccountSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.cache = mocks.NewMockHistoryDatesCache(s.ctrl)
	s.db = memory.New()
	s.stores = s.db.Stores()

	var err error
	s.service, err = New(s.db, s.stores, WithHistoryDatesCache(s.cache))
	s.Require().NoError(err)
	s.documents, err = document.New(s.db, s.stores)
	s.Require().NoError(err)

	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *AccountSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AccountSuite) requireFailure(err error, f models.Failure) {
	s.Require().Error(err)
	got, ok := models.AsFailure(err)
	s.Require().True(ok, "expected failure %s, got %v", f, err)
	s.Equal(f, got)
}

func (s *AccountSuite) create(identity string, roles ...string) *models.Account {
	acc, err := s.service.CreateAccount(s.ctx, identity, "KZ", roles)
	s.Require().NoError(err)
	return acc
}

func (s *AccountSuite) load(identity string) *models.Account {
	acc, err := s.stores.Accounts.FindByIdentity(s.ctx, identity)
	s.Require().NoError(err)
	return acc
}

// =============================================================================
// CreateAccount
// =============================================================================

func (s *AccountSuite) TestCreateAccount() {
	s.Run("normalizes and stores roles", func() {
		acc, err := s.service.CreateAccount(s.ctx, "acc-1", "KZ", []string{" Agent ", "individual", "agent"})
		s.Require().NoError(err)
		s.ElementsMatch([]models.Role{models.RoleAgent, models.RoleIndividual}, acc.Roles)
		s.True(acc.CreatedAt.Equal(s.now))
	})

	s.Run("duplicate identity is a validation error", func() {
		_, err := s.service.CreateAccount(s.ctx, "acc-1", "KZ", []string{"agent"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing roles", func() {
		_, err := s.service.CreateAccount(s.ctx, "acc-2", "KZ", nil)
		s.requireFailure(err, models.ErrInvalidRequest)
	})

	s.Run("unknown role", func() {
		_, err := s.service.CreateAccount(s.ctx, "acc-3", "KZ", []string{"wizard"})
		s.requireFailure(err, models.ErrInvalidAccountType)
	})

	s.Run("missing identity number", func() {
		_, err := s.service.CreateAccount(s.ctx, "", "KZ", []string{"agent"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// CloseAccount
// =============================================================================

func (s *AccountSuite) TestCloseAccount() {
	s.create("acc-1", "individual")

	s.Run("closes the account", func() {
		s.Require().NoError(s.service.CloseAccount(s.ctx, "acc-1"))
		s.True(s.load("acc-1").Closed)
	})

	s.Run("closing twice succeeds", func() {
		s.Require().NoError(s.service.CloseAccount(s.ctx, "acc-1"))
	})

	s.Run("closed account rejects blocking", func() {
		err := s.service.BlockOperations(s.ctx, "acc-1", []string{"debit"})
		s.requireFailure(err, models.ErrAccountClosed)
	})

	s.Run("unknown account", func() {
		err := s.service.CloseAccount(s.ctx, "missing")
		s.requireFailure(err, models.ErrAccountNotFound)
	})
}

// =============================================================================
// Block / Unblock
// =============================================================================

func (s *AccountSuite) TestBlockOperations() {
	s.create("acc-1", "individual")

	s.Run("blocking is idempotent", func() {
		s.Require().NoError(s.service.BlockOperations(s.ctx, "acc-1", []string{"debit"}))
		s.Require().NoError(s.service.BlockOperations(s.ctx, "acc-1", []string{"debit", "DEBIT"}))
		s.Equal([]models.Operation{models.OperationDebit}, s.load("acc-1").Blocked)
	})

	s.Run("nil list is an invalid request", func() {
		err := s.service.BlockOperations(s.ctx, "acc-1", nil)
		s.requireFailure(err, models.ErrInvalidRequest)
	})

	s.Run("unknown operation", func() {
		err := s.service.BlockOperations(s.ctx, "acc-1", []string{"refund"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AccountSuite) TestUnblockOperations() {
	s.create("acc-1", "individual")
	s.Require().NoError(s.service.BlockOperations(s.ctx, "acc-1", []string{"debit"}))

	s.Run("operation that is not blocked fails and changes nothing", func() {
		err := s.service.UnblockOperations(s.ctx, "acc-1", []string{"debit", "credit"})
		s.requireFailure(err, models.ErrAccountNotBlocked)
		s.Equal([]models.Operation{models.OperationDebit}, s.load("acc-1").Blocked)
	})

	s.Run("unblocks a blocked operation", func() {
		s.Require().NoError(s.service.UnblockOperations(s.ctx, "acc-1", []string{"debit"}))
		s.Empty(s.load("acc-1").Blocked)
	})
}

// =============================================================================
// Queries
// =============================================================================

func (s *AccountSuite) TestGetBalance() {
	acc := s.create("acc-1", "individual")
	s.Require().NoError(s.stores.Balances.Append(s.ctx, &models.Balance{
		AccountID: acc.ID,
		Amount:    decimal.RequireFromString("150.25"),
		CreatedAt: s.now,
	}))

	s.Run("returns the summary", func() {
		sum, err := s.service.GetBalance(s.ctx, "acc-1")
		s.Require().NoError(err)
		s.True(sum.Current.Equal(decimal.RequireFromString("150.25")))
		s.True(sum.Available.Equal(sum.Current))
	})

	s.Run("closed account is rejected", func() {
		s.Require().NoError(s.service.CloseAccount(s.ctx, "acc-1"))
		_, err := s.service.GetBalance(s.ctx, "acc-1")
		s.requireFailure(err, models.ErrAccountClosed)
	})
}

func (s *AccountSuite) TestGetHistory() {
	s.create("agent-1", "agent")
	s.create("person-1", "individual")

	run := func(req models.DocumentRequest) {
		_, err := s.documents.Create(s.ctx, req)
		s.Require().NoError(err)
		_, err = s.documents.Execute(s.ctx, req.ID)
		s.Require().NoError(err)
	}
	run(models.DocumentRequest{
		ID: 1, FolderID: 1, Type: "emission",
		Params: models.DocumentParams{Amount: decimal.NewFromInt(1000), TargetAccountID: "agent-1"},
	})
	run(models.DocumentRequest{
		ID: 2, FolderID: 1, Type: "transfer",
		Params: models.DocumentParams{Amount: decimal.NewFromInt(300), SourceAccountID: "agent-1", TargetAccountID: "person-1"},
		Target: map[string]any{"source_message": "to person", "target_message": "from agent"},
	})

	s.Run("newest first with outgoing transfers negated", func() {
		entries, err := s.service.GetHistory(s.ctx, "agent-1", models.HistoryQuery{})
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(int64(2), entries[0].DocumentNumber)
		s.True(entries[0].Amount.Equal(decimal.NewFromInt(-300)))
		s.Equal("to person", entries[0].Message)
		s.True(entries[1].Amount.Equal(decimal.NewFromInt(1000)))
	})

	s.Run("receiver sees the target message", func() {
		entries, err := s.service.GetHistory(s.ctx, "person-1", models.HistoryQuery{})
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.True(entries[0].Amount.Equal(decimal.NewFromInt(300)))
		s.Equal("from agent", entries[0].Message)
	})

	s.Run("limit", func() {
		entries, err := s.service.GetHistory(s.ctx, "agent-1", models.HistoryQuery{Limit: 1})
		s.Require().NoError(err)
		s.Len(entries, 1)
	})

	s.Run("window excludes other days", func() {
		day := s.now.AddDate(0, 0, -2)
		entries, err := s.service.GetHistory(s.ctx, "agent-1", models.HistoryQuery{StartDate: &day, EndDate: &day})
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("unknown account", func() {
		_, err := s.service.GetHistory(s.ctx, "missing", models.HistoryQuery{})
		s.requireFailure(err, models.ErrAccountNotFound)
	})
}

func (s *AccountSuite) TestGetHistoryDates() {
	s.create("agent-1", "agent")
	_, err := s.documents.Create(s.ctx, models.DocumentRequest{
		ID: 1, FolderID: 1, Type: "emission",
		Params: models.DocumentParams{Amount: decimal.NewFromInt(10), TargetAccountID: "agent-1"},
	})
	s.Require().NoError(err)
	_, err = s.documents.Execute(s.ctx, 1)
	s.Require().NoError(err)

	s.Run("miss reads the store and fills the cache at the read generation", func() {
		s.cache.EXPECT().Get(gomock.Any(), "agent-1", 2026).Return(ports.HistoryDatesLookup{Generation: 3}, nil)
		s.cache.EXPECT().Set(gomock.Any(), "agent-1", 2026, []string{"2026-03-14"}, int64(3)).Return(nil)

		dates, err := s.service.GetHistoryDates(s.ctx, "agent-1", 2026)
		s.Require().NoError(err)
		s.Equal([]string{"2026-03-14"}, dates)
	})

	s.Run("hit skips the store", func() {
		s.cache.EXPECT().Get(gomock.Any(), "agent-1", 2026).
			Return(ports.HistoryDatesLookup{Dates: []string{"2026-01-01"}, Hit: true}, nil)

		dates, err := s.service.GetHistoryDates(s.ctx, "agent-1", 2026)
		s.Require().NoError(err)
		s.Equal([]string{"2026-01-01"}, dates)
	})

	s.Run("read failure falls back to the store without filling", func() {
		s.cache.EXPECT().Get(gomock.Any(), "agent-1", 2025).
			Return(ports.HistoryDatesLookup{Generation: 9}, errors.New("redis down"))

		dates, err := s.service.GetHistoryDates(s.ctx, "agent-1", 2025)
		s.Require().NoError(err)
		s.Empty(dates)
		s.NotNil(dates)
	})

	s.Run("write failure is ignored", func() {
		s.cache.EXPECT().Get(gomock.Any(), "agent-1", 2025).Return(ports.HistoryDatesLookup{}, nil)
		s.cache.EXPECT().Set(gomock.Any(), "agent-1", 2025, []string{}, int64(0)).Return(errors.New("redis down"))

		_, err := s.service.GetHistoryDates(s.ctx, "agent-1", 2025)
		s.Require().NoError(err)
	})

	s.Run("skipped lookup does not fill", func() {
		s.cache.EXPECT().Get(gomock.Any(), "agent-1", 2024).
			Return(ports.HistoryDatesLookup{Generation: ports.NoGeneration}, nil)

		_, err := s.service.GetHistoryDates(s.ctx, "agent-1", 2024)
		s.Require().NoError(err)
	})

	s.Run("closed account may still be queried", func() {
		s.Require().NoError(s.service.CloseAccount(s.ctx, "agent-1"))
		s.cache.EXPECT().Get(gomock.Any(), "agent-1", 2026).
			Return(ports.HistoryDatesLookup{Dates: []string{"2026-03-14"}, Hit: true}, nil)

		_, err := s.service.GetHistoryDates(s.ctx, "agent-1", 2026)
		s.Require().NoError(err)
	})

	s.Run("unknown account", func() {
		_, err := s.service.GetHistoryDates(s.ctx, "missing", 2026)
		s.requireFailure(err, models.ErrAccountNotFound)
	})
}
