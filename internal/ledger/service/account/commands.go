package account

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"modwallet/internal/ledger/models"
	"modwallet/internal/platform/tracing"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/platform/sentinel"
	"modwallet/pkg/platform/strings"
	"modwallet/pkg/requestcontext"
)

// CreateAccount registers an account. A nil or empty role list fails with
// InvalidRequest, an unknown role with InvalidAccountType.
func (s *Service) CreateAccount(ctx context.Context, identityNumber, countryCode string, roles []string) (acc *models.Account, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, s.tracer, "account.CreateAccount")
	defer func() {
		tracing.End(span, err)
		s.observe("create_account", start)
		if err != nil {
			s.logRejected(ctx, "create account", err, "account_id", identityNumber)
		}
	}()

	now := requestcontext.Now(ctx)
	acc, err = models.NewAccount(identityNumber, countryCode, strings.ParseTokens[models.Role](roles), now)
	if err != nil {
		if f, ok := models.AsFailure(err); ok {
			return nil, models.Fail(f, "invalid account roles")
		}
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid account")
		}
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, acc); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeValidation, "identity number already used")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
		}
		return s.emit(ctx, models.EventAccountCreated, acc.IdentityNumber, nil, now)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementAccountsCreated()
	}
	s.logger.InfoContext(ctx, "account created",
		"account_id", acc.IdentityNumber,
		"roles", acc.Roles,
	)
	return acc, nil
}

// CloseAccount marks the account closed. Closing a closed account succeeds.
func (s *Service) CloseAccount(ctx context.Context, identityNumber string) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "account.CloseAccount", attribute.String("account_id", identityNumber))
	defer func() {
		tracing.End(span, err)
		if err != nil {
			s.logRejected(ctx, "close account", err, "account_id", identityNumber)
		}
	}()

	now := requestcontext.Now(ctx)
	closed := false
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		acc, err := s.find(ctx, identityNumber, true)
		if err != nil {
			return err
		}
		if acc.Closed {
			return nil
		}
		if err := s.accounts.Close(ctx, acc.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close account")
		}
		closed = true
		return s.emit(ctx, models.EventAccountClosed, identityNumber, nil, now)
	})
	if err != nil {
		return err
	}
	if closed {
		s.logger.InfoContext(ctx, "account closed", "account_id", identityNumber)
	}
	return nil
}

// BlockOperations blocks each operation. Already blocked operations are left
// as they are. A nil list fails with InvalidRequest.
func (s *Service) BlockOperations(ctx context.Context, identityNumber string, operations []string) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "account.BlockOperations", attribute.String("account_id", identityNumber))
	defer func() {
		tracing.End(span, err)
		if err != nil {
			s.logRejected(ctx, "block operations", err, "account_id", identityNumber)
		}
	}()

	ops, err := parseOperations(operations)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	var blocked []models.Operation
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		acc, err := s.findOpen(ctx, identityNumber, true)
		if err != nil {
			return err
		}
		for _, op := range ops {
			created, err := s.accounts.Block(ctx, acc.ID, op)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to block operation")
			}
			if created {
				blocked = append(blocked, op)
			}
		}
		if len(blocked) == 0 {
			return nil
		}
		return s.emit(ctx, models.EventOperationsBlocked, identityNumber, blocked, now)
	})
	if err != nil {
		return err
	}
	if len(blocked) > 0 {
		s.logger.InfoContext(ctx, "operations blocked", "account_id", identityNumber, "operations", blocked)
	}
	return nil
}

// UnblockOperations removes each block. Any operation that is not blocked
// fails the whole command with AccountNotBlocked.
func (s *Service) UnblockOperations(ctx context.Context, identityNumber string, operations []string) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "account.UnblockOperations", attribute.String("account_id", identityNumber))
	defer func() {
		tracing.End(span, err)
		if err != nil {
			s.logRejected(ctx, "unblock operations", err, "account_id", identityNumber)
		}
	}()

	ops, err := parseOperations(operations)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		acc, err := s.findOpen(ctx, identityNumber, true)
		if err != nil {
			return err
		}
		for _, op := range ops {
			if err := s.accounts.Unblock(ctx, acc.ID, op); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return models.Fail(models.ErrAccountNotBlocked, "operation is not blocked: "+string(op))
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unblock operation")
			}
		}
		if len(ops) == 0 {
			return nil
		}
		return s.emit(ctx, models.EventOperationsUnblocked, identityNumber, ops, now)
	})
	if err != nil {
		return err
	}
	if len(ops) > 0 {
		s.logger.InfoContext(ctx, "operations unblocked", "account_id", identityNumber, "operations", ops)
	}
	return nil
}

func parseOperations(operations []string) ([]models.Operation, error) {
	if operations == nil {
		return nil, models.Fail(models.ErrInvalidRequest, "operations are required")
	}
	ops := strings.ParseTokens[models.Operation](operations)
	for _, op := range ops {
		if !op.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid operation: "+string(op))
		}
	}
	return ops, nil
}

func (s *Service) emit(ctx context.Context, t models.EventType, identityNumber string, ops []models.Operation, at time.Time) error {
	entry, err := models.NewAccountEntry(t, models.AccountEvent{
		AccountID:  identityNumber,
		Operations: ops,
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: at,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if err := s.outbox.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append event")
	}
	return nil
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}
