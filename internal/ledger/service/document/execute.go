package document

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"modwallet/internal/ledger/models"
	"modwallet/internal/platform/tracing"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/platform/sentinel"
	"modwallet/pkg/requestcontext"
)

// execution is the working state of one execution run.
type execution struct {
	doc     *models.Document
	now     time.Time
	touched []string
}

func (x *execution) touch(accounts ...*models.Account) {
	for _, a := range accounts {
		x.touched = append(x.touched, a.IdentityNumber)
	}
}

// lockTarget row-locks the document's target account.
func (x *execution) lockTarget(ctx context.Context, e *env) (*models.Account, error) {
	if x.doc.TargetAccountID == nil {
		return nil, models.Fail(models.ErrInvalidDocument, "document has no target account")
	}
	a, err := lockAccount(ctx, e, *x.doc.TargetAccountID)
	if err != nil {
		return nil, err
	}
	x.touch(a)
	return a, nil
}

// lockPair row-locks source and target in ascending id order so two
// transfers crossing the same pair cannot deadlock.
func (x *execution) lockPair(ctx context.Context, e *env) (source, target *models.Account, err error) {
	if x.doc.SourceAccountID == nil || x.doc.TargetAccountID == nil {
		return nil, nil, models.Fail(models.ErrInvalidDocument, "transfer is missing an account")
	}
	sid, tid := *x.doc.SourceAccountID, *x.doc.TargetAccountID
	first, second := sid, tid
	if tid < sid {
		first, second = tid, sid
	}
	a, err := lockAccount(ctx, e, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := lockAccount(ctx, e, second)
	if err != nil {
		return nil, nil, err
	}
	if a.ID == sid {
		source, target = a, b
	} else {
		source, target = b, a
	}
	x.touch(source, target)
	return source, target, nil
}

func lockAccount(ctx context.Context, e *env, id models.AccountID) (*models.Account, error) {
	a, err := e.accounts.Lock(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.Fail(models.ErrAccountNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock account")
	}
	return a, nil
}

// checkSpendable re-validates a debit at execution time. The document's own
// hold is excluded from the held total, then it must still be intact.
func (x *execution) checkSpendable(ctx context.Context, e *env, a *models.Account) error {
	current, available, err := e.ledger.Spendable(ctx, a.ID, x.doc.ID)
	if err != nil {
		return err
	}
	if available.LessThan(x.doc.Amount) || current.LessThan(x.doc.Amount) {
		return models.Fail(models.ErrInsufficientBalance, "insufficient balance")
	}
	hold, err := e.ledger.OwnHold(ctx, x.doc.ID)
	if err != nil {
		return err
	}
	if hold == nil || hold.AccountID != a.ID || !hold.Amount.Equal(x.doc.Amount) {
		return models.Fail(models.ErrInvalidTransfer, "document hold is missing or stale")
	}
	return nil
}

// Execute moves the money of a created document and marks it executed. Any
// failure rolls the transaction back and leaves the document created.
func (s *Service) Execute(ctx context.Context, number int64) (doc *models.Document, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, s.tracer, "document.Execute", attribute.Int64("document_number", number))
	docType := "unknown"
	defer func() {
		tracing.End(span, err)
		s.observe("execute_document", start)
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncrementExecutionFailed(docType, reasonOf(err))
			}
			s.logRejected(ctx, "execute document", err, "document_number", number)
		}
	}()

	now := requestcontext.Now(ctx)
	x := &execution{now: now}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.stores.Documents.LockByNumber(ctx, number)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.Fail(models.ErrDocumentNotFound, "document not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
		}
		docType = string(d.Type)
		if d.Status != models.StatusCreated {
			return models.Fail(models.ErrInvalidRequest, "document is "+string(d.Status))
		}
		m, err := s.registry.lookup(d.Type)
		if err != nil {
			return err
		}
		x.doc = d
		if err := m.execute(ctx, x); err != nil {
			return err
		}
		executedAt := now
		if err := s.setStatus(ctx, d, models.StatusExecuted, &executedAt); err != nil {
			return err
		}
		return s.emit(ctx, models.EventDocumentExecuted, d, now)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDates(ctx, x.touched)
	if s.metrics != nil {
		s.metrics.IncrementDocumentExecuted(docType)
	}
	s.logger.InfoContext(ctx, "document executed",
		"document_number", number,
		"type", docType,
		"amount", x.doc.Amount.StringFixed(2),
	)
	return x.doc, nil
}

// invalidateDates drops cached history dates for accounts whose history
// changed. Cache failures are only logged.
func (s *Service) invalidateDates(ctx context.Context, accounts []string) {
	if s.cache == nil || len(accounts) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, accounts...); err != nil {
		s.logger.WarnContext(ctx, "history dates cache invalidation failed",
			"accounts", accounts,
			"error", err,
		)
	}
}

func reasonOf(err error) string {
	if f, ok := models.AsFailure(err); ok {
		return string(f)
	}
	return string(dErrors.CodeOf(err))
}
