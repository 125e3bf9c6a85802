package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"modwallet/internal/ledger/models"
	"modwallet/internal/ledger/ports"
	"modwallet/internal/ledger/service/balance"
	dErrors "modwallet/pkg/domain-errors"
	"modwallet/pkg/platform/sentinel"
)

// state is a position in a creation machine.
type state string

const (
	statePending            state = "pending"
	stateValidatingAccount  state = "validating_account"
	stateValidatingTransfer state = "validating_transfer"
	stateValidatingDocument state = "validating_document"
	stateValidatingBalance  state = "validating_balance"
	stateSavingDocument     state = "saving_document"
	stateHoldingBalance     state = "holding_balance"
	stateCreated            state = "document_created"
	stateInvalid            state = "document_invalid"
)

func (s state) terminal() bool {
	return s == stateCreated || s == stateInvalid
}

// machine is the per-type lifecycle. next checks the rules guarding from and
// names the following state; a models.Failure moves the document to invalid.
// Side effects of entering a state (saving, holding) are applied by the
// driver, not by the machine.
type machine interface {
	docType() models.DocumentType
	next(ctx context.Context, c *creation, from state) (state, error)
	execute(ctx context.Context, x *execution) error
}

type registry struct {
	machines map[models.DocumentType]machine
}

func newRegistry(ms ...machine) *registry {
	r := &registry{machines: make(map[models.DocumentType]machine, len(ms))}
	for _, m := range ms {
		r.register(m)
	}
	return r
}

func (r *registry) register(m machine) {
	r.machines[m.docType()] = m
}

func (r *registry) lookup(t models.DocumentType) (machine, error) {
	m, ok := r.machines[t]
	if !ok {
		return nil, models.Fail(models.ErrInvalidDocumentType, "unsupported document type")
	}
	return m, nil
}

// env is what the machines read and write through.
type env struct {
	accounts      ports.AccountStore
	documents     ports.DocumentStore
	ledger        *balance.Ledger
	transferLimit decimal.Decimal
}

// creation is the working state of one creation run.
type creation struct {
	req     *models.DocumentRequest
	doc     *models.Document
	source  *models.Account
	target  *models.Account
	holdOn  *models.Account
	failure models.Failure
	now     time.Time
}

func newCreation(req *models.DocumentRequest, t models.DocumentType, blob []byte, now time.Time) *creation {
	return &creation{
		req: req,
		doc: &models.Document{
			Number:    req.ID,
			Type:      t,
			Amount:    models.Round2(req.Params.Amount),
			FolderID:  models.FolderID(req.FolderID),
			Params:    blob,
			CreatedAt: now,
		},
		now: now,
	}
}

// loadAccount resolves an identity number, optionally under a row lock.
// A missing account yields (nil, nil).
func (e *env) loadAccount(ctx context.Context, identity string, lock bool) (*models.Account, error) {
	if identity == "" {
		return nil, nil
	}
	var (
		a   *models.Account
		err error
	)
	if lock {
		a, err = e.accounts.LockByIdentity(ctx, identity)
	} else {
		a, err = e.accounts.FindByIdentity(ctx, identity)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return a, nil
}

// validateFields checks amount and document number. Any problem is
// InvalidDocument.
func (e *env) validateFields(ctx context.Context, c *creation) error {
	if !c.doc.Amount.IsPositive() || c.doc.Amount.GreaterThan(models.MaxAmount) {
		return models.ErrInvalidDocument
	}
	if c.doc.Number <= 0 {
		return models.ErrInvalidDocument
	}
	taken, err := e.documents.ExistsByNumber(ctx, c.doc.Number)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check document number")
	}
	if taken {
		return models.ErrInvalidDocument
	}
	return nil
}

// sufficient reports whether the account's available balance covers amount.
func (e *env) sufficient(ctx context.Context, a *models.Account, amount decimal.Decimal) (bool, error) {
	available, err := e.ledger.Available(ctx, a.ID)
	if err != nil {
		return false, err
	}
	return !available.LessThan(amount), nil
}

// drive runs m from pending to a terminal state, applying the side effects
// of each state it enters.
func (s *Service) drive(ctx context.Context, m machine, c *creation) (state, error) {
	current := statePending
	for !current.terminal() {
		next, err := m.next(ctx, c, current)
		if err != nil {
			f, ok := models.AsFailure(err)
			if !ok {
				return current, err
			}
			c.failure = f
			next = stateInvalid
		}
		if err := s.enter(ctx, c, next); err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}

func (s *Service) enter(ctx context.Context, c *creation, st state) error {
	switch st {
	case stateSavingDocument:
		c.doc.Status = models.StatusCreated
		c.doc.SourceAccountID = accountID(c.source)
		c.doc.TargetAccountID = accountID(c.target)
		return s.saveDocument(ctx, c.doc)
	case stateHoldingBalance:
		if c.holdOn == nil {
			return fmt.Errorf("hold account not resolved for document %d", c.doc.Number)
		}
		return s.ledger.Hold(ctx, c.holdOn.ID, c.doc.ID, c.doc.Amount, c.now)
	case stateInvalid:
		return s.saveInvalid(ctx, c)
	}
	return nil
}

func (s *Service) saveDocument(ctx context.Context, doc *models.Document) error {
	if err := s.stores.Documents.Create(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "document number already used")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save document")
	}
	return nil
}

// saveInvalid persists the attempt with its reason. A document whose number
// is taken or not positive cannot be stored and is only reported.
func (s *Service) saveInvalid(ctx context.Context, c *creation) error {
	taken, err := s.stores.Documents.ExistsByNumber(ctx, c.doc.Number)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check document number")
	}
	c.doc.Status = models.StatusInvalid
	c.doc.Reason = string(c.failure)
	c.doc.SourceAccountID = accountID(c.source)
	c.doc.TargetAccountID = accountID(c.target)
	if c.doc.Amount.Abs().GreaterThan(models.MaxAmount) {
		c.doc.Amount = decimal.Zero
	}
	if taken || c.doc.Number <= 0 {
		return nil
	}
	return s.saveDocument(ctx, c.doc)
}

func accountID(a *models.Account) *models.AccountID {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}
