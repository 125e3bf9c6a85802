package document

import (
	"context"
	"fmt"

	"modwallet/internal/ledger/models"
)

// emission mints funds into an agent's account. It reserves nothing at
// creation; money appears only when it executes.
type emission struct {
	*env
}

func (m *emission) docType() models.DocumentType { return models.DocumentTypeEmission }

func (m *emission) next(ctx context.Context, c *creation, from state) (state, error) {
	switch from {
	case statePending:
		return stateValidatingAccount, nil
	case stateValidatingAccount:
		target, err := m.loadAccount(ctx, c.req.Params.TargetAccountID, false)
		if err != nil {
			return from, err
		}
		if target == nil {
			return from, models.ErrAccountNotFound
		}
		c.target = target
		switch {
		case target.Closed:
			return from, models.ErrAccountClosed
		case target.IsBlocked():
			return from, models.ErrAccountBlocked
		case !target.HasRole(models.RoleAgent):
			return from, models.ErrAccountTypeIsNotAgent
		}
		return stateValidatingDocument, nil
	case stateValidatingDocument:
		if err := m.validateFields(ctx, c); err != nil {
			return from, err
		}
		return stateSavingDocument, nil
	case stateSavingDocument:
		return stateCreated, nil
	}
	return from, fmt.Errorf("emission: no transition from %s", from)
}

// execute credits the target and moves the counter-account down by amount.
func (m *emission) execute(ctx context.Context, x *execution) error {
	target, err := x.lockTarget(ctx, m.env)
	if err != nil {
		return err
	}
	if _, err := m.ledger.Credit(ctx, target.ID, x.doc.ID, x.doc.Amount, x.now); err != nil {
		return err
	}
	if _, err := m.ledger.Issue(ctx, x.doc.Amount, x.now); err != nil {
		return err
	}
	_, err = m.ledger.Release(ctx, x.doc.ID)
	return err
}
