package document

import (
	"context"
	"fmt"

	"modwallet/internal/ledger/models"
)

// allowedTransfers lists the permitted source→target role pairs.
var allowedTransfers = [][2]models.Role{
	{models.RoleAgent, models.RoleIndividual},
	{models.RoleIndividual, models.RoleIndividual},
	{models.RoleIndividual, models.RoleMerchant},
}

// transfer moves funds between two accounts. The source is row-locked while
// it is validated and the amount is held on it until execution.
type transfer struct {
	*env
}

func (m *transfer) docType() models.DocumentType { return models.DocumentTypeTransfer }

func (m *transfer) next(ctx context.Context, c *creation, from state) (state, error) {
	switch from {
	case statePending:
		return stateValidatingTransfer, nil
	case stateValidatingTransfer:
		if err := m.validate(ctx, c); err != nil {
			return from, err
		}
		c.holdOn = c.source
		return stateSavingDocument, nil
	case stateSavingDocument:
		return stateHoldingBalance, nil
	case stateHoldingBalance:
		return stateCreated, nil
	}
	return from, fmt.Errorf("transfer: no transition from %s", from)
}

// validate applies the transfer rules in order; the first failure wins.
func (m *transfer) validate(ctx context.Context, c *creation) error {
	source, err := m.loadAccount(ctx, c.req.Params.SourceAccountID, true)
	if err != nil {
		return err
	}
	if source == nil {
		return models.ErrSourceAccountNotFound
	}
	c.source = source

	target, err := m.loadAccount(ctx, c.req.Params.TargetAccountID, false)
	if err != nil {
		return err
	}
	if target == nil {
		return models.ErrTargetAccountNotFound
	}
	c.target = target

	switch {
	case source.ID == target.ID:
		return models.ErrSelfSelectionTransfer
	case source.IsBlocked():
		return models.ErrSourceAccountBlocked
	case target.IsBlocked():
		return models.ErrTargetAccountBlocked
	case source.Closed:
		return models.ErrSourceAccountClosed
	case target.Closed:
		return models.ErrTargetAccountClosed
	}

	ok, err := m.sufficient(ctx, source, c.doc.Amount)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrInsufficientBalance
	}
	if !permitted(source, target) {
		return models.ErrForbiddenTransfer
	}
	if betweenIndividuals(source, target) && !c.doc.Amount.LessThan(m.transferLimit) {
		return models.ErrTransferLimitExceeded
	}
	return m.validateFields(ctx, c)
}

func permitted(source, target *models.Account) bool {
	for _, pair := range allowedTransfers {
		if source.HasRole(pair[0]) && target.HasRole(pair[1]) {
			return true
		}
	}
	return false
}

func betweenIndividuals(source, target *models.Account) bool {
	return source.HasRole(models.RoleIndividual) && target.HasRole(models.RoleIndividual)
}

// execute debits the source, credits the target and clears the hold. No
// counter-account movement: transfers do not change the money supply.
func (m *transfer) execute(ctx context.Context, x *execution) error {
	source, target, err := x.lockPair(ctx, m.env)
	if err != nil {
		return err
	}
	if err := x.checkSpendable(ctx, m.env, source); err != nil {
		return err
	}
	if _, err := m.ledger.Debit(ctx, source.ID, x.doc.ID, x.doc.Amount, x.now); err != nil {
		return err
	}
	if _, err := m.ledger.Credit(ctx, target.ID, x.doc.ID, x.doc.Amount, x.now); err != nil {
		return err
	}
	_, err = m.ledger.Release(ctx, x.doc.ID)
	return err
}
