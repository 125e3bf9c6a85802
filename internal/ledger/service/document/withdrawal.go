package document

import (
	"context"
	"fmt"

	"modwallet/internal/ledger/models"
)

// withdrawal removes funds from an account. The amount is held at creation
// and released when the withdrawal executes or is canceled.
type withdrawal struct {
	*env
}

func (m *withdrawal) docType() models.DocumentType { return models.DocumentTypeWithdrawal }

func (m *withdrawal) next(ctx context.Context, c *creation, from state) (state, error) {
	switch from {
	case statePending:
		return stateValidatingAccount, nil
	case stateValidatingAccount:
		target, err := m.loadAccount(ctx, c.req.Params.TargetAccountID, true)
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
		}
		return stateValidatingDocument, nil
	case stateValidatingDocument:
		if err := m.validateFields(ctx, c); err != nil {
			return from, err
		}
		return stateValidatingBalance, nil
	case stateValidatingBalance:
		ok, err := m.sufficient(ctx, c.target, c.doc.Amount)
		if err != nil {
			return from, err
		}
		if !ok {
			return from, models.ErrInsufficientBalance
		}
		c.holdOn = c.target
		return stateSavingDocument, nil
	case stateSavingDocument:
		return stateHoldingBalance, nil
	case stateHoldingBalance:
		return stateCreated, nil
	}
	return from, fmt.Errorf("withdrawal: no transition from %s", from)
}

// execute debits the account, moves the counter-account toward zero and
// clears the hold.
func (m *withdrawal) execute(ctx context.Context, x *execution) error {
	target, err := x.lockTarget(ctx, m.env)
	if err != nil {
		return err
	}
	if err := x.checkSpendable(ctx, m.env, target); err != nil {
		return err
	}
	if _, err := m.ledger.Debit(ctx, target.ID, x.doc.ID, x.doc.Amount, x.now); err != nil {
		return err
	}
	if _, err := m.ledger.Redeem(ctx, x.doc.Amount, x.now); err != nil {
		return err
	}
	_, err = m.ledger.Release(ctx, x.doc.ID)
	return err
}
