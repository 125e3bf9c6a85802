package models

import (
	"strings"
	"time"

	dErrors "modwallet/pkg/domain-errors"
)

// AccountID is the internal surrogate key. It orders row locks; callers
// outside the store address accounts by identity number.
type AccountID int64

// Role classifies an account for transfer and emission rules.
type Role string

const (
	RoleIndividual Role = "individual"
	RoleAgent      Role = "agent"
	RoleMerchant   Role = "merchant"
	RoleCorporate  Role = "corporate"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleIndividual, RoleAgent, RoleMerchant, RoleCorporate:
		return true
	}
	return false
}

// Operation is a blockable money direction.
type Operation string

const (
	OperationCredit Operation = "credit"
	OperationDebit  Operation = "debit"
)

// IsValid reports whether o is credit or debit.
func (o Operation) IsValid() bool {
	return o == OperationCredit || o == OperationDebit
}

// Account is the registry aggregate.
//
// Invariants:
//   - IdentityNumber is non-empty, unique and immutable
//   - CountryCode is non-empty
//   - Roles is a non-empty subset of the known roles
//   - A closed account rejects every mutating command
type Account struct {
	ID             AccountID   `json:"-"`
	IdentityNumber string      `json:"account_id"`
	CountryCode    string      `json:"country_code"`
	Closed         bool        `json:"closed"`
	Roles          []Role      `json:"roles"`
	Blocked        []Operation `json:"blocked_operations,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewAccount builds an account after checking its invariants. Role problems
// are reported as failures; missing identity fields as invariant violations.
func NewAccount(identityNumber, countryCode string, roles []Role, now time.Time) (*Account, error) {
	if len(roles) == 0 {
		return nil, ErrInvalidRequest
	}
	for _, r := range roles {
		if !r.IsValid() {
			return nil, ErrInvalidAccountType
		}
	}
	identityNumber = strings.TrimSpace(identityNumber)
	countryCode = strings.TrimSpace(countryCode)
	if identityNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity number is required")
	}
	if countryCode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "country code is required")
	}
	return &Account{
		IdentityNumber: identityNumber,
		CountryCode:    countryCode,
		Roles:          roles,
		CreatedAt:      now,
	}, nil
}

// HasRole reports whether the account carries r.
func (a *Account) HasRole(r Role) bool {
	for _, have := range a.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// IsBlocked reports whether op is blocked. With no arguments it reports
// whether any operation is blocked.
func (a *Account) IsBlocked(ops ...Operation) bool {
	if len(ops) == 0 {
		return len(a.Blocked) > 0
	}
	for _, want := range ops {
		for _, have := range a.Blocked {
			if have == want {
				return true
			}
		}
	}
	return false
}
