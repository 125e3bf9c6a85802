package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentID is the internal surrogate key of a document.
type DocumentID int64

// DocumentType selects the creation and execution machines.
type DocumentType string

const (
	DocumentTypeEmission   DocumentType = "emission"
	DocumentTypeWithdrawal DocumentType = "withdrawal"
	DocumentTypeTransfer   DocumentType = "transfer"
)

// ParseDocumentType returns ErrInvalidDocumentType for unknown values.
func ParseDocumentType(s string) (DocumentType, error) {
	switch t := DocumentType(s); t {
	case DocumentTypeEmission, DocumentTypeWithdrawal, DocumentTypeTransfer:
		return t, nil
	}
	return "", ErrInvalidDocumentType
}

// Status is the document lifecycle position.
type Status string

const (
	StatusCreated  Status = "created"
	StatusInvalid  Status = "invalid"
	StatusCanceled Status = "canceled"
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
)

// CanTransitionTo enforces the two legal paths: created→executed and
// created→canceled. Invalid, executed and canceled are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if s != StatusCreated {
		return false
	}
	return next == StatusExecuted || next == StatusCanceled
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s != StatusCreated
}

// FolderID is the externally supplied folder key.
type FolderID int64

// Folder groups documents created by one external request.
type Folder struct {
	ID        int64
	FolderID  FolderID
	CreatedAt time.Time
}

// Document is a monetary instruction.
//
// Invariants:
//   - Number is unique
//   - Status only moves created→executed or created→canceled
//   - At most one hold references the document
type Document struct {
	ID              DocumentID
	Number          int64
	Type            DocumentType
	Status          Status
	Amount          decimal.Decimal
	SourceAccountID *AccountID
	TargetAccountID *AccountID
	FolderID        FolderID
	Params          json.RawMessage
	Reason          string
	CreatedAt       time.Time
	ExecutedAt      *time.Time
}

// AccountIDs lists every account the document touches.
func (d *Document) AccountIDs() []AccountID {
	ids := make([]AccountID, 0, 2)
	if d.SourceAccountID != nil {
		ids = append(ids, *d.SourceAccountID)
	}
	if d.TargetAccountID != nil {
		ids = append(ids, *d.TargetAccountID)
	}
	return ids
}
