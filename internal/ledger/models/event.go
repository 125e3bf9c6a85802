package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"modwallet/internal/platform/outbox"
)

// EventType names a committed ledger state change published through the outbox.
type EventType string

const (
	EventAccountCreated      EventType = "account_created"
	EventAccountClosed       EventType = "account_closed"
	EventOperationsBlocked   EventType = "operations_blocked"
	EventOperationsUnblocked EventType = "operations_unblocked"
	EventDocumentCreated     EventType = "document_created"
	EventDocumentInvalid     EventType = "document_invalid"
	EventDocumentExecuted    EventType = "document_executed"
	EventDocumentCanceled    EventType = "document_canceled"
)

const (
	aggregateAccount  = "account"
	aggregateDocument = "document"
)

// AccountEvent is the payload of account-scoped events.
type AccountEvent struct {
	AccountID  string      `json:"account_id"`
	Operations []Operation `json:"operations,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// DocumentEvent is the payload of document-scoped events.
type DocumentEvent struct {
	DocumentNumber int64        `json:"document_number"`
	Type           DocumentType `json:"type"`
	Status         Status       `json:"status"`
	Amount         string       `json:"amount"`
	FolderID       FolderID     `json:"folder_id"`
	Reason         string       `json:"reason,omitempty"`
	RequestID      string       `json:"request_id,omitempty"`
	OccurredAt     time.Time    `json:"occurred_at"`
}

// NewAccountEntry builds an outbox entry for an account event.
func NewAccountEntry(t EventType, ev AccountEvent) (outbox.Entry, error) {
	return newEntry(t, aggregateAccount, ev.AccountID, ev, ev.OccurredAt)
}

// NewDocumentEntry builds an outbox entry for a document event.
func NewDocumentEntry(t EventType, doc *Document, requestID string, at time.Time) (outbox.Entry, error) {
	ev := DocumentEvent{
		DocumentNumber: doc.Number,
		Type:           doc.Type,
		Status:         doc.Status,
		Amount:         doc.Amount.StringFixed(2),
		FolderID:       doc.FolderID,
		Reason:         doc.Reason,
		RequestID:      requestID,
		OccurredAt:     at,
	}
	return newEntry(t, aggregateDocument, fmt.Sprintf("%d", doc.Number), ev, at)
}

func newEntry(t EventType, aggregateType, aggregateID string, payload any, at time.Time) (outbox.Entry, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return outbox.Entry{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return outbox.Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     string(t),
		Payload:       b,
		CreatedAt:     at,
	}, nil
}
