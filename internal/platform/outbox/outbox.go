// Package outbox implements the transactional outbox: state changes append an
// Entry inside their own transaction, and a Worker later publishes pending
// entries to the message broker and marks them published.
//
// Delivery is at-least-once. Consumers key on Entry.ID to deduplicate.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one pending or published event.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Store persists entries. Append joins the caller's transaction when one is
// present in ctx.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	FetchPending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers entries to the broker. A nil error means every entry was
// acknowledged.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) error
}
