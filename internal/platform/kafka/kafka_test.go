package kafka

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modwallet/internal/platform/config"
	"modwallet/internal/platform/outbox"
)

func TestToRecord(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := toRecord("wallet.ledger.events", outbox.Entry{
		ID:            id,
		AggregateType: "document",
		AggregateID:   "42",
		EventType:     "document.executed",
		Payload:       []byte(`{"number":42}`),
		CreatedAt:     at,
	})

	assert.Equal(t, "wallet.ledger.events", rec.Topic)
	assert.Equal(t, []byte("42"), rec.Key)
	assert.JSONEq(t, `{"number":42}`, string(rec.Value))
	assert.True(t, rec.Timestamp.Equal(at))

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, id.String(), headers[HeaderEventID])
	assert.Equal(t, "document.executed", headers[HeaderEventType])
	assert.Equal(t, "document", headers[HeaderAggregateType])
}

func TestNewRequiresBrokers(t *testing.T) {
	_, err := New(config.KafkaConfig{Topic: "t"})
	require.Error(t, err)

	_, err = New(config.KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)
}
