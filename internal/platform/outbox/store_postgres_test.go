package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	txcontext "modwallet/pkg/platform/tx"
)

func TestPostgresStoreAppendJoinsContextTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO outbox`).
		WithArgs(sqlmock.AnyArg(), "document", "42", "document_executed", []byte(`{"a":1}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := txcontext.WithTx(context.Background(), tx)

	store := NewPostgresStore(db)
	err = store.Append(ctx, Entry{
		ID:            uuid.New(),
		AggregateType: "document",
		AggregateID:   "42",
		EventType:     "document_executed",
		Payload:       []byte(`{"a":1}`),
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFetchAndMark(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at\s+FROM outbox`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "aggregate_type", "aggregate_id", "event_type", "payload", "created_at"}).
			AddRow(id.String(), "account", "AB12", "account_created", []byte(`{}`), now))
	mock.ExpectExec(`UPDATE outbox SET published_at`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresStore(db)
	entries, err := store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, id, entries[0].ID)
	require.Equal(t, "account_created", entries[0].EventType)

	require.NoError(t, store.MarkPublished(context.Background(), []uuid.UUID{id}, now))
	require.NoError(t, store.MarkPublished(context.Background(), nil, now))
	require.NoError(t, mock.ExpectationsWereMet())
}
