package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modwallet/internal/ledger/models"
	"modwallet/pkg/platform/sentinel"
)

// FolderStore persists folders.
type FolderStore struct {
	base
}

// GetOrCreate inserts the folder if missing and returns the stored row.
func (s *FolderStore) GetOrCreate(ctx context.Context, id models.FolderID, now time.Time) (*models.Folder, error) {
	query := `
		INSERT INTO folders (folder_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (folder_id) DO UPDATE SET folder_id = EXCLUDED.folder_id
		RETURNING id, folder_id, created_at
	`
	var f models.Folder
	if err := s.execer(ctx).QueryRowContext(ctx, query, int64(id), now).Scan(&f.ID, &f.FolderID, &f.CreatedAt); err != nil {
		return nil, fmt.Errorf("get or create folder: %w", classify(err))
	}
	return &f, nil
}

func (s *FolderStore) FindByID(ctx context.Context, id models.FolderID) (*models.Folder, error) {
	var f models.Folder
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, folder_id, created_at FROM folders WHERE folder_id = $1`, int64(id),
	).Scan(&f.ID, &f.FolderID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find folder: %w", classify(err))
	}
	return &f, nil
}

// DocumentStore persists documents and serves the history read models.
type DocumentStore struct {
	base
}

const documentColumns = `
	id, document_number, type, status, amount, source_account_id, target_account_id,
	folder_id, params, COALESCE(reason, ''), created_at, executed_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d              models.Document
		source, target sql.NullInt64
		executedAt     sql.NullTime
		params         []byte
	)
	err := row.Scan(&d.ID, &d.Number, &d.Type, &d.Status, &d.Amount, &source, &target,
		&d.FolderID, &params, &d.Reason, &d.CreatedAt, &executedAt)
	if err != nil {
		return nil, err
	}
	if source.Valid {
		id := models.AccountID(source.Int64)
		d.SourceAccountID = &id
	}
	if target.Valid {
		id := models.AccountID(target.Int64)
		d.TargetAccountID = &id
	}
	if executedAt.Valid {
		t := executedAt.Time
		d.ExecutedAt = &t
	}
	d.Params = params
	return &d, nil
}

func (s *DocumentStore) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO documents (document_number, type, status, amount, source_account_id, target_account_id,
			folder_id, params, reason, created_at, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
		RETURNING id
	`
	params := []byte(d.Params)
	if len(params) == 0 {
		params = []byte(`{}`)
	}
	err := s.execer(ctx).QueryRowContext(ctx, query,
		d.Number,
		string(d.Type),
		string(d.Status),
		d.Amount,
		nullAccountID(d.SourceAccountID),
		nullAccountID(d.TargetAccountID),
		int64(d.FolderID),
		params,
		d.Reason,
		d.CreatedAt,
		d.ExecutedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert document: %w", classify(err))
	}
	return nil
}

func (s *DocumentStore) ExistsByNumber(ctx context.Context, number int64) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE document_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document number: %w", classify(err))
	}
	return exists, nil
}

func (s *DocumentStore) FindByNumber(ctx context.Context, number int64) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE document_number = $1`
	return s.one(ctx, "find document", query, number)
}

func (s *DocumentStore) LockByNumber(ctx context.Context, number int64) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE document_number = $1 FOR UPDATE`
	return s.one(ctx, "lock document", query, number)
}

func (s *DocumentStore) one(ctx context.Context, op, query string, arg any) (*models.Document, error) {
	d, err := scanDocument(s.execer(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return d, nil
}

func (s *DocumentStore) LockByFolder(ctx context.Context, folder models.FolderID) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE folder_id = $1 ORDER BY id FOR UPDATE`
	return s.many(ctx, "lock folder documents", query, int64(folder))
}

func (s *DocumentStore) many(ctx context.Context, op, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (s *DocumentStore) UpdateStatus(ctx context.Context, id models.DocumentID, status models.Status, executedAt *time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE documents SET status = $2, executed_at = COALESCE($3, executed_at) WHERE id = $1`,
		int64(id), string(status), executedAt,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", classify(err))
	}
	return requireRow(res, "update document status")
}

func (s *DocumentStore) History(ctx context.Context, account models.AccountID, q models.HistoryQuery) ([]*models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = 'executed'
		  AND (source_account_id = $1 OR target_account_id = $1)
	`
	args := []any{int64(account)}
	if q.HasWindow() {
		from, to := q.Window()
		query += ` AND executed_at >= $2 AND executed_at < $3`
		args = append(args, from, to)
	}
	query += ` ORDER BY id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return s.many(ctx, "query history", query, args...)
}

func (s *DocumentStore) HistoryDates(ctx context.Context, account models.AccountID, year int) ([]string, error) {
	query := `
		SELECT DISTINCT to_char(executed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day
		FROM documents
		WHERE status = 'executed'
		  AND (source_account_id = $1 OR target_account_id = $1)
		  AND executed_at >= $2 AND executed_at < $3
		ORDER BY day
	`
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := s.execer(ctx).QueryContext(ctx, query, int64(account), from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("query history dates: %w", classify(err))
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan history date: %w", err)
		}
		dates = append(dates, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history dates: %w", err)
	}
	return dates, nil
}

func nullAccountID(id *models.AccountID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}
