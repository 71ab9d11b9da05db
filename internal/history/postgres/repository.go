package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopquery/shopquery/internal/history"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) Append(ctx context.Context, entry history.Entry) (history.Entry, error) {
	query := `
INSERT INTO query_history (question, sql_text, success, row_count, confidence, error_text, principal)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING entry_id, created_at`
	if err := r.db.QueryRowContext(ctx, query,
		entry.Question,
		entry.SQL,
		entry.Success,
		entry.RowCount,
		entry.Confidence,
		entry.Error,
		entry.Principal,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return history.Entry{}, fmt.Errorf("append history entry: %w", err)
	}
	return entry, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (history.Entry, error) {
	query := `
SELECT entry_id, question, sql_text, success, row_count, confidence, error_text, principal, created_at
FROM query_history
WHERE entry_id = $1`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Entry{}, history.ErrNotFound
		}
		return history.Entry{}, fmt.Errorf("get history entry: %w", err)
	}
	return entry, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]history.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT entry_id, question, sql_text, success, row_count, confidence, error_text, principal, created_at
FROM query_history
ORDER BY entry_id DESC
LIMIT $1`, history.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (history.Entry, error) {
	var entry history.Entry
	err := row.Scan(
		&entry.ID,
		&entry.Question,
		&entry.SQL,
		&entry.Success,
		&entry.RowCount,
		&entry.Confidence,
		&entry.Error,
		&entry.Principal,
		&entry.CreatedAt,
	)
	return entry, err
}
