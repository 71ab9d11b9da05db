package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("history: not found")

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// Entry records one answered question. Entries are append-only.
type Entry struct {
	ID         int64     `json:"id"`
	Question   string    `json:"question"`
	SQL        string    `json:"sql"`
	Success    bool      `json:"success"`
	RowCount   int       `json:"row_count"`
	Confidence float64   `json:"confidence"`
	Error      string    `json:"error,omitempty"`
	Principal  string    `json:"principal,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Repository interface {
	HealthCheck(ctx context.Context) error
	// Append stores entry and returns it with ID and CreatedAt assigned.
	Append(ctx context.Context, entry Entry) (Entry, error)
	Get(ctx context.Context, id int64) (Entry, error)
	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
