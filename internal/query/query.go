package query

import (
	"context"
	"errors"
	"time"
)

type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
	Ping(ctx context.Context) error
}

type ErrorKind string

const (
	KindSafety     ErrorKind = "safety"
	KindConnection ErrorKind = "connection"
	KindDatabase   ErrorKind = "database"
	KindExecution  ErrorKind = "execution"
)

// ExecutionError classifies why a statement produced no result. The message prefix is part of
// the contract shown to callers.
type ExecutionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ExecutionError) Error() string {
	switch e.Kind {
	case KindSafety:
		return e.Err.Error()
	case KindConnection:
		return "Database connection error: " + e.Err.Error()
	case KindDatabase:
		return "Database error: " + e.Err.Error()
	default:
		return "Execution error: " + e.Err.Error()
	}
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func ConnectionError(err error) error {
	return &ExecutionError{Kind: KindConnection, Err: err}
}

func DatabaseError(err error) error {
	return &ExecutionError{Kind: KindDatabase, Err: err}
}

// KindOf returns the classification carried by err, or KindExecution when it has none.
func KindOf(err error) ErrorKind {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return KindExecution
}
