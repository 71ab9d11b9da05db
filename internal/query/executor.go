package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopquery/shopquery/internal/safety"
)

const (
	defaultRowLimit = 1000
	defaultTimeout  = 30 * time.Second
)

// Metadata describes one execution attempt. Failed attempts keep the query and the error text.
type Metadata struct {
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	ErrorKind        ErrorKind `json:"error_kind,omitempty"`
	RowCount         int       `json:"row_count"`
	ExecutionSeconds float64   `json:"execution_time"`
	Columns          []string  `json:"columns"`
	Query            string    `json:"query"`
}

type ExecutorOptions struct {
	// MaxRowLimit caps every statement; requests asking for more, or for no limit, get this cap.
	MaxRowLimit int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Executor is the only path from SQL text to the engine: every statement passes the safety gate
// first.
type Executor struct {
	engine  Engine
	maxRows int
	timeout time.Duration
	logger  *slog.Logger
}

func NewExecutor(engine Engine, opts ExecutorOptions) (*Executor, error) {
	if engine == nil {
		return nil, fmt.Errorf("query engine is required")
	}
	if opts.MaxRowLimit <= 0 {
		opts.MaxRowLimit = defaultRowLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Executor{
		engine:  engine,
		maxRows: opts.MaxRowLimit,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}, nil
}

// Run validates and executes sqlText. The engine receives the cleaned text the gate inspected,
// never the raw input. The returned error is always an *ExecutionError and its text equals
// Metadata.Error.
func (e *Executor) Run(ctx context.Context, sqlText string, rowLimit int) (Result, Metadata, error) {
	metadata := Metadata{Query: sqlText, Columns: []string{}}

	verdict := safety.Validate(sqlText)
	if !verdict.Valid {
		err := &ExecutionError{Kind: KindSafety, Err: errors.New(verdict.Message)}
		return Result{}, e.fail(ctx, metadata, err), err
	}
	validated := safety.Clean(sqlText)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	result, err := e.engine.Execute(runCtx, Request{SQL: validated, RowLimit: e.rowLimit(rowLimit)})
	elapsed := time.Since(start)
	metadata.ExecutionSeconds = elapsed.Seconds()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("query exceeded %s timeout: %w", e.timeout, err)
		}
		var execErr *ExecutionError
		if !errors.As(err, &execErr) {
			execErr = &ExecutionError{Kind: KindExecution, Err: err}
		}
		return Result{}, e.fail(ctx, metadata, execErr), execErr
	}

	if result.Duration <= 0 {
		result.Duration = elapsed
	}
	metadata.Success = true
	metadata.RowCount = len(result.Rows)
	metadata.ExecutionSeconds = result.Duration.Seconds()
	if len(result.Columns) > 0 {
		metadata.Columns = result.Columns
	}
	return result, metadata, nil
}

func (e *Executor) Ping(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.engine.Ping(runCtx)
}

func (e *Executor) rowLimit(requested int) int {
	if requested <= 0 || requested > e.maxRows {
		return e.maxRows
	}
	return requested
}

func (e *Executor) fail(ctx context.Context, metadata Metadata, err *ExecutionError) Metadata {
	metadata.Error = err.Error()
	metadata.ErrorKind = err.Kind
	e.logger.InfoContext(ctx, "query rejected",
		slog.String("kind", string(err.Kind)),
		slog.String("error", metadata.Error),
	)
	return metadata
}
