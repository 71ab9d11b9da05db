package query

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEngine struct {
	result   Result
	err      error
	block    bool
	requests []Request
	pingErr  error
}

func (f *fakeEngine) Execute(ctx context.Context, request Request) (Result, error) {
	f.requests = append(f.requests, request)
	if f.block {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeEngine) Ping(context.Context) error {
	return f.pingErr
}

func newTestExecutor(t *testing.T, engine Engine, opts ExecutorOptions) *Executor {
	t.Helper()
	executor, err := NewExecutor(engine, opts)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return executor
}

func TestRunRejectsUnsafeSQLWithoutCallingEngine(t *testing.T) {
	engine := &fakeEngine{}
	executor := newTestExecutor(t, engine, ExecutorOptions{})

	_, metadata, err := executor.Run(context.Background(), "DROP TABLE customers", 0)
	if err == nil {
		t.Fatal("expected safety error")
	}
	if KindOf(err) != KindSafety {
		t.Fatalf("KindOf() = %q", KindOf(err))
	}
	if metadata.Success || metadata.Error != "Operation 'DROP' is not allowed for safety reasons" {
		t.Fatalf("metadata = %#v", metadata)
	}
	if metadata.ErrorKind != KindSafety || metadata.Query != "DROP TABLE customers" {
		t.Fatalf("metadata = %#v", metadata)
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine called %d times", len(engine.requests))
	}
}

func TestRunForwardsOnlyTheValidatedText(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{sql: "SELECT *\n  FROM customers -- newest first\n", want: "SELECT * FROM customers"},
		{sql: "SELECT /* x */ 1", want: "SELECT 1"},
		{
			sql:  "SELECT '--' AS a FROM customers) AS q; DROP TABLE orders; SELECT * FROM (SELECT 1",
			want: "SELECT '",
		},
	}
	for _, tc := range tests {
		engine := &fakeEngine{}
		executor := newTestExecutor(t, engine, ExecutorOptions{})
		_, metadata, err := executor.Run(context.Background(), tc.sql, 0)
		if err != nil {
			t.Fatalf("Run(%q) error = %v", tc.sql, err)
		}
		if len(engine.requests) != 1 || engine.requests[0].SQL != tc.want {
			t.Fatalf("Run(%q) engine requests = %#v", tc.sql, engine.requests)
		}
		if metadata.Query != tc.sql {
			t.Fatalf("metadata.Query = %q", metadata.Query)
		}
	}
}

func TestRunReportsSuccessMetadata(t *testing.T) {
	engine := &fakeEngine{result: Result{
		Columns:  []string{"result"},
		Rows:     [][]any{{int64(200)}},
		Duration: 1500 * time.Millisecond,
	}}
	executor := newTestExecutor(t, engine, ExecutorOptions{MaxRowLimit: 50})

	result, metadata, err := executor.Run(context.Background(), "SELECT COUNT(*) AS result FROM orders", 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("rows = %#v", result.Rows)
	}
	if !metadata.Success || metadata.RowCount != 1 || metadata.ExecutionSeconds != 1.5 {
		t.Fatalf("metadata = %#v", metadata)
	}
	if len(metadata.Columns) != 1 || metadata.Columns[0] != "result" || metadata.Error != "" {
		t.Fatalf("metadata = %#v", metadata)
	}
	if engine.requests[0].RowLimit != 50 {
		t.Fatalf("row limit = %d", engine.requests[0].RowLimit)
	}
}

func TestRunClampsRowLimit(t *testing.T) {
	engine := &fakeEngine{}
	executor := newTestExecutor(t, engine, ExecutorOptions{MaxRowLimit: 100})

	for _, tc := range []struct{ requested, want int }{{0, 100}, {-3, 100}, {10, 10}, {100, 100}, {5000, 100}} {
		if _, _, err := executor.Run(context.Background(), "SELECT 1", tc.requested); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		last := engine.requests[len(engine.requests)-1]
		if last.RowLimit != tc.want {
			t.Fatalf("Run(limit=%d) engine limit = %d, want %d", tc.requested, last.RowLimit, tc.want)
		}
	}
}

func TestRunClassifiesEngineErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    ErrorKind
		message string
	}{
		{name: "connection", err: ConnectionError(errors.New("manifest missing")), kind: KindConnection, message: "Database connection error: manifest missing"},
		{name: "database", err: DatabaseError(errors.New("no such column")), kind: KindDatabase, message: "Database error: no such column"},
		{name: "unclassified", err: errors.New("scan failed"), kind: KindExecution, message: "Execution error: scan failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			executor := newTestExecutor(t, &fakeEngine{err: tc.err}, ExecutorOptions{})
			_, metadata, err := executor.Run(context.Background(), "SELECT 1", 0)
			if err == nil || err.Error() != tc.message {
				t.Fatalf("Run() error = %v, want %q", err, tc.message)
			}
			if metadata.Success || metadata.ErrorKind != tc.kind || metadata.Error != tc.message {
				t.Fatalf("metadata = %#v", metadata)
			}
			if !errors.Is(err, errors.Unwrap(tc.err)) && !errors.Is(err, tc.err) {
				t.Fatalf("Run() error does not wrap engine error")
			}
		})
	}
}

func TestRunTimesOut(t *testing.T) {
	executor := newTestExecutor(t, &fakeEngine{block: true}, ExecutorOptions{Timeout: 10 * time.Millisecond})
	_, metadata, err := executor.Run(context.Background(), "SELECT 1", 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v", err)
	}
	if metadata.ErrorKind != KindExecution {
		t.Fatalf("metadata = %#v", metadata)
	}
}

func TestPingDelegatesToEngine(t *testing.T) {
	executor := newTestExecutor(t, &fakeEngine{pingErr: errors.New("closed")}, ExecutorOptions{})
	if err := executor.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestNewExecutorRequiresEngine(t *testing.T) {
	if _, err := NewExecutor(nil, ExecutorOptions{}); err == nil {
		t.Fatal("expected error for nil engine")
	}
}
