package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb/v2"

	"github.com/shopquery/shopquery/internal/dataset"
	"github.com/shopquery/shopquery/internal/query"
	"github.com/shopquery/shopquery/internal/schema"
	"github.com/shopquery/shopquery/internal/storage"
)

const dateLayout = "2006-01-02"

// lockdownStatements run once the dataset is loaded. Afterwards statements cannot reach files or
// the network, and cannot change settings back.
var lockdownStatements = []string{
	"SET enable_external_access = false",
	"SET lock_configuration = true",
}

// Engine serves statements from an in-process DuckDB database. The published dataset is loaded
// into typed tables on first use and kept for the life of the engine.
type Engine struct {
	store    storage.ObjectStore
	registry *schema.Registry
	dataset  string
	logger   *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

func NewEngine(store storage.ObjectStore, registry *schema.Registry, datasetName string, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("schema registry is required")
	}
	if strings.TrimSpace(datasetName) == "" {
		return nil, fmt.Errorf("dataset name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, registry: registry, dataset: datasetName, logger: logger}, nil
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if hasStatementSeparator(sqlText) {
		return query.Result{}, query.DatabaseError(errors.New("only a single statement is allowed"))
	}
	db, err := e.handle(ctx)
	if err != nil {
		return query.Result{}, err
	}

	start := time.Now()
	if request.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, request.RowLimit)
	}

	// Prepared statements hold exactly one statement; the driver refuses anything more.
	stmt, err := db.PrepareContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, query.DatabaseError(err)
	}
	defer func() { _ = stmt.Close() }()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return query.Result{}, query.DatabaseError(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return query.Result{}, fmt.Errorf("query column types: %w", err)
	}
	typeNames := make([]string, len(columnTypes))
	for i, columnType := range columnTypes {
		typeNames[i] = columnType.DatabaseTypeName()
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values, typeNames))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, query.DatabaseError(err)
	}

	return query.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// Ping loads the dataset if needed and runs a trivial statement against it.
func (e *Engine) Ping(ctx context.Context) error {
	db, err := e.handle(ctx)
	if err != nil {
		return err
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return query.ConnectionError(err)
	}
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

// handle returns the loaded database. A failed load is retried on the next call.
func (e *Engine) handle(ctx context.Context) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db != nil {
		return e.db, nil
	}
	db, err := e.load(ctx)
	if err != nil {
		return nil, query.ConnectionError(err)
	}
	e.db = db
	return db, nil
}

func (e *Engine) load(ctx context.Context) (*sql.DB, error) {
	manifest, err := dataset.LoadManifest(ctx, e.store, e.dataset)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("dataset %q has not been published", e.dataset)
		}
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "shopquery-dataset-")
	if err != nil {
		return nil, fmt.Errorf("create dataset temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	for _, table := range e.registry.Tables() {
		if err := e.loadTable(ctx, db, workDir, manifest, table); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	for _, statement := range lockdownStatements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("lock down duckdb: %w", err)
		}
	}
	e.logger.InfoContext(ctx, "dataset loaded",
		slog.String("dataset", manifest.Dataset),
		slog.Int64("seed", manifest.Seed),
		slog.Int("tables", len(manifest.Tables)),
	)
	return db, nil
}

func (e *Engine) loadTable(ctx context.Context, db *sql.DB, workDir string, manifest dataset.Manifest, table schema.Table) error {
	object, ok := manifest.Table(table.Name)
	if !ok {
		return fmt.Errorf("dataset %q has no object for table %q", manifest.Dataset, table.Name)
	}

	reader, err := e.store.Get(ctx, object.Key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", object.Key, err)
	}
	localPath := filepath.Join(workDir, sanitizeFileComponent(table.Name)+".parquet")
	if err := writeFile(localPath, reader); err != nil {
		_ = reader.Close()
		return fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	if err := reader.Close(); err != nil {
		return fmt.Errorf("close object %q: %w", object.Key, err)
	}

	ddl, err := e.registry.CreateTableDDL(table.Name)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %q: %w", table.Name, err)
	}
	if _, err := db.ExecContext(ctx, insertFromParquet(table, localPath)); err != nil {
		return fmt.Errorf("load table %q: %w", table.Name, err)
	}
	return nil
}

// insertFromParquet casts every parquet column to the registry type; dates travel as text and
// money as doubles.
func insertFromParquet(table schema.Table, localPath string) string {
	names := make([]string, 0, len(table.Columns))
	casts := make([]string, 0, len(table.Columns))
	for _, column := range table.Columns {
		names = append(names, quoteIdent(column.Name))
		casts = append(casts, fmt.Sprintf("CAST(%s AS %s)", quoteIdent(column.Name), column.Type))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM read_parquet(%s)",
		quoteIdent(table.Name),
		strings.Join(names, ", "),
		strings.Join(casts, ", "),
		quoteString(localPath),
	)
}

func normalizeValues(values []any, typeNames []string) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case *big.Int:
			if typed.IsInt64() {
				normalized[i] = typed.Int64()
			} else {
				normalized[i] = typed.String()
			}
		case time.Time:
			if i < len(typeNames) && typeNames[i] == "DATE" {
				normalized[i] = typed.Format(dateLayout)
			} else {
				normalized[i] = typed
			}
		case goduckdb.Decimal:
			normalized[i] = typed.Float64()
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// hasStatementSeparator reports a semicolon outside quoted literals and identifiers.
func hasStatementSeparator(sqlText string) bool {
	var quote rune
	for _, r := range sqlText {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			return true
		}
	}
	return false
}
