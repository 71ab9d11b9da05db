package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopquery/shopquery/internal/schema"
)

const (
	defaultSampleRows = 5
	maxSampleRows     = 100
)

type tableSample struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Registry == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema registry is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":        deps.Registry.Tables(),
		"relationships": deps.Registry.Relationships(),
		"aliases":       deps.Registry.Aliases(),
		"cities":        deps.Registry.Cities(),
	})
}

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Registry == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema registry is not configured", false, nil)
		return
	}
	tables := deps.Registry.Tables()
	items := make([]map[string]any, 0, len(tables))
	for _, table := range tables {
		items = append(items, tableInfo(table))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": items})
}

// handleGetTable returns the table definition and its first rows.
func handleGetTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Registry == nil || deps.Runner == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "schema and query dependencies are not configured", false, nil)
		return
	}
	tableName := strings.TrimSpace(r.PathValue("table"))
	table, ok := deps.Registry.Table(tableName)
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table was not found", false, map[string]any{"table": tableName})
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultSampleRows, maxSampleRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", err.Error(), false, nil)
		return
	}

	result, metadata, err := run(r.Context(), deps, "SELECT * FROM "+table.Name, limit)
	if err != nil {
		status, code, retryable := classifyQueryError(err)
		writeError(r.Context(), w, status, code, metadata.Error, retryable, map[string]any{"table": table.Name})
		return
	}
	info := tableInfo(table)
	rows := result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	info["sample"] = tableSample{Columns: metadata.Columns, Rows: rows}
	writeJSON(w, http.StatusOK, info)
}

func tableInfo(table schema.Table) map[string]any {
	return map[string]any{
		"table_name": table.Name,
		"columns":    table.Columns,
		"synonyms":   table.Synonyms,
	}
}

func parseLimit(raw string, fallback, upper int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > upper {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", upper)
	}
	return limit, nil
}
