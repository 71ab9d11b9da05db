package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopquery/shopquery/internal/observability"
	"github.com/shopquery/shopquery/internal/query"
	"github.com/shopquery/shopquery/internal/safety"
)

type sqlRequest struct {
	SQL string `json:"sql"`
}

type queryRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type queryResponse struct {
	Columns  []string       `json:"columns"`
	Rows     [][]any        `json:"rows"`
	Metadata query.Metadata `json:"metadata"`
}

type validateResponse struct {
	Valid       bool         `json:"valid"`
	Message     string       `json:"message"`
	Stats       safety.Stats `json:"stats"`
	Suggestions []string     `json:"suggestions"`
}

func handleValidate(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid validation request body", false, map[string]any{"details": err.Error()})
		return
	}
	verdict := safety.Validate(req.SQL)
	observability.ObserveValidation(verdict.Valid)
	suggestions := safety.Suggest(req.SQL)
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:       verdict.Valid,
		Message:     verdict.Message,
		Stats:       safety.Analyze(req.SQL),
		Suggestions: suggestions,
	})
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Runner == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}
	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}

	result, metadata, err := run(r.Context(), deps, req.SQL, req.RowLimit)
	if err != nil {
		status, code, retryable := classifyQueryError(err)
		writeError(r.Context(), w, status, code, metadata.Error, retryable, map[string]any{"metadata": metadata})
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Columns: metadata.Columns, Rows: result.Rows, Metadata: metadata})
}

// run executes through the safety gate and records the outcome.
func run(ctx context.Context, deps Dependencies, sqlText string, rowLimit int) (query.Result, query.Metadata, error) {
	result, metadata, err := deps.Runner.Run(ctx, sqlText, rowLimit)
	status := "success"
	if err != nil {
		status = string(query.KindOf(err))
	}
	observability.ObserveValidation(err == nil || query.KindOf(err) != query.KindSafety)
	observability.ObserveQueryExecution(status, time.Duration(metadata.ExecutionSeconds*float64(time.Second)))
	return result, metadata, err
}

func classifyQueryError(err error) (int, string, bool) {
	switch query.KindOf(err) {
	case query.KindSafety:
		return http.StatusBadRequest, "SQL_NOT_ALLOWED", false
	case query.KindDatabase:
		return http.StatusUnprocessableEntity, "QUERY_FAILED", false
	case query.KindConnection:
		return http.StatusServiceUnavailable, "ENGINE_UNAVAILABLE", true
	default:
		return http.StatusInternalServerError, "QUERY_EXECUTION_FAILED", true
	}
}
