package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopquery/shopquery/internal/auth"
	"github.com/shopquery/shopquery/internal/history"
	"github.com/shopquery/shopquery/internal/nl2sql"
	"github.com/shopquery/shopquery/internal/observability"
	"github.com/shopquery/shopquery/internal/query"
)

type translateRequest struct {
	Question string `json:"question"`
}

type askRequest struct {
	Question string `json:"question"`
	RowLimit int    `json:"row_limit"`
}

type askResponse struct {
	Question    string             `json:"question"`
	Translation nl2sql.Translation `json:"translation"`
	Columns     []string           `json:"columns"`
	Rows        [][]any            `json:"rows"`
	Metadata    query.Metadata     `json:"metadata"`
	HistoryID   int64              `json:"history_id,omitempty"`
}

func handleSuggestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": nl2sql.Suggestions()})
}

// handleTranslate answers blank questions with the fallback translation rather than a 400.
func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}
	var req translateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translation request body", false, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, translate(r.Context(), deps, req.Question))
}

// handleAsk translates, executes and records a question. Execution failures are part of the
// answer and still return 200 with metadata.success=false.
func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil || deps.Runner == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "translation and query dependencies are not configured", false, nil)
		return
	}
	var req askRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}

	translation := translate(r.Context(), deps, req.Question)
	result, metadata, err := run(r.Context(), deps, translation.SQL, req.RowLimit)
	if err != nil {
		deps.Logger.InfoContext(r.Context(), "question did not execute",
			slog.String("question", req.Question),
			slog.String("error", err.Error()),
		)
	}

	response := askResponse{
		Question:    req.Question,
		Translation: translation,
		Columns:     metadata.Columns,
		Rows:        result.Rows,
		Metadata:    metadata,
	}
	if response.Rows == nil {
		response.Rows = [][]any{}
	}
	if entry, ok := recordHistory(r.Context(), deps, req.Question, translation, metadata); ok {
		response.HistoryID = entry.ID
	}
	writeJSON(w, http.StatusOK, response)
}

func translate(ctx context.Context, deps Dependencies, question string) nl2sql.Translation {
	translation := deps.Translator.Translate(ctx, question)
	observability.ObserveTranslation(string(translation.Outcome), string(translation.Metadata.QueryType), translation.Metadata.Confidence)
	return translation
}

// recordHistory never fails the request; a broken history store is only logged.
func recordHistory(ctx context.Context, deps Dependencies, question string, translation nl2sql.Translation, metadata query.Metadata) (history.Entry, bool) {
	if deps.History == nil {
		return history.Entry{}, false
	}
	entry, err := deps.History.Append(ctx, history.Entry{
		Question:   question,
		SQL:        translation.SQL,
		Success:    metadata.Success,
		RowCount:   metadata.RowCount,
		Confidence: translation.Metadata.Confidence,
		Error:      metadata.Error,
		Principal:  auth.PrincipalFromContext(ctx),
	})
	if err != nil {
		deps.Logger.WarnContext(ctx, "history append failed", slog.String("error", err.Error()))
		return history.Entry{}, false
	}
	return entry, true
}
