package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopquery/shopquery/internal/history"
)

func handleListHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history repository is not configured", false, nil)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), history.DefaultListLimit, history.MaxListLimit)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", err.Error(), false, nil)
		return
	}
	entries, err := deps.History.List(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to list history", true, map[string]any{"details": err.Error()})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "limit": limit})
}

func handleGetHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history repository is not configured", false, nil)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_HISTORY_ID", "history id must be a positive integer", false, nil)
		return
	}
	entry, err := deps.History.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "HISTORY_NOT_FOUND", "history entry was not found", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to get history entry", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
