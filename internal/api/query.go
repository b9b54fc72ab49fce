package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/duckask/duckask/internal/history"
)

const maxHistoryLimit = 500

type askRequest struct {
	Question string `json:"question"`
}

type queryRequest struct {
	SQL string `json:"sql"`
}

// handleAsk runs a full cycle. Pipeline failures are results, so they are
// answered with 200 and success=false.
func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "query session is not configured", false, nil)
		return
	}

	var request askRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	question := strings.TrimSpace(request.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	writeJSON(w, http.StatusOK, deps.Session.Ask(r.Context(), question))
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "query session is not configured", false, nil)
		return
	}

	var request queryRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	writeJSON(w, http.StatusOK, deps.Session.RunSQL(r.Context(), request.SQL))
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "query session is not configured", false, nil)
		return
	}
	schema := deps.Session.Schema()
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  deps.Session.SessionID(),
		"table_count": len(schema.Tables),
		"tables":      schema.Tables,
		"rendered":    schema.Render(),
	})
}

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "query session is not configured", false, nil)
		return
	}

	limit := history.DefaultRecentLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxHistoryLimit {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 500", false, map[string]any{"limit": raw})
			return
		}
		limit = parsed
	}

	entries, err := deps.Session.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, history.ErrDisabled) {
			writeError(r.Context(), w, http.StatusNotFound, "HISTORY_DISABLED", "query history is disabled", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "failed to read query history", true, map[string]any{"details": err.Error()})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": deps.Session.SessionID(),
		"entries":    entries,
		"count":      len(entries),
	})
}
