package web

import (
	"net/http"
	"strconv"
	"time"

	"redline/internal/domain/outbox"
)

// Development-only diagnostics. Not registered in production.

// handlePerf serves the rolling timing snapshot. GET /debug/perf?window=15m
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if app.Collector == nil {
		http.NotFound(w, r)
		return
	}
	window := 15 * time.Minute
	if d, err := time.ParseDuration(r.URL.Query().Get("window")); err == nil && d > 0 {
		window = d
	}
	writeJSON(w, http.StatusOK, app.Collector.Snapshot(timeNow().Add(-window), 10))
}

// outboxRow is the listed view of an entry. The payload is left out
// because it carries the lead's address.
type outboxRow struct {
	ID              string    `json:"id"`
	ActionType      string    `json:"action_type"`
	Status          string    `json:"status"`
	Attempts        int       `json:"attempts"`
	MaxAttempts     int       `json:"max_attempts"`
	LastAttemptedAt time.Time `json:"last_attempted_at"`
	CreatedAt       time.Time `json:"created_at"`
	ExternalID      string    `json:"external_id,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// handleDebugOutbox lists queued or failed notifications.
// GET /debug/outbox?status=failed|pending&limit=N
func handleDebugOutbox(w http.ResponseWriter, r *http.Request) {
	if app.Outbox == nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	var entries []outbox.Entry
	var err error
	switch r.URL.Query().Get("status") {
	case "", outbox.StatusFailed:
		entries, err = app.Outbox.ListFailed(ctx, limit)
	case outbox.StatusPending:
		entries, err = app.Outbox.ListPending(ctx, limit)
	default:
		http.Error(w, "status must be failed or pending", http.StatusBadRequest)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	rows := make([]outboxRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, outboxRow{
			ID:              e.ID,
			ActionType:      e.ActionType,
			Status:          e.Status,
			Attempts:        e.Attempts,
			MaxAttempts:     e.MaxAttempts,
			LastAttemptedAt: e.LastAttemptedAt,
			CreatedAt:       e.CreatedAt,
			ExternalID:      e.ExternalID,
			ErrorMessage:    e.ErrorMessage,
		})
	}
	writeJSON(w, http.StatusOK, rows)
}
