package handlers

import (
	"net/http"

	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
)

// DashboardHandler serves the pipeline summary counts.
type DashboardHandler struct {
	entries storage.EntryStore
}

// NewDashboardHandler creates the dashboard handler.
func NewDashboardHandler(entries storage.EntryStore) *DashboardHandler {
	return &DashboardHandler{entries: entries}
}

// Summary handles GET /api/dashboard/summary. Every known state appears in
// the response, zero-valued when empty, so dashboards render stable rows.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	byState, err := h.entries.CountByState(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	failures, err := h.entries.CountFailuresByStatus(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	classified, err := h.entries.CountClassified(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	states := make(map[string]int, len(pipeline.States()))
	total := 0
	for _, state := range pipeline.States() {
		states[string(state)] = byState[state]
		total += byState[state]
	}
	failuresByStage := make(map[string]int, len(failures))
	for status, count := range failures {
		failuresByStage[string(status)] = count
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_entries":      total,
		"classified_entries": classified,
		"by_state":           states,
		"failures_by_stage":  failuresByStage,
	})
}
