package handlers

import (
	"net/http"
	"strings"

	"memoflow/internal/capture"
	"memoflow/internal/contextutil"
	"memoflow/internal/entrystore"
	"memoflow/internal/jobqueue"
	"memoflow/internal/pipeline"
)

// CaptureHandler accepts manual text captures over the API. Manual captures
// carry no fingerprint and skip the dedup index entirely.
type CaptureHandler struct {
	store *entrystore.Store
	queue *jobqueue.Queue
}

// NewCaptureHandler creates the manual capture handler.
func NewCaptureHandler(store *entrystore.Store, queue *jobqueue.Queue) *CaptureHandler {
	return &CaptureHandler{store: store, queue: queue}
}

type capturePayload struct {
	Text       string `json:"text"`
	SourceType string `json:"source_type"`
}

// ServeHTTP handles POST /api/capture.
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload capturePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}
	sourceType := payload.SourceType
	if sourceType == "" {
		sourceType = capture.SourceTypeNote
	}

	entry, _, err := h.store.CreateOrDedupe(ctx, entrystore.NewEntry{
		SourceChannel: capture.ChannelManualAPI,
		SourceType:    sourceType,
		RawText:       &text,
		InitialStatus: pipeline.StatusIngested,
		Actor:         actorFrom(r),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// Manual captures carry their text already, so they enter at extraction
	// and pass straight through it.
	entry, err = h.store.ApplyPipelineOutput(ctx, entry.EntryID, entrystore.TransitionRequest{
		Expected: entry.Pair(),
		Target:   pipeline.Pair{State: pipeline.StateQueuedForExtraction, Status: pipeline.StatusQueuedForExtraction},
		Actor:    actorFrom(r),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.queue.Enqueue(ctx, jobqueue.Job{
		Type:          jobqueue.TypeExtraction,
		EntryID:       entry.EntryID,
		CorrelationID: contextutil.CorrelationIDFromContext(ctx),
	}); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryView(entry))
}
