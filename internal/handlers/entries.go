package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"memoflow/internal/entrystore"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
)

// EntriesHandler serves entry reads, operator resets and taxonomy assignment.
type EntriesHandler struct {
	store *entrystore.Store
}

// NewEntriesHandler creates the entries handler.
func NewEntriesHandler(store *entrystore.Store) *EntriesHandler {
	return &EntriesHandler{store: store}
}

// entryView is the JSON shape of one entry.
type entryView struct {
	EntryID           string   `json:"entry_id"`
	IngestState       string   `json:"ingest_state"`
	PipelineStatus    string   `json:"pipeline_status"`
	IngestFingerprint *string  `json:"ingest_fingerprint,omitempty"`
	FingerprintAlgo   *string  `json:"fingerprint_algo,omitempty"`
	SourceChannel     string   `json:"source_channel"`
	SourceType        string   `json:"source_type"`
	SourcePath        *string  `json:"source_path,omitempty"`
	TranscriptionText *string  `json:"transcription_text,omitempty"`
	ExtractedText     *string  `json:"extracted_text,omitempty"`
	NormalizedText    *string  `json:"normalized_text,omitempty"`
	SemanticSummary   *string  `json:"semantic_summary,omitempty"`
	SemanticTags      []string `json:"semantic_tags,omitempty"`
	TypeID            *string  `json:"type_id,omitempty"`
	TypeLabel         *string  `json:"type_label,omitempty"`
	DomainID          *string  `json:"domain_id,omitempty"`
	DomainLabel       *string  `json:"domain_label,omitempty"`
	LastError         *string  `json:"last_error,omitempty"`
	Retryable         bool     `json:"retryable"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func toEntryView(entry *storage.EntryRecord) entryView {
	return entryView{
		EntryID:           entry.EntryID,
		IngestState:       string(entry.IngestState),
		PipelineStatus:    string(entry.PipelineStatus),
		IngestFingerprint: entry.IngestFingerprint,
		FingerprintAlgo:   entry.FingerprintAlgo,
		SourceChannel:     entry.SourceChannel,
		SourceType:        entry.SourceType,
		SourcePath:        entry.SourcePath,
		TranscriptionText: entry.TranscriptionText,
		ExtractedText:     entry.ExtractedText,
		NormalizedText:    entry.NormalizedText,
		SemanticSummary:   entry.SemanticSummary,
		SemanticTags:      entry.SemanticTags,
		TypeID:            entry.TypeID,
		TypeLabel:         entry.TypeLabel,
		DomainID:          entry.DomainID,
		DomainLabel:       entry.DomainLabel,
		LastError:         entry.LastError,
		Retryable:         entry.Retryable,
		CreatedAt:         entry.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         entry.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// List handles GET /api/entries.
func (h *EntriesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filters := storage.EntrySearchFilters{
		Terms:          strings.Fields(q.Get("q")),
		SourceChannels: splitParam(q.Get("source_channel")),
		SourceTypes:    splitParam(q.Get("source_type")),
		TypeIDs:        splitParam(q.Get("type_id")),
		DomainIDs:      splitParam(q.Get("domain_id")),
		SortBy:         q.Get("sort_by"),
		SortDir:        q.Get("sort_dir"),
	}
	for _, raw := range splitParam(q.Get("state")) {
		state := pipeline.IngestState(raw)
		if len(pipeline.AllowedStatuses(state)) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown state: " + raw})
			return
		}
		filters.States = append(filters.States, state)
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		filters.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "offset must be a non-negative integer"})
			return
		}
		filters.Offset = offset
	}

	result, err := h.store.Search(ctx, filters)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]entryView, 0, len(result.Items))
	for _, entry := range result.Items {
		items = append(items, toEntryView(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": result.Total,
	})
}

// Get handles GET /api/entries/{id}.
func (h *EntriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.store.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryView(entry))
}

// Reset handles POST /api/entries/{id}/reset: a human override moving a
// failed entry back into the queue of the stage that failed.
func (h *EntriesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	entry, err := h.store.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	target, ok := pipeline.ResetTarget(entry.PipelineStatus)
	if !ok {
		writeError(ctx, w, pipeline.ErrIllegalTransition)
		return
	}

	operator := actorFrom(r)
	if operator == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "X-Actor header is required for resets"})
		return
	}

	updated, err := h.store.Reset(ctx, id, operator, target)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryView(updated))
}

// taxonomyRefPayload mirrors entrystore.TaxonomyRef. The "set" distinction
// matters: an absent field leaves the stored pair untouched, a present field
// with a null id clears the pointer.
type taxonomyRefPayload struct {
	ID    *string `json:"id"`
	Label *string `json:"label"`
}

type setTaxonomyPayload struct {
	Type   *taxonomyRefPayload `json:"type"`
	Domain *taxonomyRefPayload `json:"domain"`
}

// SetTaxonomy handles PUT /api/entries/{id}/taxonomy.
func (h *EntriesHandler) SetTaxonomy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload setTaxonomyPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	entry, err := h.store.SetTaxonomy(ctx, chi.URLParam(r, "id"),
		toTaxonomyRef(payload.Type), toTaxonomyRef(payload.Domain), actorFrom(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryView(entry))
}

func toTaxonomyRef(p *taxonomyRefPayload) *entrystore.TaxonomyRef {
	if p == nil {
		return nil
	}
	return &entrystore.TaxonomyRef{ID: p.ID, Label: p.Label}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
