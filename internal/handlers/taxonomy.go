package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"memoflow/internal/storage"
	"memoflow/internal/taxonomy"
)

// TaxonomyHandler serves CRUD for one taxonomy kind. The type and domain
// routes share this handler; their payloads are structurally identical.
type TaxonomyHandler struct {
	service *taxonomy.Service
	kind    storage.TaxonomyKind
}

// NewTaxonomyHandler creates a taxonomy handler bound to one kind.
func NewTaxonomyHandler(service *taxonomy.Service, kind storage.TaxonomyKind) *TaxonomyHandler {
	return &TaxonomyHandler{service: service, kind: kind}
}

type taxonomyView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Description *string        `json:"description,omitempty"`
	Active      bool           `json:"active"`
	SortOrder   int            `json:"sort_order"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

func toTaxonomyView(record *storage.TaxonomyRecord) taxonomyView {
	return taxonomyView{
		ID:          record.ID,
		Name:        record.Name,
		Label:       record.Label,
		Description: record.Description,
		Active:      record.Active,
		SortOrder:   record.SortOrder,
		Metadata:    record.Metadata,
		CreatedAt:   record.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   record.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type taxonomyCreatePayload struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Description *string        `json:"description"`
	SortOrder   *int           `json:"sort_order"`
	Metadata    map[string]any `json:"metadata"`
}

// Create handles POST /api/{kind}s.
func (h *TaxonomyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload taxonomyCreatePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	record, err := h.service.Create(ctx, h.kind, taxonomy.CreateInput{
		ID:          payload.ID,
		Name:        payload.Name,
		Label:       payload.Label,
		Description: payload.Description,
		SortOrder:   payload.SortOrder,
		Metadata:    payload.Metadata,
	}, actorFrom(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaxonomyView(record))
}

// List handles GET /api/{kind}s. Inactive records are included only when
// include_inactive=true.
func (h *TaxonomyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activeOnly := r.URL.Query().Get("include_inactive") != "true"

	records, err := h.service.List(ctx, h.kind, activeOnly)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	views := make([]taxonomyView, 0, len(records))
	for _, record := range records {
		views = append(views, toTaxonomyView(record))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

// Get handles GET /api/{kind}s/{id}.
func (h *TaxonomyHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, err := h.service.Get(ctx, h.kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxonomyView(record))
}

type taxonomyUpdatePayload struct {
	ID          *string        `json:"id"`
	Name        *string        `json:"name"`
	Label       *string        `json:"label"`
	Description *string        `json:"description"`
	Active      *bool          `json:"active"`
	SortOrder   *int           `json:"sort_order"`
	Metadata    map[string]any `json:"metadata"`
}

// Update handles PATCH /api/{kind}s/{id}.
func (h *TaxonomyHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload taxonomyUpdatePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	record, err := h.service.Update(ctx, h.kind, chi.URLParam(r, "id"), taxonomy.UpdatePatch{
		ID:          payload.ID,
		Name:        payload.Name,
		Label:       payload.Label,
		Description: payload.Description,
		Active:      payload.Active,
		SortOrder:   payload.SortOrder,
		Metadata:    payload.Metadata,
	}, actorFrom(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxonomyView(record))
}

// Delete handles DELETE /api/{kind}s/{id}: a hard delete, gated by the
// governance toggle. The response reports how many entries still reference
// the deleted record.
func (h *TaxonomyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	referenced, err := h.service.Delete(ctx, h.kind, chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":            true,
		"referenced_entries": referenced,
	})
}
