// Package taxonomy is the governance layer over the canonical Type and Domain
// reference tables: validation, activation lifecycle and delete policy.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"memoflow/internal/contextutil"
	"memoflow/internal/events"
	"memoflow/internal/metrics"
	"memoflow/internal/storage"
)

var (
	// ErrImmutableField is returned when an update attempts to change the id.
	ErrImmutableField = errors.New("immutable field")
	// ErrDeleteDisabled is returned when hard deletes are not permitted by
	// the runtime governance toggle. A policy denial, not a bug.
	ErrDeleteDisabled = errors.New("hard delete disabled")
	// ErrInvalidInput is returned when a payload fails validation.
	ErrInvalidInput = errors.New("invalid taxonomy input")
)

const (
	defaultSortOrder = 500
	maxSortOrder     = 10000
)

// Service validates and audits taxonomy mutations. The hard-delete toggle is
// a function so governance can flip it without a restart; it is consulted on
// every delete call, never cached.
type Service struct {
	repo            storage.TaxonomyStore
	entries         storage.EntryStore
	emitter         events.Emitter
	allowHardDelete func() bool
	now             func() time.Time
}

// New creates a taxonomy Service.
func New(repo storage.TaxonomyStore, entries storage.EntryStore, emitter events.Emitter, allowHardDelete func() bool) *Service {
	return &Service{
		repo:            repo,
		entries:         entries,
		emitter:         emitter,
		allowHardDelete: allowHardDelete,
		now:             time.Now,
	}
}

// CreateInput is the payload for a new taxonomy record.
type CreateInput struct {
	ID          string
	Name        string // defaults to ID
	Label       string
	Description *string
	SortOrder   *int
	Metadata    map[string]any
}

// Create inserts a new active record. Duplicate ids and case-insensitive
// duplicate names are rejected with storage.ErrDuplicateTaxonomyKey.
func (s *Service) Create(ctx context.Context, kind storage.TaxonomyKind, in CreateInput, actor string) (*storage.TaxonomyRecord, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = id
	}
	sortOrder := defaultSortOrder
	if in.SortOrder != nil {
		if *in.SortOrder < 0 || *in.SortOrder > maxSortOrder {
			return nil, fmt.Errorf("%w: sort_order must be between 0 and %d", ErrInvalidInput, maxSortOrder)
		}
		sortOrder = *in.SortOrder
	}

	now := s.now().UTC()
	record := &storage.TaxonomyRecord{
		ID:          id,
		Name:        name,
		Label:       label,
		Description: in.Description,
		Active:      true,
		SortOrder:   sortOrder,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, kind, record); err != nil {
		return nil, err
	}

	s.audit(ctx, kind, "created", actor, nil, record, nil)
	s.refreshActiveGauge(ctx, kind)
	return record, nil
}

// UpdatePatch is a partial update. A non-nil ID differing from the record's
// id is rejected; the id is immutable once issued.
type UpdatePatch struct {
	ID          *string
	Name        *string
	Label       *string
	Description *string
	Active      *bool
	SortOrder   *int
	Metadata    map[string]any
}

// Update applies a patch to any field except id.
func (s *Service) Update(ctx context.Context, kind storage.TaxonomyKind, id string, patch UpdatePatch, actor string) (*storage.TaxonomyRecord, error) {
	if patch.ID != nil && *patch.ID != id {
		return nil, ErrImmutableField
	}
	if patch.Label != nil && strings.TrimSpace(*patch.Label) == "" {
		return nil, fmt.Errorf("%w: label must not be empty", ErrInvalidInput)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if patch.SortOrder != nil && (*patch.SortOrder < 0 || *patch.SortOrder > maxSortOrder) {
		return nil, fmt.Errorf("%w: sort_order must be between 0 and %d", ErrInvalidInput, maxSortOrder)
	}

	before, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, kind, id, storage.TaxonomyPatch{
		Name:        patch.Name,
		Label:       patch.Label,
		Description: patch.Description,
		Active:      patch.Active,
		SortOrder:   patch.SortOrder,
		Metadata:    patch.Metadata,
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}

	action := "updated"
	switch {
	case before.Active && !updated.Active:
		action = "deactivated"
	case !before.Active && updated.Active:
		action = "reactivated"
	}
	s.audit(ctx, kind, action, actor, before, updated, nil)
	if action != "updated" {
		s.refreshActiveGauge(ctx, kind)
	}
	return updated, nil
}

// Deactivate soft-deletes a record: it disappears from active listings but
// history and referencing entries are untouched. Reversible.
func (s *Service) Deactivate(ctx context.Context, kind storage.TaxonomyKind, id, actor string) (*storage.TaxonomyRecord, error) {
	active := false
	return s.Update(ctx, kind, id, UpdatePatch{Active: &active}, actor)
}

// Reactivate reverses a soft delete.
func (s *Service) Reactivate(ctx context.Context, kind storage.TaxonomyKind, id, actor string) (*storage.TaxonomyRecord, error) {
	active := true
	return s.Update(ctx, kind, id, UpdatePatch{Active: &active}, actor)
}

// Delete removes a record permanently, returning how many entries still
// reference it so the caller can surface a warning. It never cascades:
// referencing entries keep their now-dangling id and their label. The
// governance toggle is read on every call.
func (s *Service) Delete(ctx context.Context, kind storage.TaxonomyKind, id, actor string) (int, error) {
	if !s.allowHardDelete() {
		metrics.TaxonomyMutations.WithLabelValues(string(kind), "delete_blocked").Inc()
		return 0, ErrDeleteDisabled
	}

	record, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return 0, err
	}
	referenced, err := s.entries.CountTaxonomyRefs(ctx, kind, id)
	if err != nil {
		return 0, err
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return 0, err
	}

	payload := map[string]any{"referenced_entries": referenced}
	s.audit(ctx, kind, "deleted", actor, record, nil, payload)
	s.refreshActiveGauge(ctx, kind)

	contextutil.LoggerFromContext(ctx).WarnContext(ctx, "taxonomy record hard-deleted",
		"kind", string(kind), "id", id, "referenced_entries", referenced, "actor", actor)
	return referenced, nil
}

// Get fetches one record by id.
func (s *Service) Get(ctx context.Context, kind storage.TaxonomyKind, id string) (*storage.TaxonomyRecord, error) {
	return s.repo.Get(ctx, kind, id)
}

// List returns records ordered by sort_order then label.
func (s *Service) List(ctx context.Context, kind storage.TaxonomyKind, activeOnly bool) ([]*storage.TaxonomyRecord, error) {
	return s.repo.List(ctx, kind, activeOnly)
}

func (s *Service) audit(ctx context.Context, kind storage.TaxonomyKind, action, actor string, before, after *storage.TaxonomyRecord, payload map[string]any) {
	event := events.NewEvent(ctx, fmt.Sprintf("taxonomy.%s.%s", kind, action), actor)
	event.Before = recordSnapshot(before)
	event.After = recordSnapshot(after)
	event.Payload = payload
	s.emitter.Emit(ctx, event)
	metrics.TaxonomyMutations.WithLabelValues(string(kind), action).Inc()
}

func (s *Service) refreshActiveGauge(ctx context.Context, kind storage.TaxonomyKind) {
	records, err := s.repo.List(ctx, kind, true)
	if err != nil {
		return
	}
	metrics.TaxonomyActive.WithLabelValues(string(kind)).Set(float64(len(records)))
}

func recordSnapshot(record *storage.TaxonomyRecord) map[string]any {
	if record == nil {
		return nil
	}
	return map[string]any{
		"id":         record.ID,
		"name":       record.Name,
		"label":      record.Label,
		"active":     record.Active,
		"sort_order": record.SortOrder,
	}
}
