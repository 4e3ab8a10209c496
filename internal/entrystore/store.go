// Package entrystore is the aggregate root over entry rows: it composes the
// fingerprint index, the pipeline state machine and the audit emitter, and is
// the only component callers mutate entries through.
package entrystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"memoflow/internal/contextutil"
	"memoflow/internal/events"
	"memoflow/internal/metrics"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
)

// SystemActor identifies mutations not attributable to a worker or operator.
const SystemActor = "system"

// Store coordinates all entry mutations through atomic repository operations.
type Store struct {
	entries  storage.EntryStore
	taxonomy storage.TaxonomyStore
	emitter  events.Emitter
	now      func() time.Time
}

// New creates a Store. The taxonomy store is consulted only to verify that a
// referenced id exists at write time; entries hold no owning reference.
func New(entries storage.EntryStore, taxonomy storage.TaxonomyStore, emitter events.Emitter) *Store {
	return &Store{
		entries:  entries,
		taxonomy: taxonomy,
		emitter:  emitter,
		now:      time.Now,
	}
}

// NewEntry describes an ingestion attempt.
type NewEntry struct {
	// Fingerprint is the externally computed capture fingerprint; empty for
	// manual captures predating fingerprinting.
	Fingerprint     string
	FingerprintAlgo string
	SourceChannel   string
	SourceType      string
	SourcePath      *string
	// RawText carries manual-capture text; it is stored as extracted_text so
	// the extraction stage passes it through unchanged.
	RawText *string
	// InitialStatus must pair with the captured state; defaults to captured.
	InitialStatus pipeline.PipelineStatus
	// RetryFailed requests that a fingerprint match in the failed state be
	// reset into its stage queue instead of being treated as a duplicate.
	RetryFailed bool
	Actor       string
}

// CreateOrDedupe creates a new captured entry, or returns the existing entry
// when the fingerprint index already knows this capture. Exactly one of N
// concurrent identical submissions wins the insert; losers receive the
// winner's entry with created=false. The uniqueness constraint on
// (source_channel, ingest_fingerprint) is the sole serialization point.
func (s *Store) CreateOrDedupe(ctx context.Context, in NewEntry) (*storage.EntryRecord, bool, error) {
	status := in.InitialStatus
	if status == "" {
		status = pipeline.StatusCaptured
	}
	initial := pipeline.Pair{State: pipeline.StateCaptured, Status: status}
	if !initial.Valid() {
		return nil, false, pipeline.ErrInvalidStateCombination
	}

	if in.Fingerprint != "" {
		existing, err := s.entries.FindByFingerprint(ctx, in.Fingerprint, in.SourceChannel)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, false, err
		}
		if existing != nil {
			return s.resolveDuplicate(ctx, existing, in)
		}
	}

	now := s.now().UTC()
	entry := &storage.EntryRecord{
		EntryID:        uuid.New().String(),
		IngestState:    initial.State,
		PipelineStatus: initial.Status,
		SourceChannel:  in.SourceChannel,
		SourceType:     in.SourceType,
		SourcePath:     in.SourcePath,
		ExtractedText:  in.RawText,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Fingerprint != "" {
		entry.IngestFingerprint = &in.Fingerprint
		if in.FingerprintAlgo != "" {
			entry.FingerprintAlgo = &in.FingerprintAlgo
		}
	}

	err := s.entries.Insert(ctx, entry)
	if errors.Is(err, storage.ErrDuplicateFingerprint) {
		// Lost the insert race; the winner's row is authoritative.
		winner, lookupErr := s.entries.FindByFingerprint(ctx, in.Fingerprint, in.SourceChannel)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("failed to resolve dedup winner: %w", lookupErr)
		}
		metrics.DedupHits.WithLabelValues(in.SourceChannel).Inc()
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	metrics.EntriesCreated.WithLabelValues(in.SourceType).Inc()
	event := events.NewEvent(ctx, "entry.created", actorOr(in.Actor))
	event.After = entrySnapshot(entry)
	s.emitter.Emit(ctx, event)

	return entry, true, nil
}

// resolveDuplicate applies the idempotency decision policy: a live match is a
// no-op duplicate; a failed match may be reset back into its stage queue when
// the caller requests a retry.
func (s *Store) resolveDuplicate(ctx context.Context, existing *storage.EntryRecord, in NewEntry) (*storage.EntryRecord, bool, error) {
	metrics.DedupHits.WithLabelValues(in.SourceChannel).Inc()

	if existing.IngestState != pipeline.StateFailed || !in.RetryFailed {
		return existing, false, nil
	}

	target, ok := pipeline.ResetTarget(existing.PipelineStatus)
	if !ok {
		return nil, false, pipeline.ErrInvalidStateCombination
	}
	entry, err := s.Reset(ctx, existing.EntryID, actorOr(in.Actor), target)
	if errors.Is(err, ErrStaleTransition) {
		// Someone else already moved it; re-read and hand back the current row.
		entry, err = s.entries.Get(ctx, existing.EntryID)
	}
	if err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

// TransitionRequest describes one compare-and-set pipeline advance together
// with the stage output written in the same atomic unit.
type TransitionRequest struct {
	Expected pipeline.Pair
	Target   pipeline.Pair
	// SemanticSkipped marks the configured semantic-stage skip; see pipeline.Request.
	SemanticSkipped bool
	Output          storage.OutputFields
	// Failure must be set when the target state is failed.
	Failure *FailureInfo
	Actor   string
}

// FailureInfo captures why a stage failed and whether a retry could succeed.
type FailureInfo struct {
	Message   string
	Retryable bool
}

// ApplyPipelineOutput validates the transition against the state machine and
// applies it with an optimistic compare-and-set. The stage payload lands in
// the same statement, so a state advance and its output are never observable
// independently. Losers of a concurrent race receive ErrStaleTransition.
func (s *Store) ApplyPipelineOutput(ctx context.Context, entryID string, req TransitionRequest) (*storage.EntryRecord, error) {
	if err := pipeline.Evaluate(req.Expected, pipeline.Request{
		Target:          req.Target,
		SemanticSkipped: req.SemanticSkipped,
	}); err != nil {
		// Contract violation: a worker asked for an unreachable target.
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "rejected pipeline transition",
			"entry_id", entryID,
			"expected_state", string(req.Expected.State),
			"expected_status", string(req.Expected.Status),
			"target_state", string(req.Target.State),
			"target_status", string(req.Target.Status),
			"error", err,
		)
		return nil, err
	}

	update := storage.StateUpdate{
		Target:    req.Target,
		Output:    req.Output,
		UpdatedAt: s.now().UTC(),
	}
	if req.Target.State == pipeline.StateFailed {
		if req.Failure == nil {
			return nil, pipeline.ErrIllegalTransition
		}
		update.LastError = &req.Failure.Message
		update.Retryable = req.Failure.Retryable
	}

	return s.applyCAS(ctx, entryID, req.Expected, update, "entry.transition", actorOr(req.Actor), nil)
}

// Reset is the only path that moves a failed entry back into a queue state.
// It is always attributed to a human operator and audited as an override.
func (s *Store) Reset(ctx context.Context, entryID, operatorID string, target pipeline.Pair) (*storage.EntryRecord, error) {
	entry, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := pipeline.Evaluate(entry.Pair(), pipeline.Request{
		Target:        target,
		OperatorReset: true,
	}); err != nil {
		return nil, err
	}

	update := storage.StateUpdate{
		Target:     target,
		ClearError: true,
		UpdatedAt:  s.now().UTC(),
	}
	payload := map[string]any{"human_override": true}
	return s.applyCAS(ctx, entryID, entry.Pair(), update, "entry.reset", operatorID, payload)
}

func (s *Store) applyCAS(ctx context.Context, entryID string, expected pipeline.Pair, update storage.StateUpdate, topic, actor string, payload map[string]any) (*storage.EntryRecord, error) {
	ok, err := s.entries.UpdateState(ctx, entryID, expected, update)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, getErr := s.entries.Get(ctx, entryID); errors.Is(getErr, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		metrics.StaleTransitions.Inc()
		return nil, ErrStaleTransition
	}

	entry, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues(string(expected.State), string(update.Target.State)).Inc()
	event := events.NewEvent(ctx, topic, actor)
	event.Before = pairSnapshot(expected)
	event.After = entrySnapshot(entry)
	event.Payload = payload
	s.emitter.Emit(ctx, event)

	return entry, nil
}

// TaxonomyRef is one requested (id, label) pair. A nil ID with a label set
// explicitly clears the pointer; a nil Label alongside a non-nil ID is a
// contract violation.
type TaxonomyRef struct {
	ID    *string
	Label *string
}

// SetTaxonomy atomically updates the entry's type and/or domain reference
// pairs. A nil ref leaves the stored pair untouched. Supplied ids must
// reference rows that exist at write time; the pointer is not retroactively
// invalidated if the row is later deactivated or deleted.
func (s *Store) SetTaxonomy(ctx context.Context, entryID string, typeRef, domainRef *TaxonomyRef, actor string) (*storage.EntryRecord, error) {
	typeAssign, err := s.resolveRef(ctx, storage.KindType, typeRef)
	if err != nil {
		return nil, err
	}
	domainAssign, err := s.resolveRef(ctx, storage.KindDomain, domainRef)
	if err != nil {
		return nil, err
	}
	if !typeAssign.Set && !domainAssign.Set {
		return s.entries.Get(ctx, entryID)
	}

	before, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := s.entries.UpdateTaxonomy(ctx, entryID, typeAssign, domainAssign, s.now().UTC()); err != nil {
		return nil, err
	}

	entry, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(ctx, "entry.taxonomy_updated", actorOr(actor))
	event.Before = taxonomySnapshot(before)
	event.After = taxonomySnapshot(entry)
	s.emitter.Emit(ctx, event)

	return entry, nil
}

func (s *Store) resolveRef(ctx context.Context, kind storage.TaxonomyKind, ref *TaxonomyRef) (storage.TaxonomyAssignment, error) {
	if ref == nil {
		return storage.TaxonomyAssignment{}, nil
	}
	if ref.Label == nil {
		return storage.TaxonomyAssignment{}, ErrIncompleteTaxonomyPair
	}
	if ref.ID != nil {
		if _, err := s.taxonomy.Get(ctx, kind, *ref.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return storage.TaxonomyAssignment{}, fmt.Errorf("%w: %s %q", ErrUnknownTaxonomyRef, kind, *ref.ID)
			}
			return storage.TaxonomyAssignment{}, err
		}
	}
	return storage.TaxonomyAssignment{Set: true, ID: ref.ID, Label: *ref.Label}, nil
}

// Get fetches an entry by id.
func (s *Store) Get(ctx context.Context, entryID string) (*storage.EntryRecord, error) {
	return s.entries.Get(ctx, entryID)
}

// Search lists entries matching the filters.
func (s *Store) Search(ctx context.Context, filters storage.EntrySearchFilters) (*storage.EntrySearchResult, error) {
	return s.entries.Search(ctx, filters)
}

func actorOr(actor string) string {
	if actor == "" {
		return SystemActor
	}
	return actor
}

func pairSnapshot(pair pipeline.Pair) map[string]any {
	return map[string]any{
		"ingest_state":    string(pair.State),
		"pipeline_status": string(pair.Status),
	}
}

func entrySnapshot(entry *storage.EntryRecord) map[string]any {
	return map[string]any{
		"entry_id":        entry.EntryID,
		"ingest_state":    string(entry.IngestState),
		"pipeline_status": string(entry.PipelineStatus),
		"source_channel":  entry.SourceChannel,
		"source_type":     entry.SourceType,
	}
}

func taxonomySnapshot(entry *storage.EntryRecord) map[string]any {
	return map[string]any{
		"entry_id":     entry.EntryID,
		"type_id":      derefOrNil(entry.TypeID),
		"type_label":   derefOrNil(entry.TypeLabel),
		"domain_id":    derefOrNil(entry.DomainID),
		"domain_label": derefOrNil(entry.DomainLabel),
	}
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
