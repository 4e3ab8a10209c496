// Package pipeline is the single source of truth for entry lifecycle states:
// which (ingest_state, pipeline_status) pairs are legal and which transitions
// between them are legal. Every rule is evaluated purely against a current
// pair and a requested target pair; there is no hidden state.
package pipeline

import "errors"

var (
	// ErrInvalidStateCombination is returned when a (ingest_state, pipeline_status)
	// pair is not present in the pairing matrix. This indicates a caller bug.
	ErrInvalidStateCombination = errors.New("invalid state combination")
	// ErrIllegalTransition is returned when the requested target pair is not
	// reachable from the current pair. This indicates a caller bug.
	ErrIllegalTransition = errors.New("illegal transition")
)

// IngestState is the coarse lifecycle phase of an entry.
type IngestState string

const (
	StateCaptured                IngestState = "captured"
	StateQueuedForTranscription  IngestState = "queued_for_transcription"
	StateProcessingTranscription IngestState = "processing_transcription"
	StateQueuedForExtraction     IngestState = "queued_for_extraction"
	StateProcessingExtraction    IngestState = "processing_extraction"
	StateProcessingNormalization IngestState = "processing_normalization"
	StateProcessingSemantic      IngestState = "processing_semantic"
	StateProcessed               IngestState = "processed"
	StateFailed                  IngestState = "failed"
)

// PipelineStatus is the fine-grained status within an ingest state.
type PipelineStatus string

const (
	StatusCaptured                PipelineStatus = "captured"
	StatusIngested                PipelineStatus = "ingested"
	StatusQueuedForTranscription  PipelineStatus = "queued_for_transcription"
	StatusTranscriptionInProgress PipelineStatus = "transcription_in_progress"
	StatusTranscriptionComplete   PipelineStatus = "transcription_complete"
	StatusTranscriptionFailed     PipelineStatus = "transcription_failed"
	StatusQueuedForExtraction     PipelineStatus = "queued_for_extraction"
	StatusExtractionInProgress    PipelineStatus = "extraction_in_progress"
	StatusExtractionComplete      PipelineStatus = "extraction_complete"
	StatusExtractionFailed        PipelineStatus = "extraction_failed"
	StatusQueuedForNormalization  PipelineStatus = "queued_for_normalization"
	StatusNormalizationInProgress PipelineStatus = "normalization_in_progress"
	StatusNormalizationComplete   PipelineStatus = "normalization_complete"
	StatusNormalizationFailed     PipelineStatus = "normalization_failed"
	StatusQueuedForSemantics      PipelineStatus = "queued_for_semantics"
	StatusSemanticInProgress      PipelineStatus = "semantic_in_progress"
	StatusSemanticComplete        PipelineStatus = "semantic_complete"
	StatusSemanticFailed          PipelineStatus = "semantic_failed"
)

// Pair is a persisted (ingest_state, pipeline_status) combination.
type Pair struct {
	State  IngestState
	Status PipelineStatus
}

// DefaultPair is the pair assigned to newly captured entries.
var DefaultPair = Pair{State: StateCaptured, Status: StatusCaptured}

// statusesByState is the pairing matrix: the pipeline statuses each ingest
// state may carry. Any pair outside this matrix is invalid.
var statusesByState = map[IngestState][]PipelineStatus{
	StateCaptured:                {StatusCaptured, StatusIngested},
	StateQueuedForTranscription:  {StatusQueuedForTranscription},
	StateProcessingTranscription: {StatusTranscriptionInProgress},
	StateQueuedForExtraction:     {StatusQueuedForExtraction},
	StateProcessingExtraction:    {StatusExtractionInProgress},
	StateProcessingNormalization: {StatusTranscriptionComplete, StatusExtractionComplete, StatusQueuedForNormalization, StatusNormalizationInProgress},
	StateProcessingSemantic:      {StatusNormalizationComplete, StatusQueuedForSemantics, StatusSemanticInProgress},
	StateProcessed:               {StatusSemanticComplete, StatusNormalizationComplete},
	StateFailed:                  {StatusTranscriptionFailed, StatusExtractionFailed, StatusNormalizationFailed, StatusSemanticFailed},
}

// transitions maps a current ingest state to the statuses that may be applied
// next, and the ingest state each status lands in. A status mapping back to
// the same state is a lateral move within that phase.
var transitions = map[IngestState]map[PipelineStatus]IngestState{
	StateCaptured: {
		StatusCaptured:               StateCaptured,
		StatusIngested:               StateCaptured,
		StatusQueuedForTranscription: StateQueuedForTranscription,
		StatusQueuedForExtraction:    StateQueuedForExtraction,
	},
	StateQueuedForTranscription: {
		StatusQueuedForTranscription:  StateQueuedForTranscription,
		StatusTranscriptionInProgress: StateProcessingTranscription,
	},
	StateProcessingTranscription: {
		StatusTranscriptionInProgress: StateProcessingTranscription,
		StatusTranscriptionComplete:   StateProcessingNormalization,
		StatusQueuedForNormalization:  StateProcessingNormalization,
		StatusTranscriptionFailed:     StateFailed,
	},
	StateQueuedForExtraction: {
		StatusQueuedForExtraction:  StateQueuedForExtraction,
		StatusExtractionInProgress: StateProcessingExtraction,
	},
	StateProcessingExtraction: {
		StatusExtractionInProgress:   StateProcessingExtraction,
		StatusExtractionComplete:     StateProcessingNormalization,
		StatusQueuedForNormalization: StateProcessingNormalization,
		StatusExtractionFailed:       StateFailed,
	},
	StateProcessingNormalization: {
		StatusTranscriptionComplete:   StateProcessingNormalization,
		StatusExtractionComplete:      StateProcessingNormalization,
		StatusQueuedForNormalization:  StateProcessingNormalization,
		StatusNormalizationInProgress: StateProcessingNormalization,
		StatusNormalizationComplete:   StateProcessingSemantic,
		StatusNormalizationFailed:     StateFailed,
	},
	StateProcessingSemantic: {
		StatusNormalizationComplete: StateProcessingSemantic,
		StatusQueuedForSemantics:    StateProcessingSemantic,
		StatusSemanticInProgress:    StateProcessingSemantic,
		StatusSemanticComplete:      StateProcessed,
		StatusSemanticFailed:        StateFailed,
	},
	StateProcessed: {
		StatusSemanticComplete:      StateProcessed,
		StatusNormalizationComplete: StateProcessed,
	},
	StateFailed: {
		StatusTranscriptionFailed: StateFailed,
		StatusExtractionFailed:    StateFailed,
		StatusNormalizationFailed: StateFailed,
		StatusSemanticFailed:      StateFailed,
	},
}

// resetTargets maps a terminal failure status to the queue pair an operator
// reset re-enters the pipeline at: the stage that failed, never earlier or later.
var resetTargets = map[PipelineStatus]Pair{
	StatusTranscriptionFailed: {State: StateQueuedForTranscription, Status: StatusQueuedForTranscription},
	StatusExtractionFailed:    {State: StateQueuedForExtraction, Status: StatusQueuedForExtraction},
	StatusNormalizationFailed: {State: StateProcessingNormalization, Status: StatusQueuedForNormalization},
	StatusSemanticFailed:      {State: StateProcessingSemantic, Status: StatusQueuedForSemantics},
}

// failureStatusByState maps an active stage to its matching failure status.
var failureStatusByState = map[IngestState]PipelineStatus{
	StateProcessingTranscription: StatusTranscriptionFailed,
	StateProcessingExtraction:    StatusExtractionFailed,
	StateProcessingNormalization: StatusNormalizationFailed,
	StateProcessingSemantic:      StatusSemanticFailed,
}

// Valid reports whether the pair is present in the pairing matrix.
func (p Pair) Valid() bool {
	for _, s := range statusesByState[p.State] {
		if s == p.Status {
			return true
		}
	}
	return false
}

// Terminal reports whether the state only leaves via an operator reset.
func (s IngestState) Terminal() bool {
	return s == StateProcessed || s == StateFailed
}

// AllowedStatuses returns the pipeline statuses legal for the given ingest state.
func AllowedStatuses(s IngestState) []PipelineStatus {
	out := make([]PipelineStatus, len(statusesByState[s]))
	copy(out, statusesByState[s])
	return out
}

// States returns every known ingest state.
func States() []IngestState {
	return []IngestState{
		StateCaptured,
		StateQueuedForTranscription,
		StateProcessingTranscription,
		StateQueuedForExtraction,
		StateProcessingExtraction,
		StateProcessingNormalization,
		StateProcessingSemantic,
		StateProcessed,
		StateFailed,
	}
}

// ResetTarget returns the queue pair a failed entry with the given failure
// status may be reset into.
func ResetTarget(failure PipelineStatus) (Pair, bool) {
	target, ok := resetTargets[failure]
	return target, ok
}

// FailureStatus returns the failure status matching the stage that is active
// in the given state.
func FailureStatus(s IngestState) (PipelineStatus, bool) {
	status, ok := failureStatusByState[s]
	return status, ok
}

// Request describes a requested transition.
type Request struct {
	Target Pair
	// SemanticSkipped marks that configuration intentionally skips the
	// semantic stage, permitting processing_normalization to complete
	// directly into processed/normalization_complete. It is an explicit
	// signal, never inferred from a stage not having run.
	SemanticSkipped bool
	// OperatorReset marks a human override moving a failed entry back into
	// the queue of the stage that failed.
	OperatorReset bool
}

// Evaluate decides whether the requested transition is legal from the given
// current pair. It returns nil for legal transitions (including lateral moves
// within a phase), ErrInvalidStateCombination when either pair is outside the
// pairing matrix, and ErrIllegalTransition when the target is not reachable.
func Evaluate(from Pair, req Request) error {
	if !from.Valid() || !req.Target.Valid() {
		return ErrInvalidStateCombination
	}

	if req.OperatorReset {
		if from.State != StateFailed {
			return ErrIllegalTransition
		}
		target, ok := resetTargets[from.Status]
		if !ok || target != req.Target {
			return ErrIllegalTransition
		}
		return nil
	}

	if req.SemanticSkipped &&
		from.State == StateProcessingNormalization &&
		req.Target == (Pair{State: StateProcessed, Status: StatusNormalizationComplete}) {
		return nil
	}

	next, ok := transitions[from.State][req.Target.Status]
	if !ok || next != req.Target.State {
		return ErrIllegalTransition
	}
	return nil
}
