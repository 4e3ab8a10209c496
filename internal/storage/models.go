package storage

import (
	"time"

	"memoflow/internal/pipeline"
)

// EntryRecord represents one captured content unit tracked through the pipeline.
type EntryRecord struct {
	EntryID           string
	IngestState       pipeline.IngestState
	PipelineStatus    pipeline.PipelineStatus
	IngestFingerprint *string // nullable; legacy/manual captures have none
	FingerprintAlgo   *string
	SourceChannel     string
	SourceType        string
	SourcePath        *string
	TranscriptionText *string
	ExtractedText     *string
	NormalizedText    *string
	SemanticSummary   *string
	SemanticTags      []string
	TypeID            *string // soft pointer into taxonomy_types, may dangle
	TypeLabel         *string
	DomainID          *string // soft pointer into taxonomy_domains, may dangle
	DomainLabel       *string
	LastError         *string
	Retryable         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Pair returns the persisted (ingest_state, pipeline_status) combination.
func (e *EntryRecord) Pair() pipeline.Pair {
	return pipeline.Pair{State: e.IngestState, Status: e.PipelineStatus}
}

// TaxonomyKind selects one of the two canonical reference tables.
type TaxonomyKind string

const (
	KindType   TaxonomyKind = "type"
	KindDomain TaxonomyKind = "domain"
)

// TaxonomyRecord is a canonical Type or Domain reference row.
type TaxonomyRecord struct {
	ID          string // slug, immutable once issued
	Name        string // short operator code, unique case-insensitively
	Label       string
	Description *string
	Active      bool
	SortOrder   int
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
