package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_entry_store.go -package=mocks memoflow/internal/storage EntryStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"memoflow/internal/pipeline"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateFingerprint is returned when an insert collides with the
	// (source_channel, ingest_fingerprint) uniqueness constraint. Expected
	// under concurrent duplicate submissions; the caller re-reads the winner.
	ErrDuplicateFingerprint = errors.New("duplicate fingerprint")
)

// StateUpdate describes a compare-and-set state change plus the stage output
// fields written in the same statement.
type StateUpdate struct {
	Target    pipeline.Pair
	Output    OutputFields
	LastError *string
	Retryable bool
	// ClearError resets last_error/retryable, used when leaving failed.
	ClearError bool
	UpdatedAt  time.Time
}

// OutputFields carries stage-specific payloads. Each field is written by
// exactly one stage; nil leaves the column untouched.
type OutputFields struct {
	TranscriptionText *string
	ExtractedText     *string
	NormalizedText    *string
	SemanticSummary   *string
	SemanticTags      []string
}

// TaxonomyAssignment is an atomic update of one (id, label) reference pair.
// A nil ID with Set=true explicitly clears the pointer while keeping the label.
type TaxonomyAssignment struct {
	Set   bool
	ID    *string
	Label string
}

// EntryStore defines the persistence interface the entry store aggregate
// composes. Implemented by EntryRepo.
type EntryStore interface {
	Insert(ctx context.Context, entry *EntryRecord) error
	Get(ctx context.Context, entryID string) (*EntryRecord, error)
	FindByFingerprint(ctx context.Context, fingerprint, sourceChannel string) (*EntryRecord, error)
	UpdateState(ctx context.Context, entryID string, expected pipeline.Pair, update StateUpdate) (bool, error)
	UpdateTaxonomy(ctx context.Context, entryID string, typeRef, domainRef TaxonomyAssignment, updatedAt time.Time) error
	CountTaxonomyRefs(ctx context.Context, kind TaxonomyKind, taxonomyID string) (int, error)
	Search(ctx context.Context, filters EntrySearchFilters) (*EntrySearchResult, error)
	CountByState(ctx context.Context) (map[pipeline.IngestState]int, error)
	CountFailuresByStatus(ctx context.Context) (map[pipeline.PipelineStatus]int, error)
	CountClassified(ctx context.Context) (int, error)
}

// EntryRepo provides methods for entry row operations.
// It implements the EntryStore interface.
type EntryRepo struct {
	db *sql.DB
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(db *sql.DB) *EntryRepo {
	return &EntryRepo{db: db}
}

const entryColumns = `entry_id, ingest_state, pipeline_status, ingest_fingerprint,
	fingerprint_algo, source_channel, source_type, source_path,
	transcription_text, extracted_text, normalized_text, semantic_summary,
	semantic_tags, type_id, type_label, domain_id, domain_label,
	last_error, retryable, created_at, updated_at`

// Insert stores a new entry row. The fingerprint uniqueness constraint is
// enforced by the database, not by a lookup-then-insert sequence, so the
// insert itself is the race arbiter.
func (r *EntryRepo) Insert(ctx context.Context, entry *EntryRecord) error {
	tags, err := marshalTags(entry.SemanticTags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntryID, string(entry.IngestState), string(entry.PipelineStatus),
		entry.IngestFingerprint, entry.FingerprintAlgo,
		entry.SourceChannel, entry.SourceType, entry.SourcePath,
		entry.TranscriptionText, entry.ExtractedText, entry.NormalizedText,
		entry.SemanticSummary, tags,
		entry.TypeID, entry.TypeLabel, entry.DomainID, entry.DomainLabel,
		entry.LastError, boolToInt(entry.Retryable),
		formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateFingerprint
	}
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// Get fetches an entry by ID. Returns ErrNotFound if no row exists.
func (r *EntryRepo) Get(ctx context.Context, entryID string) (*EntryRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE entry_id = ?`, entryID)
	return scanEntry(row)
}

// FindByFingerprint answers the idempotent-ingestion lookup: does an entry
// with this fingerprint and source channel already exist?
func (r *EntryRepo) FindByFingerprint(ctx context.Context, fingerprint, sourceChannel string) (*EntryRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE ingest_fingerprint = ? AND source_channel = ?`,
		fingerprint, sourceChannel)
	return scanEntry(row)
}

// UpdateState performs the optimistic compare-and-set at the heart of every
// pipeline transition: the row is updated only if its persisted
// (ingest_state, pipeline_status) still equals the expected pair. The stage
// output fields land in the same statement so a state advance and its payload
// can never be observed independently. Returns false when the CAS lost.
func (r *EntryRepo) UpdateState(ctx context.Context, entryID string, expected pipeline.Pair, update StateUpdate) (bool, error) {
	sets := []string{"ingest_state = ?", "pipeline_status = ?", "updated_at = ?"}
	args := []any{string(update.Target.State), string(update.Target.Status), formatTime(update.UpdatedAt)}

	if update.Output.TranscriptionText != nil {
		sets = append(sets, "transcription_text = ?")
		args = append(args, *update.Output.TranscriptionText)
	}
	if update.Output.ExtractedText != nil {
		sets = append(sets, "extracted_text = ?")
		args = append(args, *update.Output.ExtractedText)
	}
	if update.Output.NormalizedText != nil {
		sets = append(sets, "normalized_text = ?")
		args = append(args, *update.Output.NormalizedText)
	}
	if update.Output.SemanticSummary != nil {
		sets = append(sets, "semantic_summary = ?")
		args = append(args, *update.Output.SemanticSummary)
	}
	if update.Output.SemanticTags != nil {
		tags, err := marshalTags(update.Output.SemanticTags)
		if err != nil {
			return false, err
		}
		sets = append(sets, "semantic_tags = ?")
		args = append(args, tags)
	}
	if update.LastError != nil {
		sets = append(sets, "last_error = ?", "retryable = ?")
		args = append(args, *update.LastError, boolToInt(update.Retryable))
	} else if update.ClearError {
		sets = append(sets, "last_error = NULL", "retryable = 0")
	}

	args = append(args, entryID, string(expected.State), string(expected.Status))
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET `+strings.Join(sets, ", ")+`
		 WHERE entry_id = ? AND ingest_state = ? AND pipeline_status = ?`,
		args...)
	if err != nil {
		return false, fmt.Errorf("failed to update entry state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

// UpdateTaxonomy writes one or both (id, label) reference pairs in a single
// statement so a pair can never desynchronize. An assignment with Set=false
// leaves the stored pair untouched.
func (r *EntryRepo) UpdateTaxonomy(ctx context.Context, entryID string, typeRef, domainRef TaxonomyAssignment, updatedAt time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(updatedAt)}

	if typeRef.Set {
		sets = append(sets, "type_id = ?", "type_label = ?")
		args = append(args, typeRef.ID, typeRef.Label)
	}
	if domainRef.Set {
		sets = append(sets, "domain_id = ?", "domain_label = ?")
		args = append(args, domainRef.ID, domainRef.Label)
	}
	args = append(args, entryID)

	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET `+strings.Join(sets, ", ")+` WHERE entry_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update entry taxonomy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTaxonomyRefs counts the entries currently pointing at a taxonomy row.
func (r *EntryRepo) CountTaxonomyRefs(ctx context.Context, kind TaxonomyKind, taxonomyID string) (int, error) {
	column := "type_id"
	if kind == KindDomain {
		column = "domain_id"
	}
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE `+column+` = ?`, taxonomyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count taxonomy references: %w", err)
	}
	return count, nil
}

// CountByState returns entry counts grouped by ingest state.
func (r *EntryRepo) CountByState(ctx context.Context) (map[pipeline.IngestState]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ingest_state, COUNT(*) FROM entries GROUP BY ingest_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries by state: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[pipeline.IngestState]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts[pipeline.IngestState(state)] = count
	}
	return counts, rows.Err()
}

// CountFailuresByStatus returns failed-entry counts grouped by the stage that failed.
func (r *EntryRepo) CountFailuresByStatus(ctx context.Context) (map[pipeline.PipelineStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pipeline_status, COUNT(*) FROM entries
		 WHERE ingest_state = ? GROUP BY pipeline_status`,
		string(pipeline.StateFailed))
	if err != nil {
		return nil, fmt.Errorf("failed to count failures: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[pipeline.PipelineStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan failure count: %w", err)
		}
		counts[pipeline.PipelineStatus(status)] = count
	}
	return counts, rows.Err()
}

// CountClassified counts entries with a type assigned.
func (r *EntryRepo) CountClassified(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE type_id IS NOT NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count classified entries: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*EntryRecord, error) {
	var e EntryRecord
	var state, status string
	var tags sql.NullString
	var retryable int
	var createdAt, updatedAt string

	err := row.Scan(
		&e.EntryID, &state, &status, &e.IngestFingerprint, &e.FingerprintAlgo,
		&e.SourceChannel, &e.SourceType, &e.SourcePath,
		&e.TranscriptionText, &e.ExtractedText, &e.NormalizedText,
		&e.SemanticSummary, &tags,
		&e.TypeID, &e.TypeLabel, &e.DomainID, &e.DomainLabel,
		&e.LastError, &retryable, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.IngestState = pipeline.IngestState(state)
	e.PipelineStatus = pipeline.PipelineStatus(status)
	e.Retryable = retryable != 0
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &e.SemanticTags); err != nil {
			return nil, fmt.Errorf("failed to parse semantic tags: %w", err)
		}
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func marshalTags(tags []string) (any, error) {
	if tags == nil {
		return nil, nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode semantic tags: %w", err)
	}
	return string(raw), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		// SQLite CURRENT_TIMESTAMP fallback format
		t, err = time.Parse("2006-01-02 15:04:05", value)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
		}
	}
	return t, nil
}
