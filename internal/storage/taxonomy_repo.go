package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_taxonomy_store.go -package=mocks memoflow/internal/storage TaxonomyStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateTaxonomyKey is returned when a create collides with an existing
// id or a case-insensitive duplicate name.
var ErrDuplicateTaxonomyKey = errors.New("duplicate taxonomy key")

// TaxonomyPatch describes a partial update. Nil fields are left untouched.
type TaxonomyPatch struct {
	Name        *string
	Label       *string
	Description *string
	Active      *bool
	SortOrder   *int
	Metadata    map[string]any
}

// TaxonomyStore defines the persistence interface for canonical Type and
// Domain reference rows. Implemented by TaxonomyRepo.
type TaxonomyStore interface {
	Create(ctx context.Context, kind TaxonomyKind, record *TaxonomyRecord) error
	Get(ctx context.Context, kind TaxonomyKind, id string) (*TaxonomyRecord, error)
	Update(ctx context.Context, kind TaxonomyKind, id string, patch TaxonomyPatch, updatedAt time.Time) (*TaxonomyRecord, error)
	Delete(ctx context.Context, kind TaxonomyKind, id string) error
	List(ctx context.Context, kind TaxonomyKind, activeOnly bool) ([]*TaxonomyRecord, error)
}

// TaxonomyRepo provides methods for taxonomy reference rows.
// It implements the TaxonomyStore interface.
type TaxonomyRepo struct {
	db *sql.DB
}

// NewTaxonomyRepo creates a new TaxonomyRepo.
func NewTaxonomyRepo(db *sql.DB) *TaxonomyRepo {
	return &TaxonomyRepo{db: db}
}

func tableFor(kind TaxonomyKind) string {
	if kind == KindDomain {
		return "taxonomy_domains"
	}
	return "taxonomy_types"
}

const taxonomyColumns = `id, name, label, description, active, sort_order, metadata, created_at, updated_at`

// Create inserts a new taxonomy row. Duplicate ids and case-insensitive
// duplicate names are rejected by the table's uniqueness constraints.
func (r *TaxonomyRepo) Create(ctx context.Context, kind TaxonomyKind, record *TaxonomyRecord) error {
	meta, err := marshalMetadata(record.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO `+tableFor(kind)+` (`+taxonomyColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Name, record.Label, record.Description,
		boolToInt(record.Active), record.SortOrder, meta,
		formatTime(record.CreatedAt), formatTime(record.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateTaxonomyKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert taxonomy record: %w", err)
	}
	return nil
}

// Get fetches a taxonomy row by id. Returns ErrNotFound if no row exists.
func (r *TaxonomyRepo) Get(ctx context.Context, kind TaxonomyKind, id string) (*TaxonomyRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taxonomyColumns+` FROM `+tableFor(kind)+` WHERE id = ?`, id)
	return scanTaxonomy(row)
}

// Update applies a partial update and returns the updated row. The id column
// is never part of the SET clause; immutability is enforced above this layer.
func (r *TaxonomyRepo) Update(ctx context.Context, kind TaxonomyKind, id string, patch TaxonomyPatch, updatedAt time.Time) (*TaxonomyRecord, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(updatedAt)}

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Label != nil {
		sets = append(sets, "label = ?")
		args = append(args, *patch.Label)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, boolToInt(*patch.Active))
	}
	if patch.SortOrder != nil {
		sets = append(sets, "sort_order = ?")
		args = append(args, *patch.SortOrder)
	}
	if patch.Metadata != nil {
		meta, err := marshalMetadata(patch.Metadata)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "metadata = ?")
		args = append(args, meta)
	}
	args = append(args, id)

	query := "UPDATE " + tableFor(kind) + " SET "
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += " WHERE id = ?"

	res, err := r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateTaxonomyKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update taxonomy record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, kind, id)
}

// Delete removes a taxonomy row permanently. Returns ErrNotFound if no row
// exists. It never touches referencing entries.
func (r *TaxonomyRepo) Delete(ctx context.Context, kind TaxonomyKind, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM `+tableFor(kind)+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete taxonomy record: %w", err)
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

// List returns taxonomy rows ordered by sort_order then label, the ordering
// dropdown-style callers rely on.
func (r *TaxonomyRepo) List(ctx context.Context, kind TaxonomyKind, activeOnly bool) ([]*TaxonomyRecord, error) {
	query := `SELECT ` + taxonomyColumns + ` FROM ` + tableFor(kind)
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY sort_order ASC, label ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list taxonomy records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*TaxonomyRecord
	for rows.Next() {
		record, err := scanTaxonomy(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanTaxonomy(row rowScanner) (*TaxonomyRecord, error) {
	var record TaxonomyRecord
	var active int
	var meta sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&record.ID, &record.Name, &record.Label, &record.Description,
		&active, &record.SortOrder, &meta, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan taxonomy record: %w", err)
	}

	record.Active = active != 0
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse taxonomy metadata: %w", err)
		}
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &record, nil
}

func marshalMetadata(meta map[string]any) (any, error) {
	if meta == nil {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode taxonomy metadata: %w", err)
	}
	return string(raw), nil
}
