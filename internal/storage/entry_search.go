package storage

import (
	"context"
	"fmt"
	"strings"

	"memoflow/internal/pipeline"
)

// EntrySearchFilters is the normalized filter set for entry list queries.
type EntrySearchFilters struct {
	Terms          []string
	States         []pipeline.IngestState
	TypeIDs        []string
	DomainIDs      []string
	SourceChannels []string
	SourceTypes    []string
	SortBy         string // updated_at (default) or created_at
	SortDir        string // desc (default) or asc
	Limit          int
	Offset         int
}

// EntrySearchResult is a page of matching entries plus the total match count.
type EntrySearchResult struct {
	Items []*EntryRecord
	Total int
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 200
)

// Search lists entries matching the filters with deterministic ordering and
// limit/offset pagination.
func (r *EntryRepo) Search(ctx context.Context, filters EntrySearchFilters) (*EntrySearchResult, error) {
	where, args := buildEntryFilters(filters)

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries`+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	sortBy := "updated_at"
	if filters.SortBy == "created_at" {
		sortBy = "created_at"
	}
	sortDir := "DESC"
	if strings.EqualFold(filters.SortDir, "asc") {
		sortDir = "ASC"
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + entryColumns + ` FROM entries` + where +
		` ORDER BY ` + sortBy + ` ` + sortDir + `, entry_id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := &EntrySearchResult{Total: total}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, entry)
	}
	return result, rows.Err()
}

func buildEntryFilters(filters EntrySearchFilters) (string, []any) {
	var clauses []string
	var args []any

	addIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = "?"
			args = append(args, v)
		}
		clauses = append(clauses, column+" IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(filters.States) > 0 {
		states := make([]string, len(filters.States))
		for i, s := range filters.States {
			states[i] = string(s)
		}
		addIn("ingest_state", states)
	}
	addIn("type_id", filters.TypeIDs)
	addIn("domain_id", filters.DomainIDs)
	addIn("source_channel", filters.SourceChannels)
	addIn("source_type", filters.SourceTypes)

	for _, term := range filters.Terms {
		like := "%" + term + "%"
		clauses = append(clauses,
			`(normalized_text LIKE ? OR semantic_summary LIKE ? OR type_label LIKE ? OR domain_label LIKE ?)`)
		args = append(args, like, like, like, like)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
