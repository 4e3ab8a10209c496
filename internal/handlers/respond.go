// Package handlers contains the HTTP handlers for the JSON API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"memoflow/internal/contextutil"
	"memoflow/internal/entrystore"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
	"memoflow/internal/taxonomy"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps domain errors onto HTTP status codes and logs the ones that
// indicate a server-side problem.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entrystore.ErrStaleTransition),
		errors.Is(err, storage.ErrDuplicateTaxonomyKey),
		errors.Is(err, storage.ErrDuplicateFingerprint):
		return http.StatusConflict
	case errors.Is(err, taxonomy.ErrDeleteDisabled):
		return http.StatusMethodNotAllowed
	case errors.Is(err, pipeline.ErrIllegalTransition),
		errors.Is(err, pipeline.ErrInvalidStateCombination),
		errors.Is(err, entrystore.ErrIncompleteTaxonomyPair),
		errors.Is(err, entrystore.ErrUnknownTaxonomyRef),
		errors.Is(err, taxonomy.ErrImmutableField),
		errors.Is(err, taxonomy.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// actorFrom reads the acting identity from the X-Actor header.
func actorFrom(r *http.Request) string {
	return r.Header.Get("X-Actor")
}
