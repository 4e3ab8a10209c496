package entrystore

import "errors"

var (
	// ErrStaleTransition is returned when the persisted state pair no longer
	// equals the caller's expected prior pair: another worker already moved
	// the entry. Expected under concurrency; the caller re-reads and decides
	// whether to retry or treat the outcome as already satisfied.
	ErrStaleTransition = errors.New("stale transition")
	// ErrIncompleteTaxonomyPair is returned when a taxonomy update would set
	// an id without its paired label, or otherwise desynchronize the pair.
	ErrIncompleteTaxonomyPair = errors.New("incomplete taxonomy pair")
	// ErrUnknownTaxonomyRef is returned when a supplied taxonomy id does not
	// reference an existing row at write time.
	ErrUnknownTaxonomyRef = errors.New("unknown taxonomy reference")
)
