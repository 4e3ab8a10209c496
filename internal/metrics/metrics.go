// Package metrics registers the Prometheus collectors shared across the
// service: pipeline, dedup and taxonomy counters plus HTTP instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesCreated counts new entries accepted by the store.
	EntriesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mf_entries_created_total",
			Help: "Entries created, labeled by source type",
		},
		[]string{"source_type"},
	)

	// DedupHits counts ingestion attempts resolved to an existing entry.
	DedupHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mf_dedup_hits_total",
			Help: "Ingestion attempts deduplicated against an existing entry",
		},
		[]string{"source_channel"},
	)

	// Transitions counts successful pipeline state transitions.
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mf_entry_transitions_total",
			Help: "Successful pipeline transitions by source and target state",
		},
		[]string{"from_state", "to_state"},
	)

	// StaleTransitions counts compare-and-set losers.
	StaleTransitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mf_stale_transitions_total",
			Help: "Transitions rejected because another worker moved the entry first",
		},
	)

	// TaxonomyMutations counts taxonomy governance operations.
	TaxonomyMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mf_taxonomy_mutations_total",
			Help: "Taxonomy mutations by kind and action",
		},
		[]string{"kind", "action"},
	)

	// TaxonomyActive tracks the number of active taxonomy rows per kind.
	TaxonomyActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mf_taxonomy_active",
			Help: "Active taxonomy records by kind",
		},
		[]string{"kind"},
	)

	// WorkerJobs counts pipeline worker job outcomes.
	WorkerJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mf_worker_jobs_total",
			Help: "Worker job outcomes by stage",
		},
		[]string{"stage", "outcome"},
	)
)
