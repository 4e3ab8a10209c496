// Package http wires the handlers into the chi router.
package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memoflow/internal/entrystore"
	"memoflow/internal/handlers"
	"memoflow/internal/jobqueue"
	"memoflow/internal/metrics"
	"memoflow/internal/storage"
	"memoflow/internal/taxonomy"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DB       *sql.DB
	Entries  storage.EntryStore
	Store    *entrystore.Store
	Taxonomy *taxonomy.Service
	Queue    *jobqueue.Queue
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(CorrelationMiddleware)
	r.Use(metrics.Middleware)

	captureHandler := handlers.NewCaptureHandler(deps.Store, deps.Queue)
	entriesHandler := handlers.NewEntriesHandler(deps.Store)
	typesHandler := handlers.NewTaxonomyHandler(deps.Taxonomy, storage.KindType)
	domainsHandler := handlers.NewTaxonomyHandler(deps.Taxonomy, storage.KindDomain)
	dashboardHandler := handlers.NewDashboardHandler(deps.Entries)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Queue)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/capture", captureHandler)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", entriesHandler.List)
			r.Get("/{id}", entriesHandler.Get)
			r.Post("/{id}/reset", entriesHandler.Reset)
			r.Put("/{id}/taxonomy", entriesHandler.SetTaxonomy)
		})

		registerTaxonomyRoutes := func(r chi.Router, h *handlers.TaxonomyHandler) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		}
		r.Route("/types", func(r chi.Router) { registerTaxonomyRoutes(r, typesHandler) })
		r.Route("/domains", func(r chi.Router) { registerTaxonomyRoutes(r, domainsHandler) })

		r.Get("/dashboard/summary", dashboardHandler.Summary)
	})

	r.Method(http.MethodGet, "/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
