package http

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"memoflow/internal/contextutil"
)

// CorrelationMiddleware assigns each request a correlation id (or adopts the
// one from the X-Correlation-ID header) and attaches a request-scoped logger
// carrying it. Workers propagate the same id through the job queue, so one
// capture can be traced end to end.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		ctx := contextutil.WithCorrelationID(r.Context(), correlationID)
		logger := contextutil.LoggerFromContext(ctx).With(
			slog.String("correlation_id", correlationID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		ctx = contextutil.WithLogger(ctx, logger)

		w.Header().Set("X-Correlation-ID", correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CORS adds CORS headers to allow cross-origin requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Actor, X-Correlation-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
