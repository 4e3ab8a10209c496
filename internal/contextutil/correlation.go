package contextutil

import "context"

const correlationKey contextKey = "correlation_id"

// WithCorrelationID returns a context carrying the correlation identifier of
// the triggering call. Audit events propagate it into their payloads.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// CorrelationIDFromContext returns the correlation identifier stored in the
// context, or an empty string when the caller did not set one.
func CorrelationIDFromContext(ctx context.Context) string {
	if v := ctx.Value(correlationKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
