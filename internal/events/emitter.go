// Package events defines the audit/event emitter contract. The core calls the
// emitter synchronously after each successful mutation; delivery, storage and
// querying of events live outside this service.
package events

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_emitter.go -package=mocks memoflow/internal/events Emitter

import (
	"context"
	"log/slog"
	"time"

	"memoflow/internal/contextutil"
)

// Event is one structured audit event describing a successful mutation.
type Event struct {
	// Topic such as "entry.transition" or "taxonomy.type.deleted".
	Topic string
	// Actor identity: a worker id, an operator id, or "system".
	Actor string
	// CorrelationID propagated from the triggering call's context.
	CorrelationID string
	// Before and After snapshots of the mutated record; either may be nil.
	Before map[string]any
	After  map[string]any
	// Payload carries topic-specific extras such as referenced_entries.
	Payload    map[string]any
	OccurredAt time.Time
}

// Emitter publishes audit events. Emission is attempted exactly once per
// successful mutation; emitters must not block unboundedly.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// LogEmitter is the default emitter: it writes each event to the structured
// log until an external audit sink is wired in.
type LogEmitter struct {
	TopicPrefix string
}

// NewLogEmitter creates a LogEmitter with the default topic prefix.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{TopicPrefix: "memoflow"}
}

// Emit logs the event with its full payload.
func (e *LogEmitter) Emit(ctx context.Context, event Event) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "audit event",
		slog.String("topic", e.TopicPrefix+"."+event.Topic),
		slog.String("actor", event.Actor),
		slog.String("correlation_id", event.CorrelationID),
		slog.Time("occurred_at", event.OccurredAt),
		slog.Any("before", event.Before),
		slog.Any("after", event.After),
		slog.Any("payload", event.Payload),
	)
}

// NewEvent builds an event stamped with the context's correlation id.
func NewEvent(ctx context.Context, topic, actor string) Event {
	return Event{
		Topic:         topic,
		Actor:         actor,
		CorrelationID: contextutil.CorrelationIDFromContext(ctx),
		OccurredAt:    time.Now().UTC(),
	}
}
