// Package worker hosts the pipeline stage workers. Each worker is a caller of
// the entry store: it claims a queued entry with a compare-and-set transition,
// does its stage's work, and commits the output in a second transition. A
// stale claim means another worker already owns the entry and the job is
// simply dropped.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"memoflow/internal/contextutil"
	"memoflow/internal/entrystore"
	"memoflow/internal/jobqueue"
	"memoflow/internal/metrics"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
)

// Handler processes jobs for one pipeline stage.
type Handler interface {
	Stage() string
	Handle(ctx context.Context, job jobqueue.Job) error
}

// Pool consumes the job queue and dispatches to stage handlers.
type Pool struct {
	queue    *jobqueue.Queue
	handlers map[jobqueue.Type]Handler
}

// NewPool creates a worker pool over the given queue.
func NewPool(queue *jobqueue.Queue, handlers ...Handler) *Pool {
	byType := make(map[jobqueue.Type]Handler, len(handlers))
	for _, h := range handlers {
		byType[jobqueue.Type(h.Stage())] = h
	}
	return &Pool{queue: queue, handlers: byType}
}

// Run starts the given number of consumers and blocks until the context is
// canceled or the queue is closed.
func (p *Pool) Run(ctx context.Context, concurrency int) {
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.consume(ctx)
		}()
	}
	wg.Wait()
}

func (p *Pool) consume(ctx context.Context) {
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			return
		}

		jobCtx := ctx
		if job.CorrelationID != "" {
			jobCtx = contextutil.WithCorrelationID(ctx, job.CorrelationID)
		}
		logger := contextutil.LoggerFromContext(jobCtx).With(
			slog.String("job_type", string(job.Type)),
			slog.String("entry_id", job.EntryID),
		)
		jobCtx = contextutil.WithLogger(jobCtx, logger)

		handler, ok := p.handlers[job.Type]
		if !ok {
			logger.ErrorContext(jobCtx, "no handler registered for job type")
			continue
		}

		if err := handler.Handle(jobCtx, job); err != nil {
			metrics.WorkerJobs.WithLabelValues(handler.Stage(), "error").Inc()
			logger.ErrorContext(jobCtx, "job failed", "error", err)
			continue
		}
		metrics.WorkerJobs.WithLabelValues(handler.Stage(), "ok").Inc()
	}
}

// claim moves an entry from one of its stage's intake pairs into the
// in-progress pair. It returns (nil, nil) when the entry is no longer
// claimable: another worker holds it or the work is already reflected.
func claim(ctx context.Context, store *entrystore.Store, entryID string, intake []pipeline.Pair, target pipeline.Pair, actor string) (*storage.EntryRecord, error) {
	entry, err := store.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	claimable := false
	for _, pair := range intake {
		if entry.Pair() == pair {
			claimable = true
			break
		}
	}
	if !claimable {
		contextutil.LoggerFromContext(ctx).DebugContext(ctx, "entry not claimable, skipping",
			"ingest_state", string(entry.IngestState),
			"pipeline_status", string(entry.PipelineStatus))
		return nil, nil
	}

	claimed, err := store.ApplyPipelineOutput(ctx, entryID, entrystore.TransitionRequest{
		Expected: entry.Pair(),
		Target:   target,
		Actor:    actor,
	})
	if errors.Is(err, entrystore.ErrStaleTransition) {
		// Lost the claim race; the winner is responsible for the stage.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// fail records a stage failure: the entry moves to failed with the matching
// stage failure status, last_error and the retryable flag.
func fail(ctx context.Context, store *entrystore.Store, entry *storage.EntryRecord, actor string, cause error, retryable bool) error {
	status, ok := pipeline.FailureStatus(entry.IngestState)
	if !ok {
		return pipeline.ErrIllegalTransition
	}
	_, err := store.ApplyPipelineOutput(ctx, entry.EntryID, entrystore.TransitionRequest{
		Expected: entry.Pair(),
		Target:   pipeline.Pair{State: pipeline.StateFailed, Status: status},
		Failure:  &entrystore.FailureInfo{Message: cause.Error(), Retryable: retryable},
		Actor:    actor,
	})
	return err
}
