// Package jobqueue is the in-process transport between capture and the
// pipeline workers. It stands in for an external job queue; the entry store's
// compare-and-set transitions make duplicate or replayed jobs harmless.
package jobqueue

import (
	"context"
	"errors"
)

// Type identifies which pipeline stage a job targets.
type Type string

const (
	TypeTranscription Type = "transcription"
	TypeExtraction    Type = "extraction"
	TypeNormalization Type = "normalization"
	TypeSemantic      Type = "semantic"
)

// ErrClosed is returned when the queue has been shut down.
var ErrClosed = errors.New("job queue closed")

// Job is one unit of pipeline work addressed by entry id.
type Job struct {
	Type          Type
	EntryID       string
	CorrelationID string
}

// Queue is a bounded in-memory job queue.
type Queue struct {
	jobs chan Job
	done chan struct{}
}

// New creates a queue holding at most size pending jobs.
func New(size int) *Queue {
	return &Queue{
		jobs: make(chan Job, size),
		done: make(chan struct{}),
	}
}

// Enqueue adds a job, blocking while the queue is full.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes the next job, blocking until one is available.
func (q *Queue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-q.done:
		return Job{}, ErrClosed
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Len reports the number of pending jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close shuts the queue down. Pending jobs are discarded.
func (q *Queue) Close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}
