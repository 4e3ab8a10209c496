package worker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"memoflow/internal/contextutil"
	"memoflow/internal/entrystore"
	"memoflow/internal/jobqueue"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
)

//go:generate mockgen -source=transcription.go -destination=mocks/mock_transcriber.go -package=mocks

// Transcriber converts an audio file into text.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

const transcriptionActor = "worker:transcription"

// TranscriptionWorker handles queued_for_transcription entries.
type TranscriptionWorker struct {
	store       *entrystore.Store
	queue       *jobqueue.Queue
	transcriber Transcriber
}

// NewTranscriptionWorker creates a transcription stage worker.
func NewTranscriptionWorker(store *entrystore.Store, queue *jobqueue.Queue, transcriber Transcriber) *TranscriptionWorker {
	return &TranscriptionWorker{store: store, queue: queue, transcriber: transcriber}
}

// Stage implements Handler.
func (w *TranscriptionWorker) Stage() string { return string(jobqueue.TypeTranscription) }

// Handle claims the entry, runs transcription and commits the transcript.
func (w *TranscriptionWorker) Handle(ctx context.Context, job jobqueue.Job) error {
	entry, err := claim(ctx, w.store, job.EntryID,
		[]pipeline.Pair{{State: pipeline.StateQueuedForTranscription, Status: pipeline.StatusQueuedForTranscription}},
		pipeline.Pair{State: pipeline.StateProcessingTranscription, Status: pipeline.StatusTranscriptionInProgress},
		transcriptionActor)
	if err != nil || entry == nil {
		return err
	}

	if entry.SourcePath == nil || *entry.SourcePath == "" {
		return fail(ctx, w.store, entry, transcriptionActor, errors.New("entry has no source path"), false)
	}

	text, err := w.transcriber.TranscribeFile(ctx, *entry.SourcePath)
	if err != nil {
		retryable := !errors.Is(err, os.ErrNotExist)
		return fail(ctx, w.store, entry, transcriptionActor, fmt.Errorf("transcription failed: %w", err), retryable)
	}

	updated, err := w.store.ApplyPipelineOutput(ctx, entry.EntryID, entrystore.TransitionRequest{
		Expected: entry.Pair(),
		Target:   pipeline.Pair{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusTranscriptionComplete},
		Output:   storage.OutputFields{TranscriptionText: &text},
		Actor:    transcriptionActor,
	})
	if err != nil {
		return err
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "transcription complete", "chars", len(text))
	return w.queue.Enqueue(ctx, jobqueue.Job{
		Type:          jobqueue.TypeNormalization,
		EntryID:       updated.EntryID,
		CorrelationID: job.CorrelationID,
	})
}
