package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"memoflow/internal/contextutil"
	"memoflow/internal/entrystore"
	"memoflow/internal/jobqueue"
	"memoflow/internal/pipeline"
)

const (
	// ChannelWatchAudio and ChannelWatchDocs identify the two watch-folder
	// ingestion channels; fingerprints are unique per channel.
	ChannelWatchAudio = "watch_folder_audio"
	ChannelWatchDocs  = "watch_folder_docs"
	// ChannelManualAPI identifies captures submitted over the API.
	ChannelManualAPI = "manual_api"

	SourceTypeAudio    = "audio"
	SourceTypeDocument = "document"
	SourceTypeNote     = "note"

	watcherActor = "watch_folder"
)

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".flac": true,
}

var documentExtensions = map[string]bool{
	".md": true, ".txt": true,
}

// Watcher scans incoming directories and feeds new captures into the entry
// store. All dedup decisions are the store's; the watcher only computes
// fingerprints and routes by media kind.
type Watcher struct {
	store     *entrystore.Store
	queue     *jobqueue.Queue
	audioRoot string
	docsRoot  string
	interval  time.Duration
}

// NewWatcher creates a Watcher over the given incoming directories. Either
// root may be empty to disable that channel.
func NewWatcher(store *entrystore.Store, queue *jobqueue.Queue, audioRoot, docsRoot string, interval time.Duration) *Watcher {
	return &Watcher{
		store:     store,
		queue:     queue,
		audioRoot: audioRoot,
		docsRoot:  docsRoot,
		interval:  interval,
	}
}

// Run scans on the configured interval until the context is canceled.
func (w *Watcher) Run(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.ScanOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "watch folder scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ScanOnce performs a single pass over both watch roots.
func (w *Watcher) ScanOnce(ctx context.Context) error {
	if w.audioRoot != "" {
		if err := w.scanRoot(ctx, w.audioRoot, ChannelWatchAudio); err != nil {
			return err
		}
	}
	if w.docsRoot != "" {
		if err := w.scanRoot(ctx, w.docsRoot, ChannelWatchDocs); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) scanRoot(ctx context.Context, root, channel string) error {
	logger := contextutil.LoggerFromContext(ctx)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logger.WarnContext(ctx, "failed to access path", "path", path, "error", err)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		var sourceType string
		switch {
		case audioExtensions[ext]:
			sourceType = SourceTypeAudio
		case documentExtensions[ext]:
			sourceType = SourceTypeDocument
		default:
			return nil
		}

		if err := w.ingest(ctx, path, info, channel, sourceType); err != nil {
			logger.ErrorContext(ctx, "failed to ingest capture", "path", path, "error", err)
		}
		return nil
	})
}

// ingest runs one file through create-or-dedupe and, when the entry lands in
// a queue state, publishes the matching job. Re-publishing for entries still
// queued from an earlier scan is safe: the worker claim is a compare-and-set,
// so surplus jobs become no-ops, and it doubles as recovery for lost jobs.
func (w *Watcher) ingest(ctx context.Context, path string, info os.FileInfo, channel, sourceType string) error {
	corrID := uuid.New().String()
	ctx = contextutil.WithCorrelationID(ctx, corrID)

	fingerprint := Fingerprint(filepath.Base(path), info.Size(), info.ModTime().UnixNano())
	sourcePath := path

	entry, created, err := w.store.CreateOrDedupe(ctx, entrystore.NewEntry{
		Fingerprint:     fingerprint,
		FingerprintAlgo: FingerprintAlgo,
		SourceChannel:   channel,
		SourceType:      sourceType,
		SourcePath:      &sourcePath,
		RetryFailed:     true,
		Actor:           watcherActor,
	})
	if err != nil {
		return err
	}

	if created {
		target := pipeline.Pair{State: pipeline.StateQueuedForExtraction, Status: pipeline.StatusQueuedForExtraction}
		if sourceType == SourceTypeAudio {
			target = pipeline.Pair{State: pipeline.StateQueuedForTranscription, Status: pipeline.StatusQueuedForTranscription}
		}
		entry, err = w.store.ApplyPipelineOutput(ctx, entry.EntryID, entrystore.TransitionRequest{
			Expected: entry.Pair(),
			Target:   target,
			Actor:    watcherActor,
		})
		if err != nil {
			return err
		}
	}

	if jobType, ok := JobTypeFor(entry.Pair()); ok {
		return w.queue.Enqueue(ctx, jobqueue.Job{Type: jobType, EntryID: entry.EntryID, CorrelationID: corrID})
	}
	return nil
}

// JobTypeFor maps a queue-shaped state pair to the worker job that serves it.
// In-progress and terminal pairs map to no job.
func JobTypeFor(pair pipeline.Pair) (jobqueue.Type, bool) {
	switch pair.Status {
	case pipeline.StatusQueuedForTranscription:
		return jobqueue.TypeTranscription, true
	case pipeline.StatusQueuedForExtraction:
		return jobqueue.TypeExtraction, true
	case pipeline.StatusQueuedForNormalization, pipeline.StatusTranscriptionComplete, pipeline.StatusExtractionComplete:
		return jobqueue.TypeNormalization, true
	case pipeline.StatusNormalizationComplete:
		if pair.State == pipeline.StateProcessingSemantic {
			return jobqueue.TypeSemantic, true
		}
	case pipeline.StatusQueuedForSemantics:
		return jobqueue.TypeSemantic, true
	}
	return "", false
}
