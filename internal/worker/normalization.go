package worker

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"memoflow/internal/contextutil"
	"memoflow/internal/entrystore"
	"memoflow/internal/jobqueue"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
)

const normalizationActor = "worker:normalization"

// NormalizationWorker cleans up stage text into normalized_text. When the
// semantic stage is disabled it completes entries directly into processed.
type NormalizationWorker struct {
	store           *entrystore.Store
	queue           *jobqueue.Queue
	semanticEnabled bool
}

// NewNormalizationWorker creates a normalization stage worker.
func NewNormalizationWorker(store *entrystore.Store, queue *jobqueue.Queue, semanticEnabled bool) *NormalizationWorker {
	return &NormalizationWorker{store: store, queue: queue, semanticEnabled: semanticEnabled}
}

// Stage implements Handler.
func (w *NormalizationWorker) Stage() string { return string(jobqueue.TypeNormalization) }

var normalizationIntake = []pipeline.Pair{
	{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusTranscriptionComplete},
	{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusExtractionComplete},
	{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusQueuedForNormalization},
}

// Handle claims the entry, normalizes the upstream text and commits it.
func (w *NormalizationWorker) Handle(ctx context.Context, job jobqueue.Job) error {
	entry, err := claim(ctx, w.store, job.EntryID, normalizationIntake,
		pipeline.Pair{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusNormalizationInProgress},
		normalizationActor)
	if err != nil || entry == nil {
		return err
	}

	source := entry.TranscriptionText
	if source == nil || *source == "" {
		source = entry.ExtractedText
	}
	if source == nil || *source == "" {
		return fail(ctx, w.store, entry, normalizationActor, errors.New("entry has no upstream text to normalize"), false)
	}

	normalized := Normalize(*source)

	target := pipeline.Pair{State: pipeline.StateProcessingSemantic, Status: pipeline.StatusNormalizationComplete}
	skipped := false
	if !w.semanticEnabled {
		target = pipeline.Pair{State: pipeline.StateProcessed, Status: pipeline.StatusNormalizationComplete}
		skipped = true
	}

	updated, err := w.store.ApplyPipelineOutput(ctx, entry.EntryID, entrystore.TransitionRequest{
		Expected:        entry.Pair(),
		Target:          target,
		SemanticSkipped: skipped,
		Output:          storage.OutputFields{NormalizedText: &normalized},
		Actor:           normalizationActor,
	})
	if err != nil {
		return err
	}

	logger := contextutil.LoggerFromContext(ctx)
	if skipped {
		logger.InfoContext(ctx, "normalization complete, semantic stage disabled", "chars", len(normalized))
		return nil
	}
	logger.InfoContext(ctx, "normalization complete", "chars", len(normalized))
	return w.queue.Enqueue(ctx, jobqueue.Job{
		Type:          jobqueue.TypeSemantic,
		EntryID:       updated.EntryID,
		CorrelationID: job.CorrelationID,
	})
}

var (
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	lineTimestamp = regexp.MustCompile(`(?m)^\s*(\[\d{1,2}:\d{2}(:\d{2})?\]|\(\d{1,2}:\d{2}(:\d{2})?\))\s*`)
	speakerTag    = regexp.MustCompile(`(?mi)^\s*speaker\s*\d+\s*:\s*`)
	lineBullet    = regexp.MustCompile("(?m)^([ \t]*)[•·–—*][ \t]+")
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans raw stage text: control characters, transcript timestamps
// and speaker tags go away, bullet glyphs collapse to "- ", and whitespace
// runs are squeezed.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = controlChars.ReplaceAllString(text, "")
	text = lineTimestamp.ReplaceAllString(text, "")
	text = speakerTag.ReplaceAllString(text, "")
	text = lineBullet.ReplaceAllString(text, "${1}- ")
	text = spaceRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	text = strings.Join(lines, "\n")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
