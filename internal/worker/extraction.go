package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"memoflow/internal/contextutil"
	"memoflow/internal/entrystore"
	"memoflow/internal/jobqueue"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
)

const extractionActor = "worker:extraction"

// ExtractionWorker handles queued_for_extraction entries. File-backed entries
// have their text read from disk; manual captures already carry their text and
// pass through unchanged.
type ExtractionWorker struct {
	store *entrystore.Store
	queue *jobqueue.Queue
}

// NewExtractionWorker creates an extraction stage worker.
func NewExtractionWorker(store *entrystore.Store, queue *jobqueue.Queue) *ExtractionWorker {
	return &ExtractionWorker{store: store, queue: queue}
}

// Stage implements Handler.
func (w *ExtractionWorker) Stage() string { return string(jobqueue.TypeExtraction) }

// Handle claims the entry, extracts its text and commits it.
func (w *ExtractionWorker) Handle(ctx context.Context, job jobqueue.Job) error {
	entry, err := claim(ctx, w.store, job.EntryID,
		[]pipeline.Pair{{State: pipeline.StateQueuedForExtraction, Status: pipeline.StatusQueuedForExtraction}},
		pipeline.Pair{State: pipeline.StateProcessingExtraction, Status: pipeline.StatusExtractionInProgress},
		extractionActor)
	if err != nil || entry == nil {
		return err
	}

	extracted, err := w.extract(entry)
	if err != nil {
		retryable := !errors.Is(err, os.ErrNotExist) && !errors.Is(err, errNoSource)
		return fail(ctx, w.store, entry, extractionActor, err, retryable)
	}

	updated, err := w.store.ApplyPipelineOutput(ctx, entry.EntryID, entrystore.TransitionRequest{
		Expected: entry.Pair(),
		Target:   pipeline.Pair{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusExtractionComplete},
		Output:   storage.OutputFields{ExtractedText: &extracted},
		Actor:    extractionActor,
	})
	if err != nil {
		return err
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "extraction complete", "chars", len(extracted))
	return w.queue.Enqueue(ctx, jobqueue.Job{
		Type:          jobqueue.TypeNormalization,
		EntryID:       updated.EntryID,
		CorrelationID: job.CorrelationID,
	})
}

var errNoSource = errors.New("entry has neither a source path nor captured text")

func (w *ExtractionWorker) extract(entry *storage.EntryRecord) (string, error) {
	if entry.SourcePath == nil || *entry.SourcePath == "" {
		// Manual captures store their raw text at creation time.
		if entry.ExtractedText != nil && *entry.ExtractedText != "" {
			return *entry.ExtractedText, nil
		}
		return "", errNoSource
	}

	raw, err := os.ReadFile(*entry.SourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(*entry.SourcePath)) {
	case ".md":
		return MarkdownToText(raw)
	default:
		return string(raw), nil
	}
}

// MarkdownToText renders markdown down to plain text by walking the parsed
// AST and collecting text content, one block per line.
func MarkdownToText(source []byte) (string, error) {
	parser := goldmark.New().Parser()
	root := parser.Parse(text.NewReader(source))

	var sb strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.AutoLink:
			sb.Write(node.URL(source))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			block := n.(interface{ Lines() *text.Segments }).Lines()
			for i := 0; i < block.Len(); i++ {
				seg := block.At(i)
				sb.Write(seg.Value(source))
			}
		default:
			if n.Type() == ast.TypeBlock && sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk markdown tree: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}
