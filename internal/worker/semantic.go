package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"memoflow/internal/contextutil"
	"memoflow/internal/entrystore"
	"memoflow/internal/jobqueue"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
	"memoflow/internal/vectorstore"
)

//go:generate mockgen -source=semantic.go -destination=mocks/mock_semantic.go -package=mocks

// ChatCompleter produces a completion for a system/user prompt pair.
type ChatCompleter interface {
	Chat(ctx context.Context, system, message string) (string, error)
}

// Embedder turns texts into fixed-size vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

const semanticActor = "worker:semantic"

const semanticSystemPrompt = `You are an annotator for a personal knowledge pipeline.
Given a note, respond with a JSON object and nothing else:
{"summary": "<one or two sentence summary>", "tags": ["<3-7 short lowercase topic tags>"]}`

// SemanticWorker produces the summary and tags for normalized entries, and
// optionally indexes the normalized text into the vector store. Vector
// indexing is best effort: its failure never fails the entry.
type SemanticWorker struct {
	store      *entrystore.Store
	chat       ChatCompleter
	embedder   Embedder
	vectors    vectorstore.VectorStore
	collection string
}

// NewSemanticWorker creates a semantic stage worker. embedder and vectors may
// be nil to disable vector indexing.
func NewSemanticWorker(store *entrystore.Store, chat ChatCompleter, embedder Embedder, vectors vectorstore.VectorStore, collection string) *SemanticWorker {
	return &SemanticWorker{
		store:      store,
		chat:       chat,
		embedder:   embedder,
		vectors:    vectors,
		collection: collection,
	}
}

// Stage implements Handler.
func (w *SemanticWorker) Stage() string { return string(jobqueue.TypeSemantic) }

var semanticIntake = []pipeline.Pair{
	{State: pipeline.StateProcessingSemantic, Status: pipeline.StatusNormalizationComplete},
	{State: pipeline.StateProcessingSemantic, Status: pipeline.StatusQueuedForSemantics},
}

// Handle claims the entry, annotates it and commits summary and tags.
func (w *SemanticWorker) Handle(ctx context.Context, job jobqueue.Job) error {
	entry, err := claim(ctx, w.store, job.EntryID, semanticIntake,
		pipeline.Pair{State: pipeline.StateProcessingSemantic, Status: pipeline.StatusSemanticInProgress},
		semanticActor)
	if err != nil || entry == nil {
		return err
	}

	if entry.NormalizedText == nil || *entry.NormalizedText == "" {
		return fail(ctx, w.store, entry, semanticActor, errors.New("entry has no normalized text"), false)
	}

	summary, tags, err := w.annotate(ctx, *entry.NormalizedText)
	if err != nil {
		return fail(ctx, w.store, entry, semanticActor, fmt.Errorf("semantic annotation failed: %w", err), true)
	}

	updated, err := w.store.ApplyPipelineOutput(ctx, entry.EntryID, entrystore.TransitionRequest{
		Expected: entry.Pair(),
		Target:   pipeline.Pair{State: pipeline.StateProcessed, Status: pipeline.StatusSemanticComplete},
		Output: storage.OutputFields{
			SemanticSummary: &summary,
			SemanticTags:    tags,
		},
		Actor: semanticActor,
	})
	if err != nil {
		return err
	}

	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "semantic annotation complete", "tags", len(tags))

	if w.embedder != nil && w.vectors != nil {
		if err := w.index(ctx, updated); err != nil {
			logger.WarnContext(ctx, "vector indexing failed", "error", err)
		}
	}
	return nil
}

type annotation struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

func (w *SemanticWorker) annotate(ctx context.Context, text string) (string, []string, error) {
	raw, err := w.chat.Chat(ctx, semanticSystemPrompt, text)
	if err != nil {
		return "", nil, err
	}

	var parsed annotation
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return "", nil, fmt.Errorf("failed to parse annotation response: %w", err)
	}
	if parsed.Summary == "" {
		return "", nil, errors.New("annotation response has no summary")
	}

	tags := make([]string, 0, len(parsed.Tags))
	for _, tag := range parsed.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return parsed.Summary, tags, nil
}

// extractJSONObject trims any prose the model wrapped around the JSON object.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func (w *SemanticWorker) index(ctx context.Context, entry *storage.EntryRecord) error {
	vecs, err := w.embedder.EmbedTexts(ctx, []string{*entry.NormalizedText})
	if err != nil {
		return err
	}

	meta := map[string]any{
		"source_channel": entry.SourceChannel,
		"source_type":    entry.SourceType,
	}
	if entry.SemanticSummary != nil {
		meta["summary"] = *entry.SemanticSummary
	}
	if entry.TypeLabel != nil {
		meta["type_label"] = *entry.TypeLabel
	}
	if entry.DomainLabel != nil {
		meta["domain_label"] = *entry.DomainLabel
	}

	return w.vectors.Upsert(ctx, w.collection, []vectorstore.Point{{
		ID:   entry.EntryID,
		Vec:  vecs[0],
		Meta: meta,
	}})
}
