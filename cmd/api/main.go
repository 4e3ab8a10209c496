package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"

	"memoflow/internal/capture"
	"memoflow/internal/config"
	"memoflow/internal/entrystore"
	"memoflow/internal/events"
	"memoflow/internal/http"
	"memoflow/internal/jobqueue"
	"memoflow/internal/llm"
	"memoflow/internal/storage"
	"memoflow/internal/taxonomy"
	"memoflow/internal/vectorstore"
	"memoflow/internal/worker"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	entryRepo := storage.NewEntryRepo(db)
	taxonomyRepo := storage.NewTaxonomyRepo(db)

	emitter := events.NewLogEmitter()
	store := entrystore.New(entryRepo, taxonomyRepo, emitter)
	taxonomyService := taxonomy.New(taxonomyRepo, entryRepo, emitter, cfg.AllowHardDelete)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := jobqueue.New(1024)
	defer queue.Close()

	// Stage clients
	transcriber := llm.NewTranscriptionClient(cfg.TranscriptionBaseURL, cfg.LLMAPIKey, cfg.TranscriptionModelName)
	chatClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	var embedder worker.Embedder
	var vectors vectorstore.VectorStore
	if cfg.VectorIndexEnabled {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		if err := qdrantStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection: %v", err)
		}
		slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)
		embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
		vectors = qdrantStore
	}

	// Stage workers
	pool := worker.NewPool(queue,
		worker.NewTranscriptionWorker(store, queue, transcriber),
		worker.NewExtractionWorker(store, queue),
		worker.NewNormalizationWorker(store, queue, cfg.SemanticEnabled),
		worker.NewSemanticWorker(store, chatClient, embedder, vectors, cfg.QdrantCollection),
	)
	go pool.Run(ctx, cfg.WorkerCount)
	slog.Info("Worker pool started", "workers", cfg.WorkerCount, "semantic_enabled", cfg.SemanticEnabled)

	// Watch-folder capture
	if cfg.WatchAudioPath != "" || cfg.WatchDocsPath != "" {
		watcher := capture.NewWatcher(store, queue, cfg.WatchAudioPath, cfg.WatchDocsPath, cfg.WatchInterval)
		go watcher.Run(ctx)
		slog.Info("Watch folders active",
			"audio", cfg.WatchAudioPath, "docs", cfg.WatchDocsPath, "interval", cfg.WatchInterval.String())
	}

	// Create router with dependencies
	deps := &http.Deps{
		DB:       db,
		Entries:  entryRepo,
		Store:    store,
		Taxonomy: taxonomyService,
		Queue:    queue,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
