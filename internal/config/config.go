package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	DBPath    string
	APIPort   string
	LogLevel  string
	LogFormat string

	WatchAudioPath string
	WatchDocsPath  string
	WatchInterval  time.Duration
	WorkerCount    int

	LLMBaseURL             string
	LLMModelName           string
	LLMAPIKey              string
	EmbeddingBaseURL       string
	EmbeddingModelName     string
	TranscriptionBaseURL   string
	TranscriptionModelName string

	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	// SemanticEnabled gates the semantic stage; when false, entries complete
	// after normalization.
	SemanticEnabled bool
	// VectorIndexEnabled gates writing embeddings into Qdrant.
	VectorIndexEnabled bool
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Try to find project root by looking for a .env alongside go.mod
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		DBPath:                 getEnv("DB_PATH", "./data/memoflow.db"),
		APIPort:                getEnv("API_PORT", "9000"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		WatchAudioPath:         getEnv("WATCH_AUDIO_PATH", ""),
		WatchDocsPath:          getEnv("WATCH_DOCS_PATH", ""),
		LLMBaseURL:             getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:           getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:              getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:       getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName:     getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		TranscriptionBaseURL:   getEnv("TRANSCRIPTION_BASE_URL", "http://localhost:8082"),
		TranscriptionModelName: getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		QdrantURL:              getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:       getEnv("QDRANT_COLLECTION", "entries"),
	}

	interval, err := time.ParseDuration(getEnv("WATCH_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("WATCH_INTERVAL must be a valid duration: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("WATCH_INTERVAL must be greater than 0")
	}
	cfg.WatchInterval = interval

	workers, err := strconv.Atoi(getEnv("WORKER_COUNT", "4"))
	if err != nil {
		return nil, fmt.Errorf("WORKER_COUNT must be a valid integer: %w", err)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("WORKER_COUNT must be greater than 0")
	}
	cfg.WorkerCount = workers

	cfg.SemanticEnabled, err = getBool("SEMANTIC_ENABLED", true)
	if err != nil {
		return nil, err
	}
	cfg.VectorIndexEnabled, err = getBool("VECTOR_INDEX_ENABLED", false)
	if err != nil {
		return nil, err
	}

	if cfg.VectorIndexEnabled {
		// The vector size must match the output size of the embeddings model.
		// If the size changes, the Qdrant collection must be recreated.
		vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
		if vectorSizeStr == "" {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required when VECTOR_INDEX_ENABLED is true")
		}
		vectorSize, err := strconv.Atoi(vectorSizeStr)
		if err != nil {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
		}
		if vectorSize <= 0 {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
		}
		cfg.QdrantVectorSize = vectorSize
	}

	// Create ./data directory if it doesn't exist (for future DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// AllowHardDelete reports whether taxonomy hard deletes are currently enabled.
// It reads the environment on every call so the toggle can be flipped without
// a restart.
func (c *Config) AllowHardDelete() bool {
	v, err := strconv.ParseBool(os.Getenv("TAXONOMY_ALLOW_HARD_DELETE"))
	return err == nil && v
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}
