package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalEnv := make(map[string]string)
	envVars := []string{
		"DB_PATH", "API_PORT", "LOG_LEVEL", "LOG_FORMAT",
		"WATCH_AUDIO_PATH", "WATCH_DOCS_PATH", "WATCH_INTERVAL", "WORKER_COUNT",
		"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL",
		"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME",
		"TRANSCRIPTION_BASE_URL", "TRANSCRIPTION_MODEL",
		"QDRANT_URL", "QDRANT_COLLECTION", "QDRANT_VECTOR_SIZE",
		"SEMANTIC_ENABLED", "VECTOR_INDEX_ENABLED",
	}
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	}()

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:     "default values for optional fields",
			setupEnv: func(t *testing.T) {},
			wantErr:  false,
			checkConfig: func(cfg *Config) bool {
				return cfg.DBPath == "./data/memoflow.db" &&
					cfg.APIPort == "9000" &&
					cfg.LogLevel == "info" &&
					cfg.LogFormat == "json" &&
					cfg.WatchInterval == 30*time.Second &&
					cfg.WorkerCount == 4 &&
					cfg.SemanticEnabled &&
					!cfg.VectorIndexEnabled
			},
		},
		{
			name: "custom optional values",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("DB_PATH", filepath.Join(tmpDir, "custom", "db.db"))
				setEnv("LLM_BASE_URL", "http://custom:9090")
				setEnv("LLM_MODEL", "custom-model")
				setEnv("WATCH_INTERVAL", "5s")
				setEnv("WORKER_COUNT", "8")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMBaseURL == "http://custom:9090" &&
					cfg.LLMModelName == "custom-model" &&
					cfg.WatchInterval == 5*time.Second &&
					cfg.WorkerCount == 8 &&
					filepath.Base(cfg.DBPath) == "db.db" // Just check filename, path will vary with temp dir
			},
		},
		{
			name: "invalid WATCH_INTERVAL",
			setupEnv: func(t *testing.T) {
				setEnv("WATCH_INTERVAL", "not-a-duration")
			},
			wantErr: true,
		},
		{
			name: "zero WATCH_INTERVAL",
			setupEnv: func(t *testing.T) {
				setEnv("WATCH_INTERVAL", "0s")
			},
			wantErr: true,
		},
		{
			name: "invalid WORKER_COUNT",
			setupEnv: func(t *testing.T) {
				setEnv("WORKER_COUNT", "many")
			},
			wantErr: true,
		},
		{
			name: "negative WORKER_COUNT",
			setupEnv: func(t *testing.T) {
				setEnv("WORKER_COUNT", "-2")
			},
			wantErr: true,
		},
		{
			name: "invalid SEMANTIC_ENABLED",
			setupEnv: func(t *testing.T) {
				setEnv("SEMANTIC_ENABLED", "maybe")
			},
			wantErr: true,
		},
		{
			name: "vector size not required when indexing disabled",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_INDEX_ENABLED", "false")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return !cfg.VectorIndexEnabled && cfg.QdrantVectorSize == 0
			},
		},
		{
			name: "vector size required when indexing enabled",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_INDEX_ENABLED", "true")
			},
			wantErr: true,
		},
		{
			name: "invalid QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_INDEX_ENABLED", "true")
				setEnv("QDRANT_VECTOR_SIZE", "invalid")
			},
			wantErr: true,
		},
		{
			name: "zero QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_INDEX_ENABLED", "true")
				setEnv("QDRANT_VECTOR_SIZE", "0")
			},
			wantErr: true,
		},
		{
			name: "vector indexing enabled with valid size",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_INDEX_ENABLED", "true")
				setEnv("QDRANT_VECTOR_SIZE", "768")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorIndexEnabled && cfg.QdrantVectorSize == 768
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Change to a temp directory without .env file to avoid loading it
			tmpDir := t.TempDir()
			originalWd, _ := os.Getwd()
			_ = os.Chdir(tmpDir) // Ignore error - test will fail if this doesn't work
			defer func() {
				_ = os.Chdir(originalWd) // Ignore error in cleanup
			}()

			// Clean up env vars before each test
			for _, key := range envVars {
				unsetEnv(key)
			}
			defer func() {
				for key, value := range originalEnv {
					if value != "" {
						setEnv(key, value)
					} else {
						unsetEnv(key)
					}
				}
			}()

			tt.setupEnv(t)

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config check failed: %+v", cfg)
			}
		})
	}
}

func TestAllowHardDelete(t *testing.T) {
	original := os.Getenv("TAXONOMY_ALLOW_HARD_DELETE")
	defer func() {
		if original != "" {
			setEnv("TAXONOMY_ALLOW_HARD_DELETE", original)
		} else {
			unsetEnv("TAXONOMY_ALLOW_HARD_DELETE")
		}
	}()

	cfg := &Config{}

	unsetEnv("TAXONOMY_ALLOW_HARD_DELETE")
	if cfg.AllowHardDelete() {
		t.Error("AllowHardDelete() = true with variable unset")
	}

	setEnv("TAXONOMY_ALLOW_HARD_DELETE", "true")
	if !cfg.AllowHardDelete() {
		t.Error("AllowHardDelete() = false with variable set")
	}

	// The toggle is read on every call, not cached.
	setEnv("TAXONOMY_ALLOW_HARD_DELETE", "false")
	if cfg.AllowHardDelete() {
		t.Error("AllowHardDelete() did not pick up the flipped value")
	}

	setEnv("TAXONOMY_ALLOW_HARD_DELETE", "not-a-bool")
	if cfg.AllowHardDelete() {
		t.Error("AllowHardDelete() = true for an unparseable value")
	}
}
