package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			entry_id TEXT PRIMARY KEY,
			ingest_state TEXT NOT NULL,
			pipeline_status TEXT NOT NULL,
			ingest_fingerprint TEXT,
			fingerprint_algo TEXT,
			source_channel TEXT NOT NULL,
			source_type TEXT NOT NULL,
			source_path TEXT,
			transcription_text TEXT,
			extracted_text TEXT,
			normalized_text TEXT,
			semantic_summary TEXT,
			semantic_tags TEXT,
			type_id TEXT,
			type_label TEXT,
			domain_id TEXT,
			domain_label TEXT,
			last_error TEXT,
			retryable INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		// The partial unique index is the serialization point for duplicate
		// submissions: concurrent inserts of the same capture race on it and
		// exactly one wins.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_fingerprint
			ON entries (source_channel, ingest_fingerprint)
			WHERE ingest_fingerprint IS NOT NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_entries_state ON entries (ingest_state);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_type ON entries (type_id);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_domain ON entries (domain_id);`,
		`CREATE TABLE IF NOT EXISTS taxonomy_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			label TEXT NOT NULL,
			description TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			sort_order INTEGER NOT NULL DEFAULT 500,
			metadata TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_taxonomy_types_name
			ON taxonomy_types (name COLLATE NOCASE);`,
		`CREATE TABLE IF NOT EXISTS taxonomy_domains (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			label TEXT NOT NULL,
			description TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			sort_order INTEGER NOT NULL DEFAULT 500,
			metadata TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_taxonomy_domains_name
			ON taxonomy_domains (name COLLATE NOCASE);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
