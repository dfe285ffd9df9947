// Package store is the SQLite-backed corpus: docket and agency records,
// documents, per-docket cluster hierarchies and phrase occurrences.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultBatchSize bounds the number of ids bound into one IN (...) query.
const DefaultBatchSize = 500

// DefaultMaxDocumentChars is the provider-side cap on returned text.
const DefaultMaxDocumentChars = 10000

// Config holds configuration for Open.
type Config struct {
	DBPath           string
	BatchSize        int
	MaxDocumentChars int
}

// SQLiteStore implements corpus.Provider and corpus.DocketStore.
type SQLiteStore struct {
	db        *sql.DB
	batchSize int
	maxChars  int
}

// Open opens (creating if needed) the database and runs migrations.
func Open(cfg Config) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = DefaultMaxDocumentChars
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.DBPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, batchSize: cfg.BatchSize, maxChars: cfg.MaxDocumentChars}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agencies (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dockets (
			id         TEXT PRIMARY KEY,
			agency     TEXT NOT NULL DEFAULT '',
			doc_count  INTEGER,
			date_start TEXT,
			date_end   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id                     INTEGER PRIMARY KEY,
			docket_id              TEXT NOT NULL REFERENCES dockets(id) ON DELETE CASCADE,
			document_id            TEXT NOT NULL DEFAULT '',
			title                  TEXT NOT NULL DEFAULT '',
			submitter_name         TEXT NOT NULL DEFAULT '',
			submitter_organization TEXT NOT NULL DEFAULT '',
			text                   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_document_id ON documents(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_docket ON documents(docket_id)`,
		`CREATE TABLE IF NOT EXISTS hierarchies (
			docket_id  TEXT PRIMARY KEY REFERENCES dockets(id) ON DELETE CASCADE,
			tree       TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS phrase_occurrences (
			doc_id    INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			phrase    TEXT NOT NULL,
			start_pos INTEGER NOT NULL,
			end_pos   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_phrase_occurrences_doc ON phrase_occurrences(doc_id)`,
		`CREATE INDEX IF NOT EXISTS idx_phrase_occurrences_phrase ON phrase_occurrences(phrase)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return tx.Commit()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
