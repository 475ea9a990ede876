// Package store persists generated documents and producer-call records
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/latticedocs/lattice/internal/pipeline"
	"github.com/latticedocs/lattice/internal/types"
)

// ErrNotFound is returned when a document id matches nothing.
var ErrNotFound = errors.New("document not found")

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// DocumentSummary is the list view of a stored document.
type DocumentSummary struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Title     string    `json:"title"`
	Nodes     int       `json:"nodes"`
	Sources   int       `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}

// Open opens (creating if needed) the database at path, enables WAL
// mode, and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			topic      TEXT NOT NULL,
			title      TEXT NOT NULL,
			payload    TEXT NOT NULL,
			nodes      INTEGER NOT NULL DEFAULT 0,
			sources    INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_docs_topic   ON documents(topic);
		CREATE INDEX IF NOT EXISTS idx_docs_created ON documents(created_at DESC);

		CREATE TABLE IF NOT EXISTS producer_calls (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			producer   TEXT NOT NULL,
			model      TEXT,
			phase      TEXT NOT NULL,
			round      INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			chars      INTEGER NOT NULL DEFAULT 0,
			error      TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_calls_request ON producer_calls(request_id);
		CREATE INDEX IF NOT EXISTS idx_calls_created ON producer_calls(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDocument inserts or replaces a document.
func (s *Store) SaveDocument(ctx context.Context, doc *types.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, topic, title, payload, nodes, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Topic, doc.ConceptMap.Title, string(payload),
		len(doc.ConceptMap.Nodes), len(doc.Sources),
		doc.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: save document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE id = ?`, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document: %w", err)
	}

	var doc types.Document
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("store: decode document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns recent document summaries, newest first.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]DocumentSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, title, nodes, sources, created_at
		 FROM documents ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		var created string
		if err := rows.Scan(&d.ID, &d.Topic, &d.Title, &d.Nodes, &d.Sources, &created); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			d.CreatedAt = t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document by id.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordCall persists one producer call. Implements
// pipeline.CallRecorder; failures are swallowed so traceability never
// breaks generation.
func (s *Store) RecordCall(ctx context.Context, rec pipeline.CallRecord) {
	_, _ = s.db.ExecContext(ctx,
		`INSERT INTO producer_calls (request_id, producer, model, phase, round, latency_ms, chars, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Producer, rec.Model, rec.Phase, rec.Round,
		rec.Latency.Milliseconds(), rec.Chars, rec.Err,
	)
}

// CallRecord is a persisted producer-call row.
type CallRecord struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Producer  string    `json:"producer"`
	Model     string    `json:"model,omitempty"`
	Phase     string    `json:"phase"`
	Round     int       `json:"round"`
	LatencyMs int64     `json:"latency_ms"`
	Chars     int       `json:"chars"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentCalls returns recent producer-call records, newest first.
func (s *Store) RecentCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, producer, ifnull(model, ''), phase, round, latency_ms, chars, ifnull(error, ''), created_at
		 FROM producer_calls ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: recent calls: %w", err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var c CallRecord
		var created string
		if err := rows.Scan(&c.ID, &c.RequestID, &c.Producer, &c.Model, &c.Phase, &c.Round, &c.LatencyMs, &c.Chars, &c.Error, &created); err != nil {
			return nil, err
		}
		if t, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
			c.CreatedAt = t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
