// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists pipeline sessions in a SQLite database so past
// runs can be listed, inspected and exported.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/notes-engine/internal/pipeline"
	"github.com/pdiddy/notes-engine/pkg/types"
)

// ErrNotFound is returned by Get for an unknown session ID.
var ErrNotFound = errors.New("session not found")

const defaultListLimit = 50

// Fixed-width UTC timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages the session history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL DEFAULT '',
			media_type TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			failed_stage TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			extracted_chars INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			output_name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts or updates a session. The creation time of an existing
// session is kept.
func (s *Store) Record(ctx context.Context, rec types.SessionRecord) error {
	if rec.ID == "" {
		return errors.New("recording session: empty ID")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, file_name, media_type, state, failed_stage, message, extracted_chars, notes, output_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			file_name=excluded.file_name, media_type=excluded.media_type,
			state=excluded.state, failed_stage=excluded.failed_stage,
			message=excluded.message, extracted_chars=excluded.extracted_chars,
			notes=excluded.notes, output_name=excluded.output_name,
			updated_at=excluded.updated_at`,
		rec.ID, rec.FileName, rec.MediaType, rec.State, rec.FailedStage, rec.Message,
		rec.ExtractedChars, rec.Notes, rec.OutputName,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("recording session %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, file_name, media_type, state, failed_stage, message, extracted_chars, notes, output_name, created_at, updated_at FROM sessions`

// List returns the most recently updated sessions, newest first. A limit
// of zero or less uses a default of 50.
func (s *Store) List(ctx context.Context, limit int) ([]types.SessionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []types.SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one session by ID.
func (s *Store) Get(ctx context.Context, id string) (types.SessionRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.SessionRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// ExportYAML writes up to limit recent sessions to w as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, limit int) error {
	recs, err := s.List(ctx, limit)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []types.SessionRecord{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (types.SessionRecord, error) {
	var rec types.SessionRecord
	var created, updated string
	err := row.Scan(&rec.ID, &rec.FileName, &rec.MediaType, &rec.State, &rec.FailedStage, &rec.Message,
		&rec.ExtractedChars, &rec.Notes, &rec.OutputName, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scanning session: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return rec, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return rec, fmt.Errorf("parsing updated_at %q: %w", updated, err)
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// FromSnapshot converts a pipeline snapshot into a session record stamped
// with at.
func FromSnapshot(snap pipeline.Snapshot, at time.Time) types.SessionRecord {
	rec := types.SessionRecord{
		ID:             snap.SessionID,
		FileName:       snap.FileName,
		MediaType:      snap.MediaType,
		State:          snap.State.Kind.String(),
		FailedStage:    string(snap.State.Stage),
		Message:        snap.Message,
		ExtractedChars: utf8.RuneCountInString(snap.ExtractedText),
		Notes:          snap.Notes,
		UpdatedAt:      at,
	}
	if snap.Output != nil {
		rec.OutputName = snap.Output.FileName
	}
	return rec
}

// Recorder returns a pipeline observer that records every state change of
// a session. Snapshots without a session (Idle after a reset) are skipped.
// Write failures are logged and never interrupt the pipeline.
func Recorder(s *Store, logger *slog.Logger) pipeline.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(snap pipeline.Snapshot) {
		if snap.SessionID == "" {
			return
		}
		if err := s.Record(context.Background(), FromSnapshot(snap, time.Now())); err != nil {
			logger.Warn("history write failed", "session", snap.SessionID, "error", err)
		}
	}
}
