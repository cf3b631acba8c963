// Package store provides persistence for blockterm: SQLite for the AI
// transcript, the decision audit log and optionally session snapshots, and a
// JSON file backend for snapshots.
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

	"github.com/fentz26/blockterm/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a session id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store provides access to the blockterm SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		start_time INTEGER NOT NULL,
		last_saved INTEGER NOT NULL,
		block_count INTEGER NOT NULL,
		document TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transcript (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		change_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_last_saved ON sessions(last_saved);
	CREATE INDEX IF NOT EXISTS idx_transcript_created_at ON transcript(created_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_change_id ON decisions(change_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Snapshot Operations ---

// Init is a no-op; the schema is created by New.
func (s *Store) Init(ctx context.Context) error {
	return s.Ping(ctx)
}

// SaveSnapshot stores the full snapshot, replacing any previous one for the session.
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, start_time, last_saved, block_count, document) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET start_time = excluded.start_time, last_saved = excluded.last_saved,
			block_count = excluded.block_count, document = excluded.document`,
		snap.ID, snap.StartTime, snap.LastSaved, len(snap.Blocks), string(doc),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// LoadSnapshot returns the snapshot for a session id.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM sessions WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(doc), &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &snap, nil
}

// ListSnapshots returns session summaries, most recently saved first.
func (s *Store) ListSnapshots(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, last_saved, block_count FROM sessions ORDER BY last_saved DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		var start, saved int64
		if err := rows.Scan(&sum.ID, &start, &saved, &sum.BlockCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.StartTime = time.UnixMilli(start)
		sum.LastSaved = time.UnixMilli(saved)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a session. It reports whether a row was deleted.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}

// --- Transcript Operations ---

// AppendTranscript adds an exchange to the conversation transcript.
func (s *Store) AppendTranscript(ctx context.Context, content string) (*models.TranscriptEntry, error) {
	entry := &models.TranscriptEntry{
		ID:        uuid.New().String(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcript (id, content, created_at) VALUES (?, ?, ?)`,
		entry.ID, entry.Content, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	return entry, nil
}

// RecentTranscript returns up to limit of the newest entries, oldest first.
// A limit of zero or less returns everything.
func (s *Store) RecentTranscript(ctx context.Context, limit int) ([]models.TranscriptEntry, error) {
	query := `SELECT id, content, created_at FROM (
		SELECT id, content, created_at, rowid AS seq FROM transcript ORDER BY seq DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	query += `) ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var entries []models.TranscriptEntry
	for rows.Next() {
		var e models.TranscriptEntry
		if err := rows.Scan(&e.ID, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearTranscript removes every transcript entry and returns how many were removed.
func (s *Store) ClearTranscript(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcript`)
	if err != nil {
		return 0, fmt.Errorf("clear transcript: %w", err)
	}
	return res.RowsAffected()
}

// --- Decision Operations ---

// WriteDecision writes an audit record.
func (s *Store) WriteDecision(ctx context.Context, action, inputsHash, outcome, changeID, details string) (*models.DecisionRecord, error) {
	rec := &models.DecisionRecord{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		ChangeID:   changeID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, action, inputs_hash, outcome, change_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Action, rec.InputsHash, rec.Outcome, rec.ChangeID, rec.Details, rec.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert decision: %w", err)
	}
	return rec, nil
}

// ListDecisions returns audit records, newest first. An empty changeID lists all.
func (s *Store) ListDecisions(ctx context.Context, changeID string, limit int) ([]models.DecisionRecord, error) {
	query := `SELECT id, action, inputs_hash, outcome, change_id, details, timestamp FROM decisions`
	var args []interface{}
	if changeID != "" {
		query += ` WHERE change_id = ?`
		args = append(args, changeID)
	}
	query += ` ORDER BY timestamp DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		var changeIDCol, details sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.InputsHash, &rec.Outcome, &changeIDCol, &details, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		rec.ChangeID = changeIDCol.String
		rec.Details = details.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
