package metrics

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists counter snapshots and the append-only event log in a
// local SQLite database. The snapshot is one JSON document per row; only the
// newest row matters.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the counter database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create counter data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open counter database: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize counter database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		updated_at DATETIME NOT NULL,
		document TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at DATETIME NOT NULL,
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		amount INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);`
	_, err := s.db.Exec(schema)
	return err
}

// ReadLatest returns the most recent snapshot document, or nil when the
// store is empty.
func (s *SQLiteStore) ReadLatest() (*Snapshot, error) {
	row := s.db.QueryRow(`SELECT document FROM snapshots ORDER BY id DESC LIMIT 1`)
	var document string
	if err := row.Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(document), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot document: %w", err)
	}
	return &snapshot, nil
}

// ReadEventsSince returns events strictly after t, oldest first.
func (s *SQLiteStore) ReadEventsSince(t time.Time) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT at, scope, key, amount FROM events WHERE at > ? ORDER BY id ASC`, t.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to read counter events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.At, &ev.Scope, &ev.Key, &ev.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan counter event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Append records one event in the log.
func (s *SQLiteStore) Append(ev Event) error {
	_, err := s.db.Exec(
		`INSERT INTO events (at, scope, key, amount) VALUES (?, ?, ?, ?)`,
		ev.At.UTC(), ev.Scope, ev.Key, ev.Amount)
	if err != nil {
		return fmt.Errorf("failed to append counter event: %w", err)
	}
	return nil
}

// Write persists a full snapshot and prunes events it already covers,
// keeping the log from growing without bound.
func (s *SQLiteStore) Write(snapshot Snapshot) error {
	document, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot write: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO snapshots (updated_at, document) VALUES (?, ?)`,
		snapshot.UpdatedAt.UTC(), string(document)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT 3)`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM events WHERE at <= ?`, snapshot.UpdatedAt.UTC()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prune counter events: %w", err)
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
