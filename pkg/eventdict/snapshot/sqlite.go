package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists snapshots to SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates a snapshot database.
// The path should be a file path (e.g., "./snapshots.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			name TEXT PRIMARY KEY,
			taken TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_entries (
			snapshot TEXT NOT NULL,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			inner_path TEXT NOT NULL,
			path TEXT NOT NULL,
			payload_type TEXT NOT NULL,
			PRIMARY KEY (snapshot, position)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create entries table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	if snap.Name == "" {
		return ErrNoName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := deleteSnapshot(ctx, tx, snap.Name); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (name, taken) VALUES (?, ?)
	`, snap.Name, snap.Taken.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_entries (snapshot, position, id, inner_path, path, payload_type)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare entries: %w", err)
	}
	defer stmt.Close()

	for i, e := range snap.Entries {
		if _, err := stmt.ExecContext(ctx, snap.Name, i, e.ID, e.InnerPath, e.Path, e.PayloadType); err != nil {
			return fmt.Errorf("save entry %s: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, name string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Snapshot{}, ErrStoreClosed
	}

	snap := Snapshot{Name: name}
	var taken string
	err := s.db.QueryRowContext(ctx, `SELECT taken FROM snapshots WHERE name = ?`, name).Scan(&taken)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	snap.Taken, _ = time.Parse(time.RFC3339Nano, taken)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inner_path, path, payload_type
		FROM snapshot_entries
		WHERE snapshot = ?
		ORDER BY position
	`, name)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	snap.Entries = []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.InnerPath, &e.Path, &e.PayloadType); err != nil {
			return Snapshot{}, fmt.Errorf("scan entry: %w", err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate entries: %w", err)
	}

	return snap, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.taken, COUNT(e.position)
		FROM snapshots s
		LEFT JOIN snapshot_entries e ON e.snapshot = s.name
		GROUP BY s.name, s.taken
		ORDER BY s.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var info Info
		var taken string
		if err := rows.Scan(&info.Name, &taken, &info.Entries); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		info.Taken, _ = time.Parse(time.RFC3339Nano, taken)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := deleteSnapshot(ctx, tx, name); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func deleteSnapshot(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_entries WHERE snapshot = ?`, name); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	return err
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
