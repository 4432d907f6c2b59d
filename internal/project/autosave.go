package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// StorageKey is the key the working snapshot is saved under.
const StorageKey = "titanroof.v4.2.state"

// ErrNoAutosave is returned when nothing has been saved yet.
var ErrNoAutosave = errors.New("no autosaved state")

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store is a small key/value table in SQLite holding autosaved snapshots.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the autosave database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database, creating the table if needed.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get returns the value under key and when it was written.
func (s *Store) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	var (
		value []byte
		ms    int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, updated_at FROM kv WHERE key = ?`, key).Scan(&value, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoAutosave
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get %s: %w", key, err)
	}
	return value, time.UnixMilli(ms), nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SaveSnapshot writes s under StorageKey.
func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	return s.Put(ctx, StorageKey, data)
}

// LoadSnapshot reads the snapshot under StorageKey.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, time.Time, error) {
	data, at, err := s.Get(ctx, StorageKey)
	if err != nil {
		return nil, time.Time{}, err
	}
	snap, err := Unmarshal(data)
	if err != nil {
		return nil, at, err
	}
	return snap, at, nil
}

// PutRaw stores already encoded snapshot bytes under StorageKey, as done
// after importing a file.
func (s *Store) PutRaw(ctx context.Context, snapshot []byte) error {
	return s.Put(ctx, StorageKey, snapshot)
}

// Clear removes the autosaved snapshot.
func (s *Store) Clear(ctx context.Context) error {
	return s.Delete(ctx, StorageKey)
}
