package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoint (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	file_index INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps the checkpoint in a single-row SQLite table.
type SQLiteStore struct {
	ownership
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the checkpoint database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, newError(ErrCodePersistence, path, "create checkpoint directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, newError(ErrCodePersistence, path, "open sqlite db", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, newError(ErrCodePersistence, path, fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, newError(ErrCodePersistence, path, "init schema", err)
	}

	return &SQLiteStore{ownership: newOwnership(path), db: db, path: path}, nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save upserts the checkpoint row.
func (s *SQLiteStore) Save(index int) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO checkpoint (id, file_index, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET file_index = excluded.file_index, updated_at = excluded.updated_at`,
		index, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return newError(ErrCodePersistence, s.path, "write checkpoint", err)
	}
	return nil
}

// Load reads the checkpoint row.
func (s *SQLiteStore) Load() (int, error) {
	index, _, err := s.LoadWithTime()
	return index, err
}

// LoadWithTime returns the checkpoint and when it was last written.
func (s *SQLiteStore) LoadWithTime() (int, time.Time, error) {
	var (
		index     int64
		updatedAt string
	)
	row := s.db.QueryRowContext(context.Background(), `SELECT file_index, updated_at FROM checkpoint WHERE id = 1`)
	if err := row.Scan(&index, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, newError(ErrCodeNotFound, s.path, "no checkpoint written", err)
		}
		return 0, time.Time{}, newError(ErrCodePersistence, s.path, "read checkpoint", err)
	}
	if index < 0 {
		return 0, time.Time{}, newError(ErrCodeCorrupt, s.path, fmt.Sprintf("negative index %d", index), nil)
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return 0, time.Time{}, newError(ErrCodeCorrupt, s.path, fmt.Sprintf("unparsable updated_at %q", updatedAt), err)
	}
	return int(index), ts, nil
}

// Reset deletes the checkpoint row.
func (s *SQLiteStore) Reset() error {
	if _, err := s.db.ExecContext(context.Background(), `DELETE FROM checkpoint`); err != nil {
		return newError(ErrCodePersistence, s.path, "delete checkpoint", err)
	}
	return nil
}

// Close releases the lock and closes the database.
func (s *SQLiteStore) Close() error {
	unlockErr := s.Unlock()
	if err := s.db.Close(); err != nil {
		return newError(ErrCodePersistence, s.path, "close sqlite db", err)
	}
	return unlockErr
}
