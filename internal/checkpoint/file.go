package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileStore keeps the checkpoint as one line of decimal text.
type FileStore struct {
	ownership
	path string
}

// NewFileStore creates a file-backed store. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{ownership: newOwnership(path), path: path}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save atomically replaces the checkpoint with index.
func (s *FileStore) Save(index int) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newError(ErrCodePersistence, s.path, "create checkpoint directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return newError(ErrCodePersistence, s.path, "create temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := fmt.Fprintf(tmp, "%d\n", index); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return newError(ErrCodePersistence, s.path, "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return newError(ErrCodePersistence, s.path, "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return newError(ErrCodePersistence, s.path, "close temp file", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return newError(ErrCodePersistence, s.path, "rename temp file", err)
	}
	return nil
}

// Load reads the checkpoint.
func (s *FileStore) Load() (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, newError(ErrCodeNotFound, s.path, "no checkpoint written", err)
		}
		return 0, newError(ErrCodePersistence, s.path, "read checkpoint", err)
	}

	text := strings.TrimSpace(string(data))
	index, err := strconv.Atoi(text)
	if err != nil {
		return 0, newError(ErrCodeCorrupt, s.path, fmt.Sprintf("unparsable content %q", text), err)
	}
	if index < 0 {
		return 0, newError(ErrCodeCorrupt, s.path, fmt.Sprintf("negative index %d", index), nil)
	}
	return index, nil
}

// Reset removes the checkpoint file.
func (s *FileStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return newError(ErrCodePersistence, s.path, "remove checkpoint", err)
	}
	return nil
}

// Close releases the lock if held.
func (s *FileStore) Close() error {
	return s.Unlock()
}
