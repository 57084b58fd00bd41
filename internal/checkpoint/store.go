// Package checkpoint persists the last consumed file index so a pipeline can resume.
//
// Stores hold a single integer. Writes are sequential and come from one owner;
// Lock makes that ownership exclusive across processes with an advisory lock
// on a sibling "<path>.lock" file.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is a durable single-value checkpoint.
type Store interface {
	Save(index int) error
	Load() (int, error)
	Reset() error
	Lock() error
	Unlock() error
	Close() error
	Path() string
}

// Open returns the store for backend at path. An empty backend selects the file store.
func Open(backend, path string) (Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q (want file or sqlite)", backend)
	}
}

// ownership wraps the advisory lock shared by both backends.
type ownership struct {
	path string
	lock *flock.Flock
}

func newOwnership(path string) ownership {
	lockPath := path + ".lock"
	return ownership{path: path, lock: flock.New(lockPath)}
}

// Lock takes the exclusive lock without blocking.
func (o ownership) Lock() error {
	if err := os.MkdirAll(filepath.Dir(o.lock.Path()), 0o755); err != nil {
		return newError(ErrCodePersistence, o.path, "create checkpoint directory", err)
	}
	ok, err := o.lock.TryLock()
	if err != nil {
		return newError(ErrCodeLocked, o.path, "acquire lock", err)
	}
	if !ok {
		return newError(ErrCodeLocked, o.path, "checkpoint is owned by another pipeline", nil)
	}
	return nil
}

// Unlock releases the lock. Releasing an unheld lock is a no-op.
func (o ownership) Unlock() error {
	if !o.lock.Locked() {
		return nil
	}
	if err := o.lock.Unlock(); err != nil {
		return newError(ErrCodePersistence, o.path, "release lock", err)
	}
	return nil
}
