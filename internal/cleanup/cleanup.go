// Package cleanup removes source files once their frames have been forwarded.
package cleanup

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/smazurov/framefeed/internal/logging"
	"github.com/smazurov/framefeed/internal/metrics"
)

// Deleter removes consumed files. Failures are logged and counted, never returned.
type Deleter struct {
	logger *slog.Logger
	// DryRun logs the deletion without touching the filesystem.
	DryRun bool
}

// New creates a Deleter.
func New() *Deleter {
	return &Deleter{logger: logging.GetLogger("cleanup")}
}

// Delete removes dir/filename.
func (d *Deleter) Delete(dir, filename string) {
	path := filepath.Join(dir, filename)

	if d.DryRun {
		d.logger.Debug("Skipping delete (dry run)", "path", path)
		return
	}

	if err := os.Remove(path); err != nil {
		metrics.IncCleanupErrors()
		if errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn("Consumed file already gone", "path", path)
			return
		}
		d.logger.Warn("Failed to delete consumed file", "path", path, "error", err)
		return
	}
	d.logger.Debug("Deleted consumed file", "path", path)
}
