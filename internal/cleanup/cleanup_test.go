package cleanup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smazurov/framefeed/internal/metrics"
)

func TestDeleter_Delete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session1_frame1.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	New().Delete(dir, "session1_frame1.png")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still present after Delete: %v", err)
	}
}

func TestDeleter_MissingFileIsCounted(t *testing.T) {
	before := metrics.Get().CleanupErrors

	New().Delete(t.TempDir(), "missing.png")

	if got := metrics.Get().CleanupErrors; got != before+1 {
		t.Errorf("CleanupErrors = %d, want %d", got, before+1)
	}
}

func TestDeleter_DryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	d := New()
	d.DryRun = true
	d.Delete(dir, "frame.png")

	if _, err := os.Stat(path); err != nil {
		t.Errorf("dry run removed the file: %v", err)
	}
}
