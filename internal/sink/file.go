package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/smazurov/framefeed/internal/feed"
)

// FileSink appends every frame to a raw .h264 elementary stream file
// that ffplay and ffmpeg can read directly.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewFileSink opens path for appending, creating it and its directory if needed.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink file: %w", err)
	}
	return &FileSink{file: f, path: path}, nil
}

// OnFrame implements feed.Sink.
func (s *FileSink) OnFrame(_ context.Context, record feed.FrameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(record.Payload); err != nil {
		return feed.NewError(feed.ErrCodeSink, "write "+s.path, err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
