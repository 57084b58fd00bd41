package feed

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Timestamp strategy names.
const (
	TimestampSession   = "session"
	TimestampWallClock = "wallclock"
	TimestampFileTime  = "filetime"
)

// TimestampStrategy assigns decode timestamps to frame records.
// All methods are called from the single controller goroutine.
type TimestampStrategy interface {
	// Begin starts a session at now.
	Begin(now time.Time)
	// Stamp returns the timestamp for the frame built from sourcePath.
	Stamp(sourcePath string) time.Time
	// Advance is called after a frame was forwarded.
	Advance()
	// Reset rebases the strategy after an empty tick so a gap does not compress later frames.
	Reset(now time.Time)
}

// NewTimestampStrategy returns the strategy for name. An empty name selects session.
func NewTimestampStrategy(name string, interval time.Duration) (TimestampStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TimestampSession:
		return &SessionClock{Interval: interval}, nil
	case TimestampWallClock:
		return &WallClock{}, nil
	case TimestampFileTime:
		return &FileTime{}, nil
	default:
		return nil, fmt.Errorf("unknown timestamp strategy %q (want session, wallclock or filetime)", name)
	}
}

// SessionClock advances a fixed interval per forwarded frame from the session start,
// keeping cadence uniform even when forwarding is delayed.
type SessionClock struct {
	Interval time.Duration
	current  time.Time
}

// Begin implements TimestampStrategy.
func (s *SessionClock) Begin(now time.Time) { s.current = now }

// Stamp implements TimestampStrategy.
func (s *SessionClock) Stamp(string) time.Time { return s.current }

// Advance implements TimestampStrategy.
func (s *SessionClock) Advance() { s.current = s.current.Add(s.Interval) }

// Reset implements TimestampStrategy.
func (s *SessionClock) Reset(now time.Time) { s.current = now }

// WallClock stamps each frame with the time it is built.
type WallClock struct {
	Now func() time.Time
}

// Begin implements TimestampStrategy.
func (w *WallClock) Begin(time.Time) {}

// Stamp implements TimestampStrategy.
func (w *WallClock) Stamp(string) time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Advance implements TimestampStrategy.
func (w *WallClock) Advance() {}

// Reset implements TimestampStrategy.
func (w *WallClock) Reset(time.Time) {}

// FileTime stamps each frame with the modification time of its source file.
// Creation time is not available portably; writers that produce each file once
// leave the two identical. Falls back to wall clock if the file cannot be stat'ed.
type FileTime struct{}

// Begin implements TimestampStrategy.
func (FileTime) Begin(time.Time) {}

// Stamp implements TimestampStrategy.
func (FileTime) Stamp(sourcePath string) time.Time {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return time.Now()
	}
	return info.ModTime()
}

// Advance implements TimestampStrategy.
func (FileTime) Advance() {}

// Reset implements TimestampStrategy.
func (FileTime) Reset(time.Time) {}
