package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSessionClock(t *testing.T) {
	clock := &SessionClock{Interval: 40 * time.Millisecond}
	clock.Begin(sessionStart)

	for i := range 3 {
		want := sessionStart.Add(time.Duration(i) * 40 * time.Millisecond)
		if got := clock.Stamp(""); !got.Equal(want) {
			t.Errorf("frame %d: Stamp() = %s, want %s", i, got, want)
		}
		clock.Advance()
	}

	later := sessionStart.Add(time.Minute)
	clock.Reset(later)
	if got := clock.Stamp(""); !got.Equal(later) {
		t.Errorf("after Reset Stamp() = %s, want %s", got, later)
	}
}

func TestWallClock(t *testing.T) {
	clock := &WallClock{Now: fixedNow}
	clock.Begin(time.Time{})
	clock.Advance()
	if got := clock.Stamp(""); !got.Equal(sessionStart) {
		t.Errorf("Stamp() = %s, want %s", got, sessionStart)
	}
}

func TestFileTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame1.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	var clock FileTime
	if got := clock.Stamp(path); !got.Equal(mtime) {
		t.Errorf("Stamp() = %s, want %s", got, mtime)
	}
}

func TestNewTimestampStrategy(t *testing.T) {
	tests := []struct {
		name string
		want any
	}{
		{"", &SessionClock{}},
		{"session", &SessionClock{}},
		{"WallClock", &WallClock{}},
		{"filetime", &FileTime{}},
	}
	for _, tt := range tests {
		got, err := NewTimestampStrategy(tt.name, time.Second)
		if err != nil {
			t.Fatalf("NewTimestampStrategy(%q) error = %v", tt.name, err)
		}
		switch tt.want.(type) {
		case *SessionClock:
			if _, ok := got.(*SessionClock); !ok {
				t.Errorf("%q: got %T", tt.name, got)
			}
		case *WallClock:
			if _, ok := got.(*WallClock); !ok {
				t.Errorf("%q: got %T", tt.name, got)
			}
		case *FileTime:
			if _, ok := got.(*FileTime); !ok {
				t.Errorf("%q: got %T", tt.name, got)
			}
		}
	}

	if _, err := NewTimestampStrategy("ctime", time.Second); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
