package ffmpeg

import "sync"

// errorTail remembers the last error-level line ffmpeg printed so a failed
// encode can report why it failed.
type errorTail struct {
	mu   sync.Mutex
	last string
}

// HandleLine implements process.OutputHandler.
func (t *errorTail) HandleLine(source, line string) {
	if source != "stderr" {
		return
	}
	level, msg := ParseLogLevel(line)
	if level != "error" && level != "fatal" {
		return
	}
	t.mu.Lock()
	t.last = msg
	t.mu.Unlock()
}

func (t *errorTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
