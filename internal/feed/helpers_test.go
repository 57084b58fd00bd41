package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var testFrame = []byte{0, 0, 0, 1, 0x65, 0x88, 0x84}

func testConfig() Config {
	return Config{
		FPS:            25,
		Dir:            "/frames",
		FilenameFormat: "frame%d.png",
		StartIndex:     0,
		TotalFiles:     600,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			Backoff:     time.Millisecond,
			OnExhausted: ExhaustedSkip,
		},
		CheckpointPath: "/frames/checkpoint",
	}
}

func noSleep(time.Duration) {}

// fakeEncoder returns testFrame for every path unless a rule overrides it.
type fakeEncoder struct {
	mu    sync.Mutex
	calls map[string]int
	// fail returns true when the given call number (1-based) for path should fail.
	fail  func(path string, call int) bool
	empty map[string]bool
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{
		calls: make(map[string]int),
		empty: make(map[string]bool),
	}
}

func (e *fakeEncoder) Encode(_ context.Context, path string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls[path]++
	if e.fail != nil && e.fail(path, e.calls[path]) {
		return nil, NewError(ErrCodeEncode, "missing input", errors.New(path))
	}
	if e.empty[path] {
		return nil, nil
	}
	return testFrame, nil
}

func (e *fakeEncoder) Calls(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[path]
}

func framePath(index int) string {
	return fmt.Sprintf("/frames/frame%d.png", index)
}

// recordingSink never blocks so the controller can always be stopped.
type recordingSink struct {
	mu      sync.Mutex
	records []FrameRecord
	want    int
	reached chan struct{}
	failOn  map[int64]bool
}

func newRecordingSink(want int) *recordingSink {
	return &recordingSink{
		want:    want,
		reached: make(chan struct{}),
		failOn:  make(map[int64]bool),
	}
}

func (s *recordingSink) OnFrame(_ context.Context, record FrameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	if len(s.records) == s.want {
		close(s.reached)
	}
	if s.failOn[record.Sequence] {
		return errors.New("sink unavailable")
	}
	return nil
}

func (s *recordingSink) Records() []FrameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FrameRecord(nil), s.records...)
}

func (s *recordingSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.reached:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %d frames, got %d", s.want, len(s.Records()))
	}
}

// memoryStore is an in-memory checkpoint store.
type memoryStore struct {
	mu      sync.Mutex
	index   int
	ok      bool
	saves   []int
	saveErr error
	lockErr error
	locked  bool
}

func (m *memoryStore) Save(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.index, m.ok = index, true
	m.saves = append(m.saves, index)
	return nil
}

func (m *memoryStore) Load() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ok {
		return 0, errors.New("not found")
	}
	return m.index, nil
}

func (m *memoryStore) Lock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return m.lockErr
	}
	m.locked = true
	return nil
}

func (m *memoryStore) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = false
	return nil
}

func (m *memoryStore) Saves() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.saves...)
}

type recordingCleaner struct {
	mu      sync.Mutex
	deleted []string
}

func (c *recordingCleaner) Delete(_, filename string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, filename)
}

func (c *recordingCleaner) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

// collect reads n payloads from src, failing the test on timeout.
func collect(t *testing.T, src *Source, n int) []Payload {
	t.Helper()
	ch := src.Payloads()
	out := make([]Payload, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case p, ok := <-ch:
			if !ok {
				t.Fatalf("payload channel closed after %d payloads", len(out))
			}
			out = append(out, p)
		case <-timeout:
			t.Fatalf("timed out after %d payloads", len(out))
		}
	}
	return out
}

// stopAndDrain stops src and drains its channel until the worker exits.
func stopAndDrain(t *testing.T, src *Source) {
	t.Helper()
	ch := src.Payloads()
	src.Stop()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				<-src.Done()
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for worker exit")
		}
	}
}
