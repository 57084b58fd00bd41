package feed

import (
	"testing"
	"time"
)

func TestSource_WrapAround(t *testing.T) {
	cfg := testConfig()
	src := NewSource(&SourceOptions{Config: cfg, Encoder: newFakeEncoder(), Sleep: noSleep})
	if err := src.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payloads := collect(t, src, 601)
	stopAndDrain(t, src)

	for i, p := range payloads {
		if want := i % 600; p.FileIndex != want {
			t.Fatalf("payload %d: FileIndex = %d, want %d", i, p.FileIndex, want)
		}
		if p.Counter != int64(i) {
			t.Fatalf("payload %d: Counter = %d", i, p.Counter)
		}
	}
	if payloads[600].FileIndex != 0 {
		t.Errorf("after 600 ticks index = %d, want 0", payloads[600].FileIndex)
	}
	if payloads[3].Filename != "frame3.png" || payloads[3].Path != "/frames/frame3.png" {
		t.Errorf("unexpected file naming: %+v", payloads[3])
	}
}

func TestSource_EmptyEncodeAdvancesWithoutDelivery(t *testing.T) {
	enc := newFakeEncoder()
	enc.empty[framePath(2)] = true

	src := NewSource(&SourceOptions{Config: testConfig(), Encoder: enc, Sleep: noSleep})
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	payloads := collect(t, src, 3)
	stopAndDrain(t, src)

	want := []int{0, 1, 3}
	for i, p := range payloads {
		if p.FileIndex != want[i] {
			t.Errorf("payload %d: FileIndex = %d, want %d", i, p.FileIndex, want[i])
		}
		if len(p.Data) == 0 {
			t.Errorf("payload %d delivered without data", i)
		}
	}
}

func TestSource_RetryExhaustedSkips(t *testing.T) {
	enc := newFakeEncoder()
	enc.fail = func(path string, _ int) bool {
		return path == framePath(10) || path == framePath(11) || path == framePath(12)
	}

	cfg := testConfig()
	cfg.StartIndex = 9
	src := NewSource(&SourceOptions{Config: cfg, Encoder: enc, Sleep: noSleep})
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	payloads := collect(t, src, 5)
	stopAndDrain(t, src)

	tests := []struct {
		index   int
		skipped bool
	}{
		{9, false},
		{10, true},
		{11, true},
		{12, true},
		{13, false},
	}
	for i, tt := range tests {
		p := payloads[i]
		if p.FileIndex != tt.index || p.Skipped != tt.skipped {
			t.Errorf("payload %d = {index %d, skipped %v}, want {index %d, skipped %v}",
				i, p.FileIndex, p.Skipped, tt.index, tt.skipped)
		}
		if tt.skipped && len(p.Data) != 0 {
			t.Errorf("skip marker for %d carries data", tt.index)
		}
	}

	for _, index := range []int{10, 11, 12} {
		if got := enc.Calls(framePath(index)); got != 3 {
			t.Errorf("index %d attempted %d times, want 3", index, got)
		}
	}
}

func TestSource_RetryExhaustedBlocks(t *testing.T) {
	enc := newFakeEncoder()
	enc.fail = func(path string, call int) bool {
		return path == framePath(5) && call <= 4
	}

	cfg := testConfig()
	cfg.StartIndex = 5
	cfg.Retry = RetryPolicy{MaxAttempts: 2, OnExhausted: ExhaustedBlock}
	src := NewSource(&SourceOptions{Config: cfg, Encoder: enc, Sleep: noSleep})
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	payloads := collect(t, src, 2)
	stopAndDrain(t, src)

	if payloads[0].FileIndex != 5 || payloads[0].Skipped {
		t.Errorf("first payload = %+v, want data for index 5", payloads[0])
	}
	if payloads[1].FileIndex != 6 {
		t.Errorf("second payload index = %d, want 6", payloads[1].FileIndex)
	}
	if got := enc.Calls(framePath(5)); got != 5 {
		t.Errorf("index 5 attempted %d times, want 5", got)
	}
}

func TestSource_StartWhileRunning(t *testing.T) {
	src := NewSource(&SourceOptions{Config: testConfig(), Encoder: newFakeEncoder(), Sleep: noSleep})
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	defer stopAndDrain(t, src)

	err := src.Start()
	if !IsCode(err, ErrCodeAlreadyRunning) {
		t.Errorf("second Start() error = %v, want %s", err, ErrCodeAlreadyRunning)
	}
}

func TestSource_RestartContinuesCounter(t *testing.T) {
	src := NewSource(&SourceOptions{Config: testConfig(), Encoder: newFakeEncoder(), Sleep: noSleep})
	if src.State() != SourceIdle {
		t.Fatalf("initial state = %s", src.State())
	}
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	collect(t, src, 2)
	stopAndDrain(t, src)

	if src.State() != SourceStopped {
		t.Fatalf("state after stop = %s", src.State())
	}
	next := src.NextIndex()

	if err := src.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	payloads := collect(t, src, 1)
	stopAndDrain(t, src)

	if payloads[0].FileIndex != next {
		t.Errorf("restart resumed at %d, want %d", payloads[0].FileIndex, next)
	}
}

func TestSource_StopBetweenAttempts(t *testing.T) {
	enc := newFakeEncoder()
	enc.fail = func(string, int) bool { return true }

	cfg := testConfig()
	cfg.Retry = RetryPolicy{MaxAttempts: 10, Backoff: time.Second, OnExhausted: ExhaustedSkip}

	var src *Source
	src = NewSource(&SourceOptions{
		Config:  cfg,
		Encoder: enc,
		Sleep: func(time.Duration) {
			src.Stop()
		},
	})
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-src.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after stop")
	}

	if got := enc.Calls(framePath(0)); got != 1 {
		t.Errorf("attempts after stop = %d, want 1", got)
	}
	if src.Counter() != 0 {
		t.Errorf("counter advanced to %d on a stopped retry", src.Counter())
	}
	if _, ok := <-src.Payloads(); ok {
		t.Error("payload delivered after stop")
	}
}
