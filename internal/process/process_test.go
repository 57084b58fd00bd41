package process

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func shell(script string) *Command {
	return &Command{
		Path:            "sh",
		Args:            []string{"-c", script},
		Logger:          testLogger(),
		GracefulTimeout: 100 * time.Millisecond,
		KillTimeout:     100 * time.Millisecond,
	}
}

// runAsync runs the command in a goroutine and returns the exit code channel.
func runAsync(ctx context.Context, c *Command) <-chan int {
	done := make(chan int, 1)
	go func() {
		code, _ := c.Run(ctx)
		done <- code
	}()
	return done
}

// waitForExit waits for exit code with timeout, fails test on timeout.
func waitForExit(t *testing.T, done <-chan int, timeout time.Duration) int {
	t.Helper()
	select {
	case exitCode := <-done:
		return exitCode
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
		return -1
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   int
	}{
		{"success", "true", 0},
		{"failure", "exit 3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := shell(tt.script).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if code != tt.want {
				t.Errorf("exit code = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestRunStartFailures(t *testing.T) {
	if _, err := (&Command{Logger: testLogger()}).Run(context.Background()); err == nil {
		t.Error("expected error for empty command")
	}
	c := &Command{Path: "/nonexistent/binary", Logger: testLogger()}
	if _, err := c.Run(context.Background()); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestGracefulShutdown(t *testing.T) {
	c := shell("trap 'exit 0' INT TERM; while :; do sleep 0.1; done")
	c.GracefulTimeout = 500 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c)
	time.Sleep(100 * time.Millisecond)
	cancel()

	if exitCode := waitForExit(t, done, time.Second); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	c := shell("trap '' INT; sleep 10")
	c.GracefulTimeout = 50 * time.Millisecond
	c.KillTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c)
	time.Sleep(50 * time.Millisecond)
	cancel()

	if exitCode := waitForExit(t, done, time.Second); exitCode != ExitCodeKilled {
		t.Errorf("expected exit code %d, got %d", ExitCodeKilled, exitCode)
	}
}

func TestStdoutCapture(t *testing.T) {
	var out bytes.Buffer
	c := shell("echo 'ffmpeg version 6.1'; echo 'noise' >&2")
	c.Stdout = &out

	if code, err := c.Run(context.Background()); err != nil || code != 0 {
		t.Fatalf("Run() = %d, %v", code, err)
	}
	if got := strings.TrimSpace(out.String()); got != "ffmpeg version 6.1" {
		t.Errorf("captured stdout = %q", got)
	}
}

func TestOutputHandlerAndParser(t *testing.T) {
	handler := &testOutputHandler{}
	var parsed []string
	var mu sync.Mutex

	c := shell(`echo "[error] error message"; echo "[warning] warn message" >&2; echo "plain message"`)
	c.OutputHandler = handler
	c.LogParser = func(line string) (string, string) {
		mu.Lock()
		parsed = append(parsed, line)
		mu.Unlock()
		return "info", line
	}

	if code, err := c.Run(context.Background()); err != nil || code != 0 {
		t.Fatalf("Run() = %d, %v", code, err)
	}
	if got := handler.Lines(); len(got) != 3 {
		t.Errorf("handler saw %d lines, want 3: %v", len(got), got)
	}
	if len(parsed) != 3 {
		t.Errorf("parser saw %d lines, want 3", len(parsed))
	}
}

func TestString(t *testing.T) {
	c := &Command{Path: "ffmpeg", Args: []string{"-i", "in.png"}}
	if got := c.String(); got != "ffmpeg -i in.png" {
		t.Errorf("String() = %q", got)
	}
}

type testOutputHandler struct {
	mu    sync.Mutex
	lines []string
}

func (h *testOutputHandler) HandleLine(_, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, line)
}

func (h *testOutputHandler) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}
