package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/framefeed/internal/logging"
)

// ExitCodeKilled is returned when the process had to be force-killed.
const ExitCodeKilled = 137

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (ffmpeg, ffprobe, etc.)
type LogParser func(line string) (level, msg string)

// Command is a one-shot subprocess invocation.
type Command struct {
	Path string
	Args []string

	Logger        logging.Logger
	OutputLogger  logging.Logger // logger for process output (nil = Logger)
	LogParser     LogParser      // nil = every line at info
	OutputHandler OutputHandler

	// Stdout captures standard output instead of logging it.
	Stdout io.Writer

	GracefulTimeout time.Duration // default 5s
	KillTimeout     time.Duration // default 5s
}

// String returns the command line for logging.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Run starts the subprocess and blocks until it exits or ctx is cancelled.
// It returns the exit code; err is non-nil only when the process could not start.
func (c *Command) Run(ctx context.Context) (int, error) {
	if strings.TrimSpace(c.Path) == "" {
		return 1, errors.New("empty command")
	}

	cmd := exec.Command(c.Path, c.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var readers []namedReader
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return 1, fmt.Errorf("create stdout pipe: %w", err)
		}
		readers = append(readers, namedReader{"stdout", stdout})
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, fmt.Errorf("create stderr pipe: %w", err)
	}
	readers = append(readers, namedReader{"stderr", stderr})

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("start %s: %w", c.Path, err)
	}
	c.logger().Debug("Process started", "pid", cmd.Process.Pid, "command", c.String())

	outputDone := make(chan struct{}, len(readers))
	for _, r := range readers {
		go func() {
			c.streamOutput(r.reader, r.name)
			outputDone <- struct{}{}
		}()
	}

	// pipes must be drained before Wait
	processDone := make(chan error, 1)
	go func() {
		for range readers {
			<-outputDone
		}
		processDone <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		c.logger().Info("Context cancelled, stopping process", "pid", cmd.Process.Pid)
		sendStopSignal(cmd, c.logger())
		return c.waitForExit(cmd, processDone), nil
	case processErr := <-processDone:
		exitCode := exitCodeFromError(processErr)
		if processErr != nil && exitCode == 1 {
			c.logger().Error("Process exited with error", "error", processErr)
		}
		c.logger().Debug("Process exited", "exit_code", exitCode)
		return exitCode, nil
	}
}

type namedReader struct {
	name   string
	reader io.Reader
}

func (c *Command) logger() logging.Logger {
	if c.Logger == nil {
		return logging.GetLogger("process")
	}
	return c.Logger
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// sendStopSignal sends SIGINT to the subprocess without waiting.
func sendStopSignal(cmd *exec.Cmd, logger logging.Logger) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// waitForExit waits for the process to exit with a timeout, force-killing if needed.
func (c *Command) waitForExit(cmd *exec.Cmd, processDone <-chan error) int {
	graceful := c.GracefulTimeout
	if graceful <= 0 {
		graceful = 5 * time.Second
	}
	killTimeout := c.KillTimeout
	if killTimeout <= 0 {
		killTimeout = 5 * time.Second
	}

	select {
	case err := <-processDone:
		return exitCodeFromError(err)
	case <-time.After(graceful):
		c.logger().Warn("Graceful shutdown timeout, forcing kill", "timeout", graceful)
		// negative pid signals the whole process group
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			c.logger().Error("Failed to kill process", "error", err)
		}
		select {
		case <-processDone:
		case <-time.After(killTimeout):
			c.logger().Error("Process did not exit after kill signal")
		}
		return ExitCodeKilled
	}
}

// streamOutput logs each output line at the level reported by the LogParser.
func (c *Command) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)

	logger := c.OutputLogger
	if logger == nil {
		logger = c.logger()
	}

	for scanner.Scan() {
		line := scanner.Text()

		if c.OutputHandler != nil {
			c.OutputHandler.HandleLine(source, line)
		}

		level, msg := "info", line
		if c.LogParser != nil {
			level, msg = c.LogParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger().Warn("Error reading output", "source", source, "error", err)
	}
}
