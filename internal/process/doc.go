// Package process runs short-lived subprocesses such as a single ffmpeg encode.
//
// Command wraps os/exec with:
//   - Graceful shutdown with SIGINT when the context is cancelled
//   - Force kill with SIGKILL if graceful shutdown times out
//   - Output streaming with pluggable log parsing
//   - Optional stdout capture for probe-style commands
//
// Example usage:
//
//	cmd := &process.Command{
//	    Path:         "/usr/local/bin/ffmpeg",
//	    Args:         []string{"-i", "in.png", "-f", "h264", "out.h264"},
//	    Logger:       logging.GetLogger("encoder"),
//	    OutputLogger: logging.GetLogger("ffmpeg"),
//	    LogParser:    ffmpeg.ParseLogLevel,
//	}
//	exitCode, err := cmd.Run(ctx)
package process
