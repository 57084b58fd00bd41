package ffmpeg

import "strings"

// LogLevelArg makes ffmpeg prefix every stderr line with its level.
const LogLevelArg = "level+warning"

// ParseLogLevel extracts the log level from ffmpeg stderr.
// With -loglevel level+<n> lines look like "[warning] message"
// or "[component @ 0x...] [level] message" for component-specific logs.
// The component prefix is preserved; verbose output is reported as debug.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	if bracket := line[1:end]; isLogLevel(bracket) {
		return normalizeLevel(bracket), line[end+2:]
	}

	component, rest := line[:end+2], line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if next := strings.Index(rest, "] "); next != -1 && isLogLevel(rest[1:next]) {
			return normalizeLevel(rest[1:next]), component + rest[next+2:]
		}
	}

	return "info", line
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}

func normalizeLevel(s string) string {
	switch s {
	case "panic", "quiet":
		return "fatal"
	case "verbose":
		return "debug"
	}
	return s
}
