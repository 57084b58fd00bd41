package feed

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config describes one image-sequence pipeline. It is read-only once configured.
type Config struct {
	FPS            int
	Dir            string
	FilenameFormat string
	StartIndex     int
	EndIndex       int // inclusive, 0 = unbounded
	TotalFiles     int
	Retry          RetryPolicy
	CheckpointPath string
	FFmpegPath     string
	FFprobePath    string

	// KeyFrameRate overrides FPS for the key frame rule (0 = FPS).
	KeyFrameRate int
	// Timestamp names the TimestampStrategy (session, wallclock, filetime).
	Timestamp string
	// QueueSize is the payload channel capacity between worker and controller.
	QueueSize int
}

// Validate checks the configuration shape.
func (c Config) Validate() error {
	var problems []string

	if c.FPS <= 0 {
		problems = append(problems, fmt.Sprintf("fps must be > 0, got %d", c.FPS))
	}
	if c.TotalFiles < 1 {
		problems = append(problems, fmt.Sprintf("total files must be >= 1, got %d", c.TotalFiles))
	}
	if strings.TrimSpace(c.Dir) == "" {
		problems = append(problems, "source directory is required")
	}
	if n := countIntVerbs(c.FilenameFormat); n != 1 {
		problems = append(problems, fmt.Sprintf("filename format %q must contain exactly one integer verb", c.FilenameFormat))
	}
	if c.StartIndex < 0 {
		problems = append(problems, fmt.Sprintf("start index must not be negative, got %d", c.StartIndex))
	}
	if c.EndIndex != 0 && c.EndIndex < c.StartIndex {
		problems = append(problems, fmt.Sprintf("end index %d is before start index %d", c.EndIndex, c.StartIndex))
	}
	if c.KeyFrameRate < 0 {
		problems = append(problems, fmt.Sprintf("key frame rate must not be negative, got %d", c.KeyFrameRate))
	}
	if c.QueueSize < 0 {
		problems = append(problems, fmt.Sprintf("queue size must not be negative, got %d", c.QueueSize))
	}
	if err := c.Retry.validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := NewTimestampStrategy(c.Timestamp, time.Second); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return NewError(ErrCodeInvalidConfig, strings.Join(problems, "; "), nil)
	}
	return nil
}

// Filename renders the source file name for a file index.
func (c Config) Filename(index int) string {
	return fmt.Sprintf(c.FilenameFormat, index)
}

// Path returns the full source path for a file name.
func (c Config) Path(filename string) string {
	return filepath.Join(c.Dir, filename)
}

// FrameInterval is the pacing interval and per-frame duration.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// KeyFrameEvery returns the period of the key frame rule.
func (c Config) KeyFrameEvery() int {
	if c.KeyFrameRate > 0 {
		return c.KeyFrameRate
	}
	return c.FPS
}

func (c Config) queueSize() int {
	if c.QueueSize > 0 {
		return c.QueueSize
	}
	return 1
}

// countIntVerbs counts printf integer verbs (%d with optional flags and width).
// Any other verb makes the format invalid and is reported as -1.
func countIntVerbs(format string) int {
	count := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			continue
		}
		for i < len(format) && strings.IndexByte("+-# 0123456789", format[i]) >= 0 {
			i++
		}
		if i >= len(format) || format[i] != 'd' {
			return -1
		}
		count++
	}
	return count
}
