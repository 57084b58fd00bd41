package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/h264"
	"github.com/smazurov/framefeed/internal/logging"
)

// LogSink logs each record instead of delivering it anywhere.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{logger: logging.GetLogger("sink")}
}

// OnFrame implements feed.Sink.
func (s *LogSink) OnFrame(_ context.Context, record feed.FrameRecord) error {
	s.logger.Info("Frame",
		"sequence", record.Sequence,
		"flags", record.Flags.String(),
		"dts", record.DecodeTime.Format(time.RFC3339Nano),
		"duration", record.Duration,
		"size", len(record.Payload),
		"nal_types", h264.Types(record.Payload),
		"file_index", record.FileIndex,
		"filename", record.Filename)
	return nil
}
