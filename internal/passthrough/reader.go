// Package passthrough serves pre-encoded H.264 Annex-B files as frames without
// running an encoder.
package passthrough

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/h264"
	"github.com/smazurov/framefeed/internal/logging"
)

// Reader implements feed.Encoder by returning the source file bytes unchanged.
type Reader struct {
	logger *slog.Logger
}

// New creates a Reader.
func New() *Reader {
	return &Reader{logger: logging.GetLogger("encoder")}
}

// Encode reads inputPath. A missing file is feed.ErrCodeTransientRead and
// content that is not an Annex-B stream is feed.ErrCodeEncode. An empty file
// is returned as an empty frame.
func (r *Reader) Encode(_ context.Context, inputPath string) ([]byte, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, feed.NewError(feed.ErrCodeTransientRead, "input not present", err)
		}
		return nil, feed.NewError(feed.ErrCodeTransientRead, "read input", err)
	}
	if len(data) > 0 && !h264.HasStartCode(data) {
		return nil, feed.NewError(feed.ErrCodeEncode,
			fmt.Sprintf("%s is not an Annex-B stream", inputPath), nil)
	}
	r.logger.Debug("Read pre-encoded frame", "path", inputPath, "bytes", len(data))
	return data, nil
}
