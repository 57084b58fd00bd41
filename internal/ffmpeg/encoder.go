package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/h264"
	"github.com/smazurov/framefeed/internal/logging"
	"github.com/smazurov/framefeed/internal/process"
)

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	FFmpegPath  string
	FFprobePath string
	Params      EncodeParams
	// WorkDir is the parent of the private output directory (default os.TempDir()).
	WorkDir string
	// Timeout bounds one encode (0 = unbounded).
	Timeout time.Duration
}

// Encoder converts one image into one H.264 Annex-B frame by running ffmpeg.
// Each Encoder writes to its own output file, so encodes are serialized per instance.
type Encoder struct {
	ffmpegPath  string
	ffprobePath string
	params      EncodeParams
	timeout     time.Duration
	dir         string
	output      string
	logger      *slog.Logger
	ffmpegLog   *slog.Logger

	mu sync.Mutex
}

// NewEncoder resolves and verifies both binaries and prepares the private output file.
// Any failure is feed.ErrCodeEncoderUnavailable.
func NewEncoder(ctx context.Context, opts EncoderOptions) (*Encoder, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, feed.NewError(feed.ErrCodeEncoderUnavailable, "invalid encode parameters", err)
	}

	ffmpegPath, err := resolveBinary(ctx, opts.FFmpegPath)
	if err != nil {
		return nil, feed.NewError(feed.ErrCodeEncoderUnavailable, "ffmpeg not usable", err)
	}
	ffprobePath, err := resolveBinary(ctx, opts.FFprobePath)
	if err != nil {
		return nil, feed.NewError(feed.ErrCodeEncoderUnavailable, "ffprobe not usable", err)
	}

	dir, err := os.MkdirTemp(opts.WorkDir, "framefeed-encoder-")
	if err != nil {
		return nil, feed.NewError(feed.ErrCodeEncoderUnavailable, "create output directory", err)
	}

	e := &Encoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		params:      opts.Params,
		timeout:     opts.Timeout,
		dir:         dir,
		output:      filepath.Join(dir, "output.h264"),
		logger:      logging.GetLogger("encoder"),
		ffmpegLog:   logging.GetLogger("ffmpeg"),
	}
	e.logger.Info("Encoder ready",
		"ffmpeg", ffmpegPath,
		"ffprobe", ffprobePath,
		"codec", opts.Params.Codec,
		"resolution", opts.Params.Resolution)
	return e, nil
}

// resolveBinary looks up path and checks that "<path> -version" succeeds.
func resolveBinary(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("binary path is empty")
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", err
	}
	if _, err := Version(ctx, resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// Version runs "<path> -version" and returns the first output line.
func Version(ctx context.Context, path string) (string, error) {
	var out bytes.Buffer
	cmd := &process.Command{
		Path:            path,
		Args:            []string{"-version"},
		Logger:          logging.GetLogger("encoder"),
		OutputLogger:    logging.GetLogger("ffmpeg"),
		Stdout:          &out,
		GracefulTimeout: time.Second,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	code, err := cmd.Run(ctx)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("%s -version exited with code %d", path, code)
	}

	line, _, _ := strings.Cut(out.String(), "\n")
	return strings.TrimSpace(line), nil
}

// Encode runs ffmpeg on inputPath and returns the encoded frame.
// A missing input is feed.ErrCodeTransientRead. Non-zero exit, a missing output
// file and output that is not an Annex-B stream are feed.ErrCodeEncode.
// A zero-length output file is returned as an empty frame.
func (e *Encoder) Encode(ctx context.Context, inputPath string) ([]byte, error) {
	if _, err := os.Stat(inputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, feed.NewError(feed.ErrCodeTransientRead, "input not present", err)
		}
		return nil, feed.NewError(feed.ErrCodeEncode, "stat input", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.Remove(e.output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, feed.NewError(feed.ErrCodeEncode, "clear previous output", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	tail := &errorTail{}
	cmd := &process.Command{
		Path:          e.ffmpegPath,
		Args:          BuildEncodeArgs(e.params, inputPath, e.output),
		Logger:        e.logger,
		OutputLogger:  e.ffmpegLog.With("input", filepath.Base(inputPath)),
		LogParser:     ParseLogLevel,
		OutputHandler: tail,
	}
	e.logger.Debug("Encoding frame", "command", cmd.String())

	code, err := cmd.Run(ctx)
	if err != nil {
		return nil, feed.NewError(feed.ErrCodeEncode, "start ffmpeg", err)
	}
	if code != 0 {
		msg := fmt.Sprintf("ffmpeg exited with code %d", code)
		if last := tail.String(); last != "" {
			msg += ": " + last
		}
		return nil, feed.NewError(feed.ErrCodeEncode, msg, nil)
	}

	data, err := os.ReadFile(e.output)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, feed.NewError(feed.ErrCodeEncode, "no output written", err)
		}
		return nil, feed.NewError(feed.ErrCodeEncode, "read output", err)
	}
	if len(data) > 0 && !h264.HasStartCode(data) {
		return nil, feed.NewError(feed.ErrCodeEncode,
			fmt.Sprintf("malformed output: %d bytes without Annex-B start code", len(data)), nil)
	}
	return data, nil
}

// Probe returns the dimensions of the first video stream of inputPath.
func (e *Encoder) Probe(ctx context.Context, inputPath string) (width, height int, err error) {
	var out bytes.Buffer
	cmd := &process.Command{
		Path:         e.ffprobePath,
		Args:         BuildProbeArgs(inputPath),
		Logger:       e.logger,
		OutputLogger: e.ffmpegLog,
		LogParser:    ParseLogLevel,
		Stdout:       &out,
	}

	code, err := cmd.Run(ctx)
	if err != nil {
		return 0, 0, err
	}
	if code != 0 {
		return 0, 0, fmt.Errorf("ffprobe exited with code %d", code)
	}

	fields := strings.Split(strings.TrimSpace(out.String()), ",")
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q", out.String())
	}
	if width, err = strconv.Atoi(strings.TrimSpace(fields[0])); err != nil {
		return 0, 0, fmt.Errorf("parse width: %w", err)
	}
	if height, err = strconv.Atoi(strings.TrimSpace(fields[1])); err != nil {
		return 0, 0, fmt.Errorf("parse height: %w", err)
	}
	return width, height, nil
}

// Close removes the private output directory.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return os.RemoveAll(e.dir)
}
