package ffmpeg

import (
	"fmt"
	"strconv"
)

// EncodeParams holds the settings for a single image-to-frame encode.
type EncodeParams struct {
	Codec       string // libx264
	Preset      string // ultrafast, veryfast, ...
	Tune        string // zerolatency
	Resolution  string // 1280x720 (empty = keep input size)
	FPS         int
	PixelFormat string // yuv420p
	Profile     string // baseline, main, high (empty = encoder default)
}

// DefaultEncodeParams returns the settings used by the pipeline.
func DefaultEncodeParams(fps int) EncodeParams {
	return EncodeParams{
		Codec:       "libx264",
		Preset:      "ultrafast",
		Tune:        "zerolatency",
		Resolution:  "1280x720",
		FPS:         fps,
		PixelFormat: "yuv420p",
	}
}

// Validate checks the parameters before a command is built.
func (p EncodeParams) Validate() error {
	if p.Codec == "" {
		return fmt.Errorf("codec is required")
	}
	if p.FPS <= 0 {
		return fmt.Errorf("fps must be > 0, got %d", p.FPS)
	}
	if p.Resolution != "" {
		var w, h int
		if _, err := fmt.Sscanf(p.Resolution, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
			return fmt.Errorf("invalid resolution %q (want WxH)", p.Resolution)
		}
	}
	return nil
}

// BuildEncodeArgs builds the ffmpeg arguments that turn inputPath into a single
// raw H.264 Annex-B frame at outputPath, overwriting it.
func BuildEncodeArgs(p EncodeParams, inputPath, outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", LogLevelArg,
		"-y",
		"-i", inputPath,
		"-frames:v", "1",
		"-c:v", p.Codec,
	}

	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	if p.Tune != "" {
		args = append(args, "-tune", p.Tune)
	}
	if p.Profile != "" {
		args = append(args, "-profile:v", p.Profile)
	}
	if p.Resolution != "" {
		args = append(args, "-s", p.Resolution)
	}
	args = append(args, "-r", strconv.Itoa(p.FPS))
	if p.PixelFormat != "" {
		args = append(args, "-pix_fmt", p.PixelFormat)
	}

	return append(args, "-f", "h264", outputPath)
}

// BuildProbeArgs builds the ffprobe arguments that print "width,height" of the first video stream.
func BuildProbeArgs(inputPath string) []string {
	return []string{
		"-hide_banner",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		inputPath,
	}
}
