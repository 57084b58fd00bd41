package feed

import "time"

// FrameFlag marks how a frame may be decoded.
type FrameFlag int

// Frame flags.
const (
	FlagNone     FrameFlag = 0
	FlagKeyFrame FrameFlag = 1
)

func (f FrameFlag) String() string {
	if f == FlagKeyFrame {
		return "key"
	}
	return "none"
}

// FrameRecord is one encoded frame handed to the sink.
// PresentationTime always equals DecodeTime.
type FrameRecord struct {
	Sequence         int64
	Flags            FrameFlag
	DecodeTime       time.Time
	PresentationTime time.Time
	Duration         time.Duration
	Payload          []byte

	FileIndex int
	Filename  string
}

// IsKeyFrame reports whether the record carries the key frame flag.
func (r FrameRecord) IsKeyFrame() bool {
	return r.Flags == FlagKeyFrame
}

// Payload is one unit of output from the frame source worker.
// An empty Data marks a tick that produced nothing (empty encode or exhausted retries).
type Payload struct {
	Counter   int64
	FileIndex int
	Filename  string
	Path      string
	Data      []byte
	Skipped   bool
}

// KeyFrameFlag applies the key frame rule: one key frame every rate frames.
func KeyFrameFlag(sequence int64, rate int) FrameFlag {
	if rate > 0 && sequence%int64(rate) == 0 {
		return FlagKeyFrame
	}
	return FlagNone
}

// FileIndex derives the wrapped file index for a worker counter.
func FileIndex(start int, counter int64, totalFiles int) int {
	return int((int64(start) + counter) % int64(totalFiles))
}
