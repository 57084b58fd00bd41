package feed

import "context"

// Sink accepts frame records. A returned error drops the frame; production continues.
type Sink interface {
	OnFrame(ctx context.Context, record FrameRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, record FrameRecord) error

// OnFrame implements Sink.
func (f SinkFunc) OnFrame(ctx context.Context, record FrameRecord) error {
	return f(ctx, record)
}

// Encoder turns one source image into one encoded frame payload.
// It does not retry; a zero-length result is a legitimately empty frame.
type Encoder interface {
	Encode(ctx context.Context, inputPath string) ([]byte, error)
}

// EncoderFactory builds an Encoder for a configuration. Failure is fatal to Start.
type EncoderFactory func(cfg Config) (Encoder, error)

// CheckpointStore persists the last consumed file index.
type CheckpointStore interface {
	Save(index int) error
	Load() (int, error)
}

// CheckpointLocker is implemented by stores that support exclusive ownership.
type CheckpointLocker interface {
	Lock() error
	Unlock() error
}

// Cleaner removes consumed source files. Failures are handled internally.
type Cleaner interface {
	Delete(dir, filename string)
}
