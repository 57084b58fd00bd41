package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/framefeed/internal/events"
	"github.com/smazurov/framefeed/internal/logging"
	"github.com/smazurov/framefeed/internal/metrics"
)

// State is the lifecycle state of a Controller.
type State string

// Controller states.
const (
	StateUnconfigured State = "unconfigured"
	StateConfigured   State = "configured"
	StateRunning      State = "running"
	StateStopped      State = "stopped"
)

// ControllerOptions holds the collaborators of a Controller.
type ControllerOptions struct {
	Checkpoint CheckpointStore
	NewEncoder EncoderFactory
	Sink       Sink
	Cleaner    Cleaner // optional
	EventBus   *events.Bus
	// Sleep and Now are overridable for tests.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// Status is a point-in-time view of the controller.
type Status struct {
	State         State
	SessionID     string
	Sequence      int64
	ResumeIndex   int
	LastFileIndex int // -1 until a frame was forwarded
	NextFileIndex int
	Config        Config
}

// Controller owns the pipeline lifecycle. It builds frame records from source
// payloads, forwards them to the sink, then deletes the consumed file and
// persists the checkpoint, strictly in emission order.
//
// Configure, Start and Stop are meant to be called from one control goroutine.
type Controller struct {
	store      CheckpointStore
	newEncoder EncoderFactory
	sink       Sink
	cleaner    Cleaner
	bus        *events.Bus
	sleep      func(time.Duration)
	now        func() time.Time
	logger     *slog.Logger

	mu           sync.Mutex
	state        State
	cfg          Config
	resume       int
	sessionID    string
	source       *Source
	encoder      Encoder
	locked       bool
	consumerDone chan struct{}
	cancel       context.CancelFunc

	sequence  atomic.Int64
	lastIndex atomic.Int64
}

// NewController creates an unconfigured controller.
func NewController(opts *ControllerOptions) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		store:      opts.Checkpoint,
		newEncoder: opts.NewEncoder,
		sink:       opts.Sink,
		cleaner:    opts.Cleaner,
		bus:        opts.EventBus,
		sleep:      opts.Sleep,
		now:        now,
		logger:     logging.GetLogger("feed"),
		state:      StateUnconfigured,
	}
	c.lastIndex.Store(-1)
	return c
}

// Configure validates cfg and resets the sequence index to the checkpoint resume value.
func (c *Controller) Configure(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		return NewError(ErrCodeInvalidState, "cannot configure a running pipeline", nil)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.resume = c.resumeIndex(cfg)
	c.sequence.Store(int64(c.resume))
	c.setState(StateConfigured)

	c.logger.Info("Pipeline configured",
		"dir", cfg.Dir,
		"format", cfg.FilenameFormat,
		"fps", cfg.FPS,
		"total_files", cfg.TotalFiles,
		"resume_index", c.resume)
	return nil
}

// ResumeAfter returns the file index that follows a consumed checkpoint index.
func ResumeAfter(checkpoint, totalFiles int) int {
	resume := (checkpoint + 1) % totalFiles
	if resume < 0 {
		resume += totalFiles
	}
	return resume
}

// resumeIndex loads the checkpoint and returns the next index to produce,
// falling back to the configured start index.
func (c *Controller) resumeIndex(cfg Config) int {
	if c.store == nil {
		return cfg.StartIndex
	}

	index, err := c.store.Load()
	if err != nil {
		c.logger.Info("No usable checkpoint, starting from configured index",
			"start_index", cfg.StartIndex,
			"reason", err)
		return cfg.StartIndex
	}

	resume := ResumeAfter(index, cfg.TotalFiles)
	c.logger.Info("Resuming from checkpoint", "checkpoint", index, "resume_index", resume)
	return resume
}

// Start builds the encoder and source and begins production.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUnconfigured:
		return NewError(ErrCodeInvalidState, "pipeline is not configured", nil)
	case StateRunning:
		return NewError(ErrCodeAlreadyRunning, "pipeline already running", nil)
	case StateStopped:
		// resume where the previous run left off
		c.resume = c.resumeIndex(c.cfg)
		c.sequence.Store(int64(c.resume))
	}

	encoder, err := c.newEncoder(c.cfg)
	if err != nil {
		if IsCode(err, ErrCodeEncoderUnavailable) {
			return err
		}
		return NewError(ErrCodeEncoderUnavailable, "failed to construct encoder", err)
	}
	c.encoder = encoder

	if locker, ok := c.store.(CheckpointLocker); ok {
		if err := locker.Lock(); err != nil {
			c.closeEncoder()
			return fmt.Errorf("failed to take checkpoint ownership: %w", err)
		}
		c.locked = true
	}

	c.sessionID = uuid.NewString()
	// the worker starts at the resume index, not the configured one
	sourceCfg := c.cfg
	sourceCfg.StartIndex = c.resume
	c.source = NewSource(&SourceOptions{
		Config:    sourceCfg,
		Encoder:   encoder,
		SessionID: c.sessionID,
		EventBus:  c.bus,
		Sleep:     c.sleep,
	})
	if err := c.source.Start(); err != nil {
		c.unlock()
		c.closeEncoder()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.consumerDone = make(chan struct{})
	go c.consume(ctx, c.cfg, c.source.Payloads(), c.consumerDone, c.sessionID)

	c.setState(StateRunning)
	c.logger.Info("Pipeline started", "session_id", c.sessionID, "resume_index", c.resume)
	return nil
}

// Stop stops the source, waits for already delivered payloads to be processed
// and releases the checkpoint. The wait is bounded by one in-flight tick.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return nil
	}

	if c.source != nil {
		c.source.Stop()
		<-c.consumerDone
		c.cancel()
	}
	c.unlock()
	c.closeEncoder()

	c.setState(StateStopped)
	c.logger.Info("Pipeline stopped",
		"session_id", c.sessionID,
		"sequence", c.sequence.Load(),
		"last_file_index", c.lastIndex.Load())
	return nil
}

// Status returns the current controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:         c.state,
		SessionID:     c.sessionID,
		Sequence:      c.sequence.Load(),
		ResumeIndex:   c.resume,
		LastFileIndex: int(c.lastIndex.Load()),
		NextFileIndex: c.resume,
		Config:        c.cfg,
	}
	if c.source != nil {
		st.NextFileIndex = c.source.NextIndex()
	}
	return st
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) unlock() {
	if !c.locked {
		return
	}
	if locker, ok := c.store.(CheckpointLocker); ok {
		if err := locker.Unlock(); err != nil {
			c.logger.Warn("Failed to release checkpoint lock", "error", err)
		}
	}
	c.locked = false
}

func (c *Controller) closeEncoder() {
	closer, ok := c.encoder.(io.Closer)
	if ok {
		if err := closer.Close(); err != nil {
			c.logger.Warn("Failed to close encoder", "error", err)
		}
	}
	c.encoder = nil
}

func (c *Controller) setState(next State) {
	prev := c.state
	c.state = next
	if prev == next {
		return
	}
	c.bus.Publish(events.PipelineStateChangedEvent{
		SessionID: c.sessionID,
		Previous:  string(prev),
		State:     string(next),
		Timestamp: c.now().Format(time.RFC3339),
	})
}

// consume is the single goroutine that turns payloads into frame records.
func (c *Controller) consume(ctx context.Context, cfg Config, payloads <-chan Payload, done chan<- struct{}, sessionID string) {
	defer close(done)

	clock, err := NewTimestampStrategy(cfg.Timestamp, cfg.FrameInterval())
	if err != nil {
		// Validate already rejected unknown strategies
		clock = &SessionClock{Interval: cfg.FrameInterval()}
	}
	clock.Begin(c.now())

	for payload := range payloads {
		c.handlePayload(ctx, cfg, clock, sessionID, payload)
	}
}

func (c *Controller) handlePayload(ctx context.Context, cfg Config, clock TimestampStrategy, sessionID string, payload Payload) {
	sequence := c.sequence.Add(1) - 1

	if len(payload.Data) == 0 {
		// a gap must not compress later timestamps
		clock.Reset(c.now())
		metrics.IncDropped(metrics.DropReasonEmpty)
		c.logger.Debug("Discarding empty payload",
			"sequence", sequence,
			"file_index", payload.FileIndex,
			"skipped", payload.Skipped)
		return
	}

	ts := clock.Stamp(payload.Path)
	record := FrameRecord{
		Sequence:         sequence,
		Flags:            KeyFrameFlag(sequence, cfg.KeyFrameEvery()),
		DecodeTime:       ts,
		PresentationTime: ts,
		Duration:         cfg.FrameInterval(),
		Payload:          payload.Data,
		FileIndex:        payload.FileIndex,
		Filename:         payload.Filename,
	}

	if err := c.sink.OnFrame(ctx, record); err != nil {
		metrics.IncDropped(metrics.DropReasonSink)
		c.logger.Warn("Sink rejected frame, dropping",
			"sequence", sequence,
			"file_index", payload.FileIndex,
			"error", err)
		c.bus.Publish(events.FrameDroppedEvent{
			SessionID: sessionID,
			Sequence:  sequence,
			FileIndex: payload.FileIndex,
			Reason:    metrics.DropReasonSink,
			Error:     err.Error(),
			Timestamp: c.now().Format(time.RFC3339),
		})
	} else {
		metrics.IncForwarded()
		c.bus.Publish(events.FrameForwardedEvent{
			SessionID: sessionID,
			Sequence:  sequence,
			FileIndex: payload.FileIndex,
			Filename:  payload.Filename,
			Size:      len(payload.Data),
			KeyFrame:  record.IsKeyFrame(),
			Timestamp: c.now().Format(time.RFC3339),
		})
	}
	clock.Advance()

	if c.cleaner != nil {
		c.cleaner.Delete(cfg.Dir, payload.Filename)
	}

	c.lastIndex.Store(int64(payload.FileIndex))
	c.saveCheckpoint(sessionID, payload.FileIndex)
}

func (c *Controller) saveCheckpoint(sessionID string, index int) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(index); err != nil {
		metrics.IncCheckpointErrors()
		c.logger.Error("Failed to persist checkpoint", "index", index, "error", err)
		return
	}
	metrics.SetCheckpointIndex(index)
	c.bus.Publish(events.CheckpointSavedEvent{
		SessionID: sessionID,
		Index:     index,
		Timestamp: c.now().Format(time.RFC3339),
	})
}
