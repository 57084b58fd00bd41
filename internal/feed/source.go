package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/framefeed/internal/events"
	"github.com/smazurov/framefeed/internal/logging"
	"github.com/smazurov/framefeed/internal/metrics"
)

// SourceState is the lifecycle state of a Source.
type SourceState string

// Source states.
const (
	SourceIdle    SourceState = "idle"
	SourceRunning SourceState = "running"
	SourceStopped SourceState = "stopped"
)

// SourceOptions configures a Source. Production begins at Config.StartIndex.
type SourceOptions struct {
	Config    Config
	Encoder   Encoder
	SessionID string
	EventBus  *events.Bus
	// Sleep is used for pacing and backoff; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Source is the frame worker loop. It encodes one file per tick and delivers
// payloads on a channel. Stop is cooperative: the worker polls a flag at the
// top of each tick and between retry attempts, so an in-flight encode, backoff
// or pacing sleep always completes before the worker exits.
type Source struct {
	cfg       Config
	encoder   Encoder
	start     int
	sessionID string
	bus       *events.Bus
	sleep     func(time.Duration)
	logger    *slog.Logger

	running atomic.Bool
	counter atomic.Int64

	mu       sync.Mutex
	state    SourceState
	payloads chan Payload
	done     chan struct{}
}

// NewSource creates an idle Source.
func NewSource(opts *SourceOptions) *Source {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	done := make(chan struct{})
	close(done)

	return &Source{
		cfg:       opts.Config,
		encoder:   opts.Encoder,
		start:     opts.Config.StartIndex,
		sessionID: opts.SessionID,
		bus:       opts.EventBus,
		sleep:     sleep,
		logger:    logging.GetLogger("source"),
		state:     SourceIdle,
		payloads:  make(chan Payload),
		done:      done,
	}
}

// Start launches the worker. From Stopped it first waits for the previous worker.
// The payload channel must be drained or the worker blocks on delivery.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case SourceRunning:
		return NewError(ErrCodeAlreadyRunning, "frame source already running", nil)
	case SourceStopped:
		<-s.done
	}

	payloads := make(chan Payload, s.cfg.queueSize())
	done := make(chan struct{})
	s.payloads = payloads
	s.done = done
	s.state = SourceRunning
	s.running.Store(true)

	go s.run(payloads, done)

	s.logger.Info("Frame source started",
		"start_index", s.start,
		"counter", s.counter.Load(),
		"fps", s.cfg.FPS)
	return nil
}

// Stop requests the worker to exit and returns immediately.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SourceRunning {
		return
	}
	s.running.Store(false)
	s.state = SourceStopped
	s.logger.Info("Frame source stop requested", "counter", s.counter.Load())
}

// Payloads returns the delivery channel of the current run. It is closed when the worker exits.
func (s *Source) Payloads() <-chan Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads
}

// Done is closed when the current worker has exited.
func (s *Source) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// State returns the lifecycle state.
func (s *Source) State() SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Counter returns the number of ticks the worker has advanced past.
func (s *Source) Counter() int64 {
	return s.counter.Load()
}

// NextIndex returns the file index the worker will attempt next.
func (s *Source) NextIndex() int {
	return FileIndex(s.start, s.counter.Load(), s.cfg.TotalFiles)
}

func (s *Source) run(payloads chan<- Payload, done chan<- struct{}) {
	defer close(done)
	defer close(payloads)

	interval := s.cfg.FrameInterval()

	for s.running.Load() {
		counter := s.counter.Load()
		index := FileIndex(s.start, counter, s.cfg.TotalFiles)
		filename := s.cfg.Filename(index)
		path := s.cfg.Path(filename)

		data, attempts, err := s.encodeWithRetry(path)

		switch {
		case err == nil && len(data) > 0:
			payloads <- Payload{
				Counter:   counter,
				FileIndex: index,
				Filename:  filename,
				Path:      path,
				Data:      data,
			}
			s.counter.Add(1)

		case err == nil:
			s.logger.Debug("Empty encode result, advancing", "file_index", index, "filename", filename)
			s.counter.Add(1)

		case !s.running.Load():
			// stopped between attempts; the index is retried on the next start
			return

		default:
			s.exhausted(payloads, counter, index, filename, path, attempts, err)
		}

		if !s.running.Load() {
			return
		}
		s.sleep(interval)
	}
}

// encodeWithRetry attempts the encode up to MaxAttempts times with Backoff between attempts.
func (s *Source) encodeWithRetry(path string) ([]byte, int, error) {
	policy := s.cfg.Retry

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		begin := time.Now()
		data, err := s.encoder.Encode(context.Background(), path)
		metrics.ObserveEncode(time.Since(begin), err)
		if err == nil {
			return data, attempt, nil
		}
		lastErr = err

		s.logger.Debug("Encode attempt failed",
			"path", path,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"error", err)

		if attempt == policy.MaxAttempts || !s.running.Load() {
			return nil, attempt, lastErr
		}
		if policy.Backoff > 0 {
			s.sleep(policy.Backoff)
		}
		if !s.running.Load() {
			return nil, attempt, lastErr
		}
	}
	return nil, policy.MaxAttempts, lastErr
}

func (s *Source) exhausted(payloads chan<- Payload, counter int64, index int, filename, path string, attempts int, err error) {
	metrics.IncIndexSkipped()
	s.bus.Publish(events.IndexSkippedEvent{
		SessionID: s.sessionID,
		FileIndex: index,
		Attempts:  attempts,
		Error:     err.Error(),
		Timestamp: time.Now().Format(time.RFC3339),
	})

	if s.cfg.Retry.OnExhausted == ExhaustedBlock {
		s.logger.Warn("Encode retries exhausted, staying on index",
			"file_index", index,
			"filename", filename,
			"attempts", attempts,
			"error", err)
		return
	}

	s.logger.Warn("Encode retries exhausted, skipping index",
		"file_index", index,
		"filename", filename,
		"attempts", attempts,
		"error", err)

	payloads <- Payload{
		Counter:   counter,
		FileIndex: index,
		Filename:  filename,
		Path:      path,
		Skipped:   true,
	}
	s.counter.Add(1)
}
