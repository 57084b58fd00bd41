// Package metrics provides Prometheus metrics for the frame pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used as the "reason" label.
const (
	DropReasonSink  = "sink"
	DropReasonEmpty = "empty"
)

var (
	framesEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framefeed",
		Subsystem: "source",
		Name:      "frames_encoded_total",
		Help:      "Source files successfully encoded into frames",
	})

	encodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framefeed",
		Subsystem: "source",
		Name:      "encode_failures_total",
		Help:      "Failed encode attempts, including retries",
	})

	indicesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framefeed",
		Subsystem: "source",
		Name:      "indices_skipped_total",
		Help:      "File indices abandoned after the retry policy was exhausted",
	})

	encodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "framefeed",
		Subsystem: "source",
		Name:      "encode_duration_seconds",
		Help:      "Duration of a single encoder invocation",
		Buckets:   []float64{0.005, 0.01, 0.02, 0.04, 0.08, 0.16, 0.32, 0.64, 1.28},
	})

	framesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framefeed",
		Subsystem: "controller",
		Name:      "frames_forwarded_total",
		Help:      "Frame records accepted by the sink",
	})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framefeed",
		Subsystem: "controller",
		Name:      "frames_dropped_total",
		Help:      "Frame records not delivered to the sink",
	}, []string{"reason"})

	checkpointIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "framefeed",
		Subsystem: "controller",
		Name:      "checkpoint_index",
		Help:      "Last file index persisted to the checkpoint store",
	})

	checkpointErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framefeed",
		Subsystem: "controller",
		Name:      "checkpoint_errors_total",
		Help:      "Checkpoint read or write failures",
	})

	cleanupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framefeed",
		Subsystem: "cleanup",
		Name:      "errors_total",
		Help:      "Source files that could not be deleted after forwarding",
	})

	// Local cache for status API access.
	snapshot   Snapshot
	snapshotMu sync.RWMutex
)

// Snapshot holds current counter values for the status API.
type Snapshot struct {
	FramesEncoded    uint64
	EncodeFailures   uint64
	IndicesSkipped   uint64
	FramesForwarded  uint64
	FramesDropped    map[string]uint64
	CheckpointIndex  int
	CheckpointErrors uint64
	CleanupErrors    uint64
}

// ObserveEncode records one encoder invocation.
func ObserveEncode(d time.Duration, err error) {
	encodeDuration.Observe(d.Seconds())
	if err != nil {
		encodeFailures.Inc()
		update(func(s *Snapshot) { s.EncodeFailures++ })
		return
	}
	framesEncoded.Inc()
	update(func(s *Snapshot) { s.FramesEncoded++ })
}

// IncIndexSkipped records an abandoned file index.
func IncIndexSkipped() {
	indicesSkipped.Inc()
	update(func(s *Snapshot) { s.IndicesSkipped++ })
}

// IncForwarded records a frame accepted by the sink.
func IncForwarded() {
	framesForwarded.Inc()
	update(func(s *Snapshot) { s.FramesForwarded++ })
}

// IncDropped records a dropped frame with the given reason.
func IncDropped(reason string) {
	framesDropped.WithLabelValues(reason).Inc()
	update(func(s *Snapshot) {
		if s.FramesDropped == nil {
			s.FramesDropped = make(map[string]uint64)
		}
		s.FramesDropped[reason]++
	})
}

// SetCheckpointIndex records the last persisted file index.
func SetCheckpointIndex(index int) {
	checkpointIndex.Set(float64(index))
	update(func(s *Snapshot) { s.CheckpointIndex = index })
}

// IncCheckpointErrors records a checkpoint read or write failure.
func IncCheckpointErrors() {
	checkpointErrors.Inc()
	update(func(s *Snapshot) { s.CheckpointErrors++ })
}

// IncCleanupErrors records a failed source file deletion.
func IncCleanupErrors() {
	cleanupErrors.Inc()
	update(func(s *Snapshot) { s.CleanupErrors++ })
}

// Get returns a copy of the current counter values.
func Get() Snapshot {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	dup := snapshot
	dup.FramesDropped = make(map[string]uint64, len(snapshot.FramesDropped))
	for k, v := range snapshot.FramesDropped {
		dup.FramesDropped[k] = v
	}
	return dup
}

func update(fn func(*Snapshot)) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	fn(&snapshot)
}
