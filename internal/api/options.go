package api

import (
	"net/http"

	"github.com/smazurov/framefeed/internal/events"
	"github.com/smazurov/framefeed/internal/feed"
)

// Pipeline is the controller surface the API drives.
type Pipeline interface {
	Start() error
	Stop() error
	Status() feed.Status
}

// CheckpointReader exposes the persisted resume state for status reporting.
type CheckpointReader interface {
	Load() (int, error)
	Path() string
}

// SinkStats is implemented by sinks that count what they send.
type SinkStats interface {
	Stats() (packets, bytes uint64)
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Pipeline          Pipeline
	Checkpoint        CheckpointReader // optional
	CheckpointBackend string
	EventBus          *events.Bus
	SinkStats         SinkStats    // optional
	PrometheusHandler http.Handler // optional, mounted at /metrics without auth
}
