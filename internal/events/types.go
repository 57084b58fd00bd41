package events

// Event type constants for kelindar/event.
const (
	TypeFrameForwarded uint32 = iota + 1
	TypeFrameDropped
	TypeIndexSkipped
	TypeCheckpointSaved
	TypePipelineStateChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FrameForwardedEvent is published after a frame record was accepted by the sink.
type FrameForwardedEvent struct {
	SessionID string `json:"session_id" doc:"Pipeline session identifier"`
	Sequence  int64  `json:"sequence" example:"125" doc:"Frame sequence index"`
	FileIndex int    `json:"file_index" example:"42" doc:"Source file index"`
	Filename  string `json:"filename" example:"session1_frame42.png" doc:"Source file name"`
	Size      int    `json:"size" example:"18342" doc:"Encoded payload size in bytes"`
	KeyFrame  bool   `json:"key_frame" doc:"Whether the frame was flagged as a key frame"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameForwardedEvent.
func (e FrameForwardedEvent) Type() uint32 { return TypeFrameForwarded }

// FrameDroppedEvent is published when a frame could not be delivered.
type FrameDroppedEvent struct {
	SessionID string `json:"session_id" doc:"Pipeline session identifier"`
	Sequence  int64  `json:"sequence" doc:"Frame sequence index"`
	FileIndex int    `json:"file_index" doc:"Source file index"`
	Reason    string `json:"reason" example:"sink" doc:"Drop reason: sink, empty"`
	Error     string `json:"error,omitempty" doc:"Error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// IndexSkippedEvent is published when the retry policy gives up on a file index.
type IndexSkippedEvent struct {
	SessionID string `json:"session_id" doc:"Pipeline session identifier"`
	FileIndex int    `json:"file_index" example:"10" doc:"Skipped source file index"`
	Attempts  int    `json:"attempts" example:"3" doc:"Encode attempts made"`
	Error     string `json:"error" doc:"Last encode error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for IndexSkippedEvent.
func (e IndexSkippedEvent) Type() uint32 { return TypeIndexSkipped }

// CheckpointSavedEvent is published after the resume index was persisted.
type CheckpointSavedEvent struct {
	SessionID string `json:"session_id" doc:"Pipeline session identifier"`
	Index     int    `json:"index" example:"42" doc:"Persisted file index"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CheckpointSavedEvent.
func (e CheckpointSavedEvent) Type() uint32 { return TypeCheckpointSaved }

// PipelineStateChangedEvent represents a controller lifecycle transition.
type PipelineStateChangedEvent struct {
	SessionID string `json:"session_id" doc:"Pipeline session identifier"`
	Previous  string `json:"previous" example:"configured" doc:"Previous state"`
	State     string `json:"state" example:"running" doc:"New state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipelineStateChangedEvent.
func (e PipelineStateChangedEvent) Type() uint32 { return TypePipelineStateChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
