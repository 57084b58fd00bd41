package models

import (
	"github.com/smazurov/framefeed/internal/logging"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Pipeline status models
type CheckpointData struct {
	Backend string `json:"backend" example:"file" doc:"Checkpoint backend"`
	Path    string `json:"path" example:"/var/lib/framefeed/checkpoint" doc:"Checkpoint location"`
	Index   *int   `json:"index,omitempty" example:"42" doc:"Stored file index, absent when no checkpoint exists"`
	Error   string `json:"error,omitempty" doc:"Checkpoint read error"`
}

type CountersData struct {
	FramesEncoded    uint64            `json:"frames_encoded" doc:"Successful encoder invocations"`
	EncodeFailures   uint64            `json:"encode_failures" doc:"Failed encoder invocations"`
	IndicesSkipped   uint64            `json:"indices_skipped" doc:"File indices abandoned by the retry policy"`
	FramesForwarded  uint64            `json:"frames_forwarded" doc:"Frame records accepted by the sink"`
	FramesDropped    map[string]uint64 `json:"frames_dropped" doc:"Dropped records by reason"`
	CheckpointErrors uint64            `json:"checkpoint_errors" doc:"Failed checkpoint saves"`
	CleanupErrors    uint64            `json:"cleanup_errors" doc:"Source files that could not be deleted"`
	SinkPackets      uint64            `json:"sink_packets,omitempty" doc:"Packets sent by a network sink"`
	SinkBytes        uint64            `json:"sink_bytes,omitempty" doc:"Bytes sent by a network sink"`
}

type PipelineConfigData struct {
	Fps            int    `json:"fps" example:"25" doc:"Frames per second"`
	Dir            string `json:"dir" example:"/srv/frames" doc:"Source directory"`
	FilenameFormat string `json:"filename_format" example:"session1_frame%d.png" doc:"Source file name template"`
	StartIndex     int    `json:"start_index" example:"1" doc:"First file index"`
	EndIndex       int    `json:"end_index" example:"1500" doc:"Last file index, 0 = unbounded"`
	TotalFiles     int    `json:"total_files" example:"600" doc:"Wraparound modulus"`
	KeyFrameEvery  int    `json:"key_frame_every" example:"25" doc:"Key frame period in frames"`
	Timestamp      string `json:"timestamp" example:"session" doc:"Timestamp strategy"`
	RetryAttempts  int    `json:"retry_attempts" example:"20" doc:"Encode attempts per file index"`
	RetryBackoff   string `json:"retry_backoff" example:"0s" doc:"Pause between attempts"`
	OnExhausted    string `json:"on_exhausted" example:"skip" doc:"Action after the last failed attempt"`
}

type PipelineStatusData struct {
	State         string             `json:"state" example:"running" enum:"unconfigured,configured,running,stopped" doc:"Pipeline state"`
	SessionID     string             `json:"session_id,omitempty" doc:"Identifier of the current run"`
	Sequence      int64              `json:"sequence" example:"125" doc:"Next frame sequence index"`
	ResumeIndex   int                `json:"resume_index" example:"42" doc:"File index the run resumed from"`
	LastFileIndex int                `json:"last_file_index" example:"41" doc:"Last forwarded file index, -1 before the first frame"`
	NextFileIndex int                `json:"next_file_index" example:"43" doc:"File index the source will encode next"`
	Checkpoint    CheckpointData     `json:"checkpoint" doc:"Persisted resume state"`
	Counters      CountersData       `json:"counters" doc:"Pipeline counters"`
	Config        PipelineConfigData `json:"config" doc:"Active configuration"`
}

type PipelineStatusResponse struct {
	Body PipelineStatusData
}

type PipelineActionData struct {
	State   string `json:"state" example:"running" doc:"Pipeline state after the action"`
	Message string `json:"message" example:"Pipeline started" doc:"Result message"`
}

type PipelineActionResponse struct {
	Body PipelineActionData
}

// Log models
type LogsRequest struct {
	Limit int    `query:"limit" minimum:"0" maximum:"10000" default:"200" doc:"Maximum number of entries, newest last"`
	Since uint64 `query:"since" doc:"Only return entries with a sequence number greater than this"`
}

type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Buffered log entries in chronological order"`
	Count   int                `json:"count" example:"200" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

type LogLevelRequest struct {
	Module string `path:"module" example:"ffmpeg" doc:"Logger module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
	}
}

type LogLevelResponse struct {
	Body struct {
		Module string `json:"module" example:"ffmpeg" doc:"Logger module"`
		Level  string `json:"level" example:"debug" doc:"Level in effect"`
	}
}

// Metrics models
type MetricsResponse struct {
	Body CountersData
}
