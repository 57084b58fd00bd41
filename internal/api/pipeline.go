package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/framefeed/internal/api/models"
	"github.com/smazurov/framefeed/internal/checkpoint"
	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/metrics"
)

func (s *Server) registerPipelineRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Pipeline Status",
		Description: "Current pipeline state, resume position, checkpoint and counters",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.PipelineStatusResponse, error) {
		return &models.PipelineStatusResponse{Body: s.status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-pipeline",
		Method:      http.MethodPost,
		Path:        "/api/pipeline/start",
		Summary:     "Start Pipeline",
		Description: "Start producing frames from the checkpoint resume position",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 503, 500},
	}, func(_ context.Context, _ *struct{}) (*models.PipelineActionResponse, error) {
		if err := s.pipeline.Start(); err != nil {
			return nil, pipelineError(err)
		}
		return s.actionResponse("Pipeline started"), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-pipeline",
		Method:      http.MethodPost,
		Path:        "/api/pipeline/stop",
		Summary:     "Stop Pipeline",
		Description: "Stop producing frames; the in-flight tick completes before the call returns",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(_ context.Context, _ *struct{}) (*models.PipelineActionResponse, error) {
		if err := s.pipeline.Stop(); err != nil {
			return nil, pipelineError(err)
		}
		return s.actionResponse("Pipeline stopped"), nil
	})
}

func (s *Server) actionResponse(message string) *models.PipelineActionResponse {
	return &models.PipelineActionResponse{
		Body: models.PipelineActionData{
			State:   string(s.pipeline.Status().State),
			Message: message,
		},
	}
}

// pipelineError maps controller errors to HTTP status codes.
func pipelineError(err error) error {
	switch {
	case feed.IsCode(err, feed.ErrCodeAlreadyRunning),
		feed.IsCode(err, feed.ErrCodeInvalidState),
		checkpoint.IsCode(err, checkpoint.ErrCodeLocked):
		return huma.Error409Conflict(err.Error())
	case feed.IsCode(err, feed.ErrCodeEncoderUnavailable):
		return huma.Error503ServiceUnavailable(err.Error())
	case feed.IsCode(err, feed.ErrCodeInvalidConfig):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("pipeline operation failed", err)
	}
}

func (s *Server) status() models.PipelineStatusData {
	st := s.pipeline.Status()
	cfg := st.Config

	data := models.PipelineStatusData{
		State:         string(st.State),
		SessionID:     st.SessionID,
		Sequence:      st.Sequence,
		ResumeIndex:   st.ResumeIndex,
		LastFileIndex: st.LastFileIndex,
		NextFileIndex: st.NextFileIndex,
		Checkpoint:    s.checkpointData(),
		Counters:      s.counters(),
	}
	if st.State != feed.StateUnconfigured {
		data.Config = models.PipelineConfigData{
			Fps:            cfg.FPS,
			Dir:            cfg.Dir,
			FilenameFormat: cfg.FilenameFormat,
			StartIndex:     cfg.StartIndex,
			EndIndex:       cfg.EndIndex,
			TotalFiles:     cfg.TotalFiles,
			KeyFrameEvery:  cfg.KeyFrameEvery(),
			Timestamp:      cfg.Timestamp,
			RetryAttempts:  cfg.Retry.MaxAttempts,
			RetryBackoff:   cfg.Retry.Backoff.String(),
			OnExhausted:    string(cfg.Retry.OnExhausted),
		}
	}
	return data
}

func (s *Server) checkpointData() models.CheckpointData {
	reader := s.options.Checkpoint
	if reader == nil {
		return models.CheckpointData{}
	}

	data := models.CheckpointData{
		Backend: s.options.CheckpointBackend,
		Path:    reader.Path(),
	}
	index, err := reader.Load()
	switch {
	case err == nil:
		data.Index = &index
	case checkpoint.IsNotFound(err):
	default:
		data.Error = err.Error()
	}
	return data
}

// counters merges the pipeline metrics with the sink's own send statistics.
func (s *Server) counters() models.CountersData {
	data := countersData(metrics.Get())
	if s.options.SinkStats != nil {
		data.SinkPackets, data.SinkBytes = s.options.SinkStats.Stats()
	}
	return data
}

func countersData(snap metrics.Snapshot) models.CountersData {
	return models.CountersData{
		FramesEncoded:    snap.FramesEncoded,
		EncodeFailures:   snap.EncodeFailures,
		IndicesSkipped:   snap.IndicesSkipped,
		FramesForwarded:  snap.FramesForwarded,
		FramesDropped:    snap.FramesDropped,
		CheckpointErrors: snap.CheckpointErrors,
		CleanupErrors:    snap.CleanupErrors,
	}
}
