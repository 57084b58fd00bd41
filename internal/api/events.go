package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/framefeed/internal/events"
)

// registerSSERoutes registers the pipeline event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time pipeline events: forwarded and dropped frames, skipped indices, checkpoints and state changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"frame-forwarded":        events.FrameForwardedEvent{},
		"frame-dropped":          events.FrameDroppedEvent{},
		"index-skipped":          events.IndexSkippedEvent{},
		"checkpoint-saved":       events.CheckpointSavedEvent{},
		"pipeline-state-changed": events.PipelineStateChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 64)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.FrameForwardedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FrameDroppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.IndexSkippedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CheckpointSavedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PipelineStateChangedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// current state first, so clients do not wait for the next transition
		st := s.pipeline.Status()
		if err := send.Data(events.PipelineStateChangedEvent{
			SessionID: st.SessionID,
			State:     string(st.State),
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
