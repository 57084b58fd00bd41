package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/framefeed/internal/api/models"
)

// registerMetricsRoutes mounts the Prometheus scrape endpoint and a JSON counter view.
func (s *Server) registerMetricsRoutes() {
	if s.options.PrometheusHandler != nil {
		// plain mux route, scrapers do not authenticate
		s.mux.Handle("GET /metrics", s.options.PrometheusHandler)
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-metrics",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Pipeline Counters",
		Description: "Current values of the pipeline counters",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.MetricsResponse, error) {
		return &models.MetricsResponse{Body: s.counters()}, nil
	})
}
