package server

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faciam-dev/gadmin/internal/server/middleware"
	"github.com/faciam-dev/gadmin/pkg/metrics"
)

// setupMetrics registers the metrics middleware and the scrape endpoint.
func setupMetrics(api huma.API, r chi.Router) {
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	api.UseMiddleware(middleware.MetricsMW)
}

// StartGauges keeps the per entity record gauge current until ctx ends.
func (a *App) StartGauges(ctx context.Context) {
	metrics.StartRecordGauge(ctx, a.Service)
}
