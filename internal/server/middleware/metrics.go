package middleware

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/faciam-dev/gadmin/internal/tenant"
	"github.com/faciam-dev/gadmin/pkg/metrics"
)

// MetricsMW records API request metrics.
func MetricsMW(ctx huma.Context, next func(huma.Context)) {
	r, w := humachi.Unwrap(ctx)
	m := httpsnoop.CaptureMetricsFn(w, func(w http.ResponseWriter) {
		next(humachi.NewContext(ctx.Operation(), r, w))
	})
	path := r.URL.Path
	if op := ctx.Operation(); op != nil && op.Path != "" {
		path = op.Path
	} else {
		path = normalizePath(path)
	}
	tid := tenant.FromContext(r.Context())
	metrics.APIRequests.With(prometheus.Labels{"tenant": tid, "method": r.Method, "path": path, "status": strconv.Itoa(m.Code)}).Inc()
	metrics.APILatency.WithLabelValues(tid, r.Method, path).Observe(m.Duration.Seconds())
}

var idRe = regexp.MustCompile(`\d+`)

func normalizePath(path string) string {
	return idRe.ReplaceAllString(path, ":id")
}
