package metrics

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gadmin_api_requests_total",
			Help: "Number of API requests",
		},
		[]string{"tenant", "method", "path", "status"},
	)
	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gadmin_api_latency_seconds",
			Help:    "API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant", "method", "path"},
	)
	EntityOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gadmin_entity_operations_total",
			Help: "Entity operations by outcome",
		},
		[]string{"entity", "op", "status"},
	)
	EntityOpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gadmin_entity_operation_seconds",
			Help:    "Latency of entity operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity", "op"},
	)
	Records = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gadmin_records_total",
			Help: "Number of records by entity",
		},
		[]string{"entity"},
	)
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gadmin_select_list_cache_hits_total",
			Help: "Select list cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gadmin_select_list_cache_misses_total",
			Help: "Select list cache misses",
		},
	)
	AuditEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gadmin_audit_events_total",
			Help: "Audit log events",
		},
		[]string{"action"},
	)
	AuditErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gadmin_audit_errors_total",
			Help: "Audit write errors",
		},
		[]string{"action"},
	)
	PendingFiles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gadmin_pending_file_removals",
			Help: "Uploaded files queued for removal",
		},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequests,
		APILatency,
		EntityOps,
		EntityOpLatency,
		Records,
		CacheHits,
		CacheMisses,
		AuditEvents,
		AuditErrors,
		PendingFiles,
	)
}

// ObserveOp records the outcome and latency of an entity operation.
func ObserveOp(entity, op string, err error, start time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EntityOps.WithLabelValues(entity, op, status).Inc()
	EntityOpLatency.WithLabelValues(entity, op).Observe(time.Since(start).Seconds())
}

// RecordCounter is implemented by services able to count records per entity.
type RecordCounter interface {
	CountRecords(ctx context.Context) (map[string]int64, error)
}

// StartRecordGauge starts a background job that updates the record gauge every 30 seconds.
func StartRecordGauge(ctx context.Context, c RecordCounter) {
	if c == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				counts, err := c.CountRecords(ctx)
				if err != nil {
					log.Printf("Error in CountRecords: %v", err)
					continue
				}
				for e, n := range counts {
					Records.WithLabelValues(e).Set(float64(n))
				}
			}
		}
	}()
}
