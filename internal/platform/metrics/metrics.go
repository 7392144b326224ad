package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OracleRequests counts logical routing oracle calls by outcome (ok or an error code).
	OracleRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routing_oracle_requests_total", Help: "Routing oracle calls by outcome."},
		[]string{"outcome"},
	)
	OracleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "routing_oracle_request_duration_seconds", Help: "Routing oracle call duration including retries.", Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}},
		[]string{"outcome"},
	)
	OracleRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "routing_oracle_retries_total", Help: "Routing oracle attempts repeated after a transient failure."},
	)
	OracleCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routing_oracle_cache_total", Help: "Route cache lookups by result."},
		[]string{"result"},
	)

	// PlanningBatches counts per-batch outcomes of the planning operations.
	PlanningBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planning_batches_total", Help: "Planning batches by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	RoutesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "planning_routes_created_total", Help: "Routes persisted by the planner."},
	)
)

var regOnce sync.Once

// Register adds all collectors to Registry. Safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(
			HTTPRequests,
			HTTPDuration,
			OracleRequests,
			OracleDuration,
			OracleRetries,
			OracleCache,
			PlanningBatches,
			RoutesCreated,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}
