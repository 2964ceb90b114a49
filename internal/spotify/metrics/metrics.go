package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for upstream resource calls.
type Metrics struct {
	// Upstream request latency by endpoint and status code
	RequestLatency *prometheus.HistogramVec

	// Requests retried after a mid-request token refresh
	Retries prometheus.Counter

	// Responses rejected by schema validation, by endpoint
	SchemaFailures *prometheus.CounterVec
}

// New creates a Metrics instance with all upstream client metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audiograph_spotify_request_duration_seconds",
			Help:    "Duration of upstream resource calls by endpoint and status",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint", "status"}),

		Retries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiograph_spotify_retries_total",
			Help: "Resource calls retried once after a token refresh",
		}),

		SchemaFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audiograph_spotify_schema_failures_total",
			Help: "Upstream responses rejected by schema validation, by endpoint",
		}, []string{"endpoint"}),
	}
}

// ObserveRequest records one upstream call.
func (m *Metrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(d.Seconds())
	}
}

// IncrementRetries records a retry after refresh.
func (m *Metrics) IncrementRetries() {
	if m != nil {
		m.Retries.Inc()
	}
}

// IncrementSchemaFailures records a schema validation rejection.
func (m *Metrics) IncrementSchemaFailures(endpoint string) {
	if m != nil {
		m.SchemaFailures.WithLabelValues(endpoint).Inc()
	}
}
