package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth module.
type Metrics struct {
	// Token endpoint exchanges by grant type and outcome
	Exchanges *prometheus.CounterVec

	// Token endpoint latency by grant type
	ExchangeLatency *prometheus.HistogramVec

	// Guard decisions by outcome
	GuardOutcome *prometheus.CounterVec

	// Refresh calls that piggybacked on an in-flight exchange
	RefreshShared prometheus.Counter
}

// New creates a Metrics instance with all auth module metrics registered.
func New() *Metrics {
	return &Metrics{
		Exchanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audiograph_auth_exchanges_total",
			Help: "Total token endpoint exchanges by grant type and outcome",
		}, []string{"grant", "outcome"}), // grant: "authorization_code", "refresh_token"

		ExchangeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audiograph_auth_exchange_duration_seconds",
			Help:    "Duration of token endpoint exchanges by grant type",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"grant"}),

		GuardOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audiograph_auth_guard_outcomes_total",
			Help: "Total request guard decisions by outcome",
		}, []string{"outcome"}), // outcome: "continue", "redirect", "refreshed"

		RefreshShared: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiograph_auth_refresh_shared_total",
			Help: "Refresh attempts deduplicated onto an in-flight exchange",
		}),
	}
}

// ObserveExchange records one token endpoint exchange.
func (m *Metrics) ObserveExchange(grant, outcome string, d time.Duration) {
	if m != nil {
		m.Exchanges.WithLabelValues(grant, outcome).Inc()
		m.ExchangeLatency.WithLabelValues(grant).Observe(d.Seconds())
	}
}

// IncrementGuardOutcome records a guard decision.
func (m *Metrics) IncrementGuardOutcome(outcome string) {
	if m != nil {
		m.GuardOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementRefreshShared records a deduplicated refresh.
func (m *Metrics) IncrementRefreshShared() {
	if m != nil {
		m.RefreshShared.Inc()
	}
}
