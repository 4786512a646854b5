package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the residency engine.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Accountant evaluations by outcome ("compliant", "short")
	StatusEvaluations *prometheus.CounterVec

	// Simulator verdicts ("safe", "unsafe")
	DepartureChecks *prometheus.CounterVec

	// Simulator latency
	SimulationLatency prometheus.Histogram

	// Trip mutations by action and source
	TripMutations *prometheus.CounterVec

	// AI calls by operation ("extract", "assistant") and result
	AIRequests *prometheus.CounterVec
	AILatency  *prometheus.HistogramVec
}

// New creates a Metrics instance registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StatusEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "residency_status_evaluations_total",
			Help: "Total trailing-window evaluations by outcome",
		}, []string{"outcome"}),

		DepartureChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "residency_departure_checks_total",
			Help: "Total departure simulations by verdict",
		}, []string{"verdict"}),

		SimulationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "residency_simulation_duration_seconds",
			Help:    "Duration of a full departure simulation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		TripMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "residency_trip_mutations_total",
			Help: "Total trips added or deleted",
		}, []string{"action", "source"}),

		AIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "residency_ai_requests_total",
			Help: "Total AI collaborator calls by operation and result",
		}, []string{"operation", "result"}),

		AILatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "residency_ai_request_duration_seconds",
			Help:    "Duration of AI collaborator calls by operation",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"operation"}),
	}
}

// ObserveStatus records an accountant evaluation.
func (m *Metrics) ObserveStatus(compliant bool) {
	if m == nil {
		return
	}
	outcome := "short"
	if compliant {
		outcome = "compliant"
	}
	m.StatusEvaluations.WithLabelValues(outcome).Inc()
}

// ObserveDepartureCheck records a simulator verdict and its duration.
func (m *Metrics) ObserveDepartureCheck(safe bool, d time.Duration) {
	if m == nil {
		return
	}
	verdict := "unsafe"
	if safe {
		verdict = "safe"
	}
	m.DepartureChecks.WithLabelValues(verdict).Inc()
	m.SimulationLatency.Observe(d.Seconds())
}

// AddTripMutations records n trips added or deleted.
func (m *Metrics) AddTripMutations(action, source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TripMutations.WithLabelValues(action, source).Add(float64(n))
}

// ObserveAI records one AI collaborator call.
func (m *Metrics) ObserveAI(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AIRequests.WithLabelValues(operation, result).Inc()
	m.AILatency.WithLabelValues(operation).Observe(d.Seconds())
}
