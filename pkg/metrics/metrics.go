package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all console metrics
type Metrics struct {
	// API client metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// List view metrics
	PageFetches     *prometheus.CounterVec
	StaleResponses  *prometheus.CounterVec
	PageFetchErrors *prometheus.CounterVec

	// Session metrics
	ProbeAttempts prometheus.Counter
	ProbeRetries  prometheus.Counter
	SessionEvents *prometheus.CounterVec

	// Mock API metrics
	ServerRequests *prometheus.CounterVec
}

// New creates the metrics and registers them on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests issued",
		}, []string{"method", "endpoint", "status"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "endpoint"}),

		PageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "list",
			Name:      "page_fetches_total",
			Help:      "Total number of page fetches",
		}, []string{"endpoint"}),
		StaleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "list",
			Name:      "stale_responses_total",
			Help:      "Page responses dropped because a newer request superseded them",
		}, []string{"endpoint"}),
		PageFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "list",
			Name:      "page_fetch_errors_total",
			Help:      "Page fetches that failed",
		}, []string{"endpoint"}),

		ProbeAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "probe_attempts_total",
			Help:      "Identity probe attempts",
		}),
		ProbeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "probe_retries_total",
			Help:      "Identity probes retried after an indeterminate result",
		}),
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions",
		}, []string{"state"}),

		ServerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mockapi",
			Name:      "requests_total",
			Help:      "Requests served by the mock API",
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.APIRequests,
			m.APILatency,
			m.PageFetches,
			m.StaleResponses,
			m.PageFetchErrors,
			m.ProbeAttempts,
			m.ProbeRetries,
			m.SessionEvents,
			m.ServerRequests,
		)
	}
	return m
}

// NewNop returns unregistered metrics.
func NewNop() *Metrics {
	return New("clinicadm", nil)
}
