package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the subsystem's Prometheus collectors. Constructed once at
// startup against an explicit registry and passed into the components that
// observe, keeping registration out of package init.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttempts      *prometheus.CounterVec // by principal kind and outcome
	ValidateResults    *prometheus.CounterVec // by outcome (hit/miss/error)
	SessionsReconciled prometheus.Counter
	ReconcileFailures  prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "auth",
				Name:      "login_attempts_total",
				Help:      "Login attempts by principal kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ValidateResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "auth",
				Name:      "token_validations_total",
				Help:      "Token validations on the request hot path by outcome",
			},
			[]string{"outcome"},
		),
		SessionsReconciled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "auth",
				Name:      "sessions_reconciled_total",
				Help:      "Session documents restored from the directory by the reconciler",
			},
		),
		ReconcileFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "auth",
				Name:      "reconcile_record_failures_total",
				Help:      "Directory records the reconciler failed to copy into the cache",
			},
		),
	}

	registry.MustRegister(m.LoginAttempts, m.ValidateResults, m.SessionsReconciled, m.ReconcileFailures)
	return m
}

// Handler serves the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
