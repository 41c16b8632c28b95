// Package metrics holds Prometheus instruments that are used across
// CookWorld web.  All collectors are registered with the global registry, so
// importing this package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BackendRequestsTotal counts REST calls by method, route template, and
	// status ("0" for connectivity failures).
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookworld_backend_requests_total",
			Help: "Backend REST calls by method, route, and status code.",
		}, []string{"method", "route", "status"})

	BackendRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cookworld_backend_request_seconds",
			Help:    "Backend REST call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

	// ValidationsTotal counts token validations per role and result.
	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookworld_validations_total",
			Help: "Token validation round trips by role and result.",
		}, []string{"role", "result"})

	// GateDecisionsTotal counts navigation outcomes: render, redirect,
	// loading.
	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookworld_gate_decisions_total",
			Help: "Gate navigation decisions by outcome.",
		}, []string{"outcome"})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cookworld_gate_sessions",
			Help: "Capability states currently held by the gate.",
		})

	SessionEvictTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookworld_gate_evict_total",
			Help: "Capability states evicted, by reason.",
		}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		BackendRequestsTotal,
		BackendRequestSeconds,
		ValidationsTotal,
		GateDecisionsTotal,
		ActiveSessions,
		SessionEvictTotal,
	)
}
