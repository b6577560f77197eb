// Package metrics provides the Prometheus collectors for the admin auth core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "admin"

// Outcome labels for AuthDecisionsTotal.
const (
	OutcomeAllowed       = "allowed"
	OutcomeUnauthorized  = "unauthenticated"
	OutcomeForbidden     = "forbidden"
	OutcomeRouteDenied   = "route_denied"
	OutcomeInternalError = "internal_error"
)

var (
	// AuthDecisionsTotal counts authorization decisions by credential method and outcome.
	AuthDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Total number of authorization decisions by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	// TokenVerifyDurationSeconds is bearer token verification latency.
	TokenVerifyDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_verify_duration_seconds",
			Help:      "Bearer token verification duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
	)

	// LoginAttemptsTotal counts login attempts by result (success, invalid_credentials, suspicious, rate_limited).
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts by result.",
		},
		[]string{"result"},
	)

	// SessionsSweptTotal counts sessions removed by the periodic sweep.
	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Total number of expired sessions removed by the sweeper.",
		},
	)

	// TokensRevokedTotal counts bearer tokens added to the revoked set.
	TokensRevokedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_revoked_total",
			Help:      "Total number of bearer tokens revoked.",
		},
	)

	// AuditEmitFailuresTotal counts audit events the OTLP log export dropped, by action.
	AuditEmitFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_emit_failures_total",
			Help:      "Total number of audit events that failed to export.",
		},
		[]string{"action"},
	)

	// HTTPRequestTotal counts requests by method, route template and status.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route, and status.",
		},
		[]string{"method", "route", "status"},
	)
)

// RegisterSessionGauge registers a gauge reporting the number of stored sessions via count.
// Call once; registering twice panics.
func RegisterSessionGauge(count func() int) prometheus.GaugeFunc {
	return promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_stored",
			Help:      "Number of sessions held by the session store, including not yet swept ones.",
		},
		func() float64 { return float64(count()) },
	)
}

// Handler returns the /metrics handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
