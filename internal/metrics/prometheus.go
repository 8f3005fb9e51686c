// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsActive tracks the number of currently connected sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lockgate_sessions_active",
			Help: "Current number of connected client sessions",
		},
	)

	// SessionsTotal tracks total accepted sessions.
	SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockgate_sessions_total",
			Help: "Total client sessions accepted",
		},
	)

	// ConnectionsFiltered tracks connections rejected by the source allow-list.
	ConnectionsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockgate_connections_filtered_total",
			Help: "Total connections closed because the source address was not on the allow-list",
		},
	)

	// ClaimsTotal tracks claim attempts by result.
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockgate_claims_total",
			Help: "Total lock claim attempts by result (granted/rejected)",
		},
		[]string{"result"},
	)

	// LocksHeld tracks the number of lock names currently owned by a session.
	LocksHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lockgate_locks_held",
			Help: "Current number of lock names owned by a session",
		},
	)

	// SessionMessages tracks request/response exchanges across all sessions.
	SessionMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockgate_session_messages_total",
			Help: "Total request/response exchanges across all sessions",
		},
	)

	// ClientReconnects tracks reconnect attempts made by the lock client.
	ClientReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockgate_client_reconnects_total",
			Help: "Total reconnect attempts by lock name",
		},
		[]string{"lock"},
	)

	// TaskFirings tracks gated task firings by outcome.
	TaskFirings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockgate_task_firings_total",
			Help: "Total gated task firings by task name and outcome (ran/skipped)",
		},
		[]string{"task", "outcome"},
	)
)

// RegisterMetricsEndpoint registers the /metrics endpoint on a Gin router.
func RegisterMetricsEndpoint(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterMetricsEndpointWithPath registers the metrics endpoint at a custom path.
func RegisterMetricsEndpointWithPath(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// RecordClaim records a claim attempt and its result.
func RecordClaim(granted bool) {
	if granted {
		ClaimsTotal.WithLabelValues("granted").Inc()
	} else {
		ClaimsTotal.WithLabelValues("rejected").Inc()
	}
}

// RecordTaskFiring records a gated task firing outcome.
func RecordTaskFiring(task string, ran bool) {
	outcome := "skipped"
	if ran {
		outcome = "ran"
	}
	TaskFirings.WithLabelValues(task, outcome).Inc()
}

// RecordClientReconnect records a reconnect attempt for a lock name.
func RecordClientReconnect(lock string) {
	ClientReconnects.WithLabelValues(lock).Inc()
}
