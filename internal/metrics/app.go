// Package metrics emits application metrics through the global telemetry
// system. All helpers are nil-safe before InitMetrics runs.
package metrics

import (
	"time"

	"github.com/postpilot/postpilot/internal/guard"
	"github.com/postpilot/postpilot/internal/observability"
)

// Metric names following Prometheus conventions
var (
	APICallsTotal = "app_api_calls_total"

	GuardDenialsTotal = "app_guard_denials_total"
	GuardTokens       = "app_guard_tokens"
	GuardBreakerOpen  = "app_guard_breaker_open"

	PostsPublishedTotal = "app_posts_published_total"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordAPICall records an outbound API call with its outcome.
func RecordAPICall(gate string, operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			APICallsTotal,
			1,
			map[string]string{
				"gate":      gate,
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// RecordGuardDenial records a call denied by a gate before any I/O.
// Reason is "rate_limited" or "circuit_open".
func RecordGuardDenial(gate string, reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			GuardDenialsTotal,
			1,
			map[string]string{
				"gate":   gate,
				"reason": reason,
			},
		)
	}
}

// ObserveGate exports a gate snapshot: remaining tokens per window and
// whether the breaker is open.
func ObserveGate(snapshot guard.Snapshot) {
	if observability.TelemetrySystem == nil {
		return
	}

	for _, window := range snapshot.Windows {
		_ = observability.TelemetrySystem.Gauge(
			GuardTokens,
			window.Tokens,
			map[string]string{
				"gate":   snapshot.Name,
				"window": window.Name,
			},
		)
	}

	open := 0.0
	if snapshot.Breaker.State != guard.BreakerClosed {
		open = 1.0
	}
	_ = observability.TelemetrySystem.Gauge(
		GuardBreakerOpen,
		open,
		map[string]string{"gate": snapshot.Name},
	)
}

// RecordPostPublished records a published post by kind (single, thread, reply).
func RecordPostPublished(kind string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PostsPublishedTotal,
			1,
			map[string]string{"kind": kind},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
