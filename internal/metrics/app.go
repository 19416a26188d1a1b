package metrics

import (
	"time"

	"github.com/cymbal-labs/searchdemo/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Search metrics
	SearchesTotal         = "app_searches_total"
	SearchDuration        = "app_search_duration_ms"
	ValidationRejections  = "app_search_validation_rejections_total"
	StaleResponsesDropped = "app_search_stale_responses_total"

	// Session metrics
	ActiveSessions = "app_active_sessions"
	LiveClients    = "app_live_clients"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
)

// Search outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RecordSearch records one completed backend search with its outcome
func RecordSearch(outcome string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SearchesTotal,
			1,
			map[string]string{
				"outcome": outcome,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			SearchDuration,
			duration,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// RecordValidationRejection records a submit blocked before any backend call
func RecordValidationRejection(reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ValidationRejections,
			1,
			map[string]string{
				"reason": reason,
			},
		)
	}
}

// RecordStaleResponse records a response dropped because a newer submit began
func RecordStaleResponse() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(StaleResponsesDropped, 1, nil)
	}
}

// SetActiveSessions sets the current number of live sessions
func SetActiveSessions(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ActiveSessions,
			float64(count),
			nil,
		)
	}
}

// SetLiveClients sets the number of connected websocket clients
func SetLiveClients(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			LiveClients,
			float64(count),
			nil,
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
