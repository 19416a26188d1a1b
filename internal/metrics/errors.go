package metrics

import (
	"strconv"

	"github.com/cymbal-labs/searchdemo/internal/observability"
)

// Error metrics. Endpoints are route patterns such as /api/search, never raw
// paths.
var (
	ErrorResponses  = "app_error_responses_total"
	PanicsRecovered = "app_panics_recovered_total"
)

// RecordErrorResponse records one JSON error envelope written to a client
func RecordErrorResponse(code string, status int, endpoint string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorResponses,
			1,
			map[string]string{
				"error_code":  code,
				"http_status": strconv.Itoa(status),
				"endpoint":    endpoint,
			},
		)
	}
}

// RecordPanic records a handler panic caught by the recovery middleware
func RecordPanic(endpoint string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PanicsRecovered,
			1,
			map[string]string{
				"endpoint": endpoint,
			},
		)
	}
}
