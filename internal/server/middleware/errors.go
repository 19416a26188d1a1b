package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/cymbal-labs/searchdemo/internal/metrics"
	"github.com/cymbal-labs/searchdemo/internal/observability"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR body. The stack
// goes to the server log only. The body matches the shape the error package
// writes, which this package cannot import.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			requestID := GetRequestID(r.Context())
			endpoint := EndpointPattern(r)
			metrics.RecordPanic(endpoint)
			if observability.ServerLogger != nil {
				observability.ServerLogger.Error("Handler panic",
					zap.String("panic", fmt.Sprint(rec)),
					zap.String("endpoint", endpoint),
					zap.String("request_id", requestID),
					zap.ByteString("stack", debug.Stack()),
				)
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":       "INTERNAL_ERROR",
					"message":    "Internal server error",
					"request_id": requestID,
				},
			})
		}()

		next.ServeHTTP(w, r)
	})
}
