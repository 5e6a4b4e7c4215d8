package httpapi

import (
	"context"
	"net/http"
	"time"

	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
	"github.com/nftbarter/discovery-engine/infrastructure/logging"
	"github.com/nftbarter/discovery-engine/infrastructure/metrics"
)

type contextKey string

const ctxKeyRequestID contextKey = "requestID"

// requestIDFromContext returns the request id stashed by withRequestID,
// or the empty string outside a request.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// withRequestID stamps every request with a trace id (reused from
// infrastructure/logging's trace-id generator) before anything else runs,
// so every log line and error envelope for this request can be
// correlated (spec.md §7 "a short requestId allows correlation with
// server logs").
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := logging.NewTraceID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withRecovery converts a panic in a handler into an Internal error
// response instead of crashing the connection (spec.md §7 "only Internal
// bugs propagate as panics" — they must still surface as a clean 500,
// not tear down the server).
func withRecovery(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if log != nil {
						log.Error(r.Context(), "panic recovered in http handler", nil, map[string]interface{}{"panic": rec})
					}
					writeError(w, requestIDFromContext(r.Context()), svcerrors.Internal(nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code written so logging/metrics
// middleware can report it after the handler has run.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withObservability logs and records metrics for every request, mirroring
// the teacher's metrics.InstrumentHandler wrapping convention.
func withObservability(service string, log *logging.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			if log != nil {
				log.LogRequest(r.Context(), r.Method, r.URL.Path, rec.status, duration)
			}
			if m != nil {
				m.RecordHTTPRequest(service, r.Method, r.URL.Path, itoaStatus(rec.status), duration)
			}
		})
	}
}

func itoaStatus(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// withCORS allows a dashboard served from another origin to call the API
// directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
