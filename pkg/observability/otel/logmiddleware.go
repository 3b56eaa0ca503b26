package otelobs

import (
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// HTTPTraceLogMiddleware logs a compact access line with trace_id/span_id
// per request and sets Trace-Id/Span-Id response headers for correlation.
func HTTPTraceLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(sr, r)

		sc := trace.SpanContextFromContext(r.Context())
		traceID := "-"
		spanID := "-"
		if sc.IsValid() {
			traceID = sc.TraceID().String()
			spanID = sc.SpanID().String()
			sr.Header().Set("Trace-Id", traceID)
			sr.Header().Set("Span-Id", spanID)
		}
		log.Printf("access method=%s path=%s status=%d dur_ms=%d trace_id=%s span_id=%s",
			r.Method, r.URL.Path, sr.status, time.Since(start).Milliseconds(), traceID, spanID)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
