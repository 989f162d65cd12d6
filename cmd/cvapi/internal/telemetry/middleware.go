package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
)

// Middleware records request count, latency and 5xx errors per chi route
// pattern.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RecordRequest(r.Context(), r.Method, route, status, float64(time.Since(start).Microseconds())/1000)
	})
}

// Traced runs h inside a span named after operation and counts the outcome in
// auth. Responses of 400 and above count as failures.
func Traced(operation string, auth *AuthMetrics, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := StartSpan(r.Context(), "auth."+operation,
			attribute.String(AttrAuthOperation, operation),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		h(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
		failed := status >= http.StatusBadRequest
		if failed {
			RecordError(span, fmt.Errorf("%s rejected with status %d", operation, status))
		}
		if auth != nil {
			auth.RecordAttempt(ctx, operation, failed)
		}
	}
}
