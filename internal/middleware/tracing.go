package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/heritage-trails/admin-api/pkg/tracing"
)

// Tracing starts a server span per request, continuing any trace carried
// in the request headers. It must run inside Logging. The span is renamed
// to the matched route once the router has run.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := tracing.Tracer(serviceName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				),
			)
			defer span.End()

			wrapped, ok := w.(*responseWriter)
			if !ok {
				wrapped = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", wrapped.statusCode),
			)
			if info := requestInfoFrom(ctx); info != nil && info.staffID != "" {
				span.SetAttributes(attribute.String("staff.id", info.staffID))
			}
			if wrapped.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
			}
		})
	}
}
