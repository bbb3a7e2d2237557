package middleware

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/JaimeStill/adherence/pkg/middleware"

// Telemetry returns middleware that opens a server span per request and
// records request counts and latency. The route attribute is the matched
// ServeMux pattern, or "unmatched".
func Telemetry(meters metric.MeterProvider, tracers trace.TracerProvider) (func(http.Handler) http.Handler, error) {
	meter := meters.Meter(instrumentation)

	requests, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("HTTP requests handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}

	latency, err := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency histogram: %w", err)
	}

	tracer := tracers.Tracer(instrumentation)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(
				r.Context(),
				"HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				),
			)
			defer span.End()

			inner := r.WithContext(ctx)
			sw := wrap(w)
			next.ServeHTTP(sw, inner)

			route := inner.Pattern
			if route == "" {
				route = "unmatched"
			}
			status := sw.Status()

			span.SetName(route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
			)
			requests.Add(ctx, 1, attrs)
			latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		})
	}, nil
}
