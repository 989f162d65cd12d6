package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServerMetrics holds the HTTP server instruments.
type ServerMetrics struct {
	RequestCounter  metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ErrorCounter    metric.Int64Counter
}

// NewServerMetrics creates the HTTP instruments on mp, or on the global
// provider when mp is nil.
func NewServerMetrics(mp metric.MeterProvider) (*ServerMetrics, error) {
	meter := meterFrom(mp, "cvapi/http")

	requestCounter, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}
	errorCounter, err := meter.Int64Counter(
		"http.server.error.count",
		metric.WithDescription("Total number of HTTP server errors (5xx)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &ServerMetrics{
		RequestCounter:  requestCounter,
		RequestDuration: requestDuration,
		ErrorCounter:    errorCounter,
	}, nil
}

// RecordRequest records one finished request.
func (m *ServerMetrics) RecordRequest(ctx context.Context, method, route string, status int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String(AttrHTTPStatus, strconv.Itoa(status)),
	)
	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, durationMs, attrs)
	if status >= 500 {
		m.ErrorCounter.Add(ctx, 1, attrs)
	}
}

// AuthMetrics counts login, refresh, register and logout outcomes.
type AuthMetrics struct {
	Attempts metric.Int64Counter
	Failures metric.Int64Counter
}

// NewAuthMetrics creates the auth instruments on mp, or on the global
// provider when mp is nil.
func NewAuthMetrics(mp metric.MeterProvider) (*AuthMetrics, error) {
	meter := meterFrom(mp, "cvapi/auth")

	attempts, err := meter.Int64Counter(
		"auth.attempt.count",
		metric.WithDescription("Total number of authentication operations"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"auth.failure.count",
		metric.WithDescription("Total number of rejected authentication operations"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{Attempts: attempts, Failures: failures}, nil
}

// RecordAttempt counts one operation and, when it failed, one failure.
func (m *AuthMetrics) RecordAttempt(ctx context.Context, operation string, failed bool) {
	attrs := metric.WithAttributes(attribute.String(AttrAuthOperation, operation))
	m.Attempts.Add(ctx, 1, attrs)
	if failed {
		m.Failures.Add(ctx, 1, attrs)
	}
}

func meterFrom(mp metric.MeterProvider, name string) metric.Meter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return mp.Meter(name)
}
