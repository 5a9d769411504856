package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics holds instruments recorded by the access log middleware.
type HTTPMetrics struct {
	RequestCounter  metric.Int64Counter
	RequestDuration metric.Float64Histogram
}

// NewHTTPMetrics creates the HTTP instruments on the global meter provider.
// Without an SDK meter provider they are no-ops.
func NewHTTPMetrics() (*HTTPMetrics, error) {
	meter := otel.Meter("authd/http")

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
	return &HTTPMetrics{RequestCounter: requestCounter, RequestDuration: requestDuration}, nil
}

// RecordRequest records one finished request.
func (m *HTTPMetrics) RecordRequest(ctx context.Context, method, route string, status int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status_code", strconv.Itoa(status)),
	)
	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, durationMs, attrs)
}

// AuthMetrics counts authentication outcomes per mechanism and reason.
type AuthMetrics struct {
	Attempts metric.Int64Counter
	Failures metric.Int64Counter
}

func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter("authd/auth")

	attempts, err := meter.Int64Counter(
		"auth.attempt.count",
		metric.WithDescription("Total number of authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"auth.failure.count",
		metric.WithDescription("Total number of failed authentication attempts"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{Attempts: attempts, Failures: failures}, nil
}

// RecordAuth records an attempt. reason is empty on success.
func (a *AuthMetrics) RecordAuth(ctx context.Context, mechanism, reason string) {
	if a == nil {
		return
	}
	a.Attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAuthMechanism, mechanism),
		attribute.Bool("auth.success", reason == ""),
	))
	if reason != "" {
		a.Failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrAuthMechanism, mechanism),
			attribute.String(AttrAuthReason, reason),
		))
	}
}
