package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSpanHelpersWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), TracerIAM, "test.op", attribute.String(AttrAuthMechanism, "bearer"))
	defer span.End()
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	AddEvent(span, "test.event")
	if ctx == nil {
		t.Fatal("nil context")
	}
}

func TestMetricsWithoutProvider(t *testing.T) {
	h, err := NewHTTPMetrics()
	if err != nil {
		t.Fatalf("NewHTTPMetrics: %v", err)
	}
	h.RecordRequest(context.Background(), "GET", "/health", 200, 1.5)

	a, err := NewAuthMetrics()
	if err != nil {
		t.Fatalf("NewAuthMetrics: %v", err)
	}
	a.RecordAuth(context.Background(), "cookie", "")
	a.RecordAuth(context.Background(), "bearer", "expired")

	var none *AuthMetrics
	none.RecordAuth(context.Background(), "bearer", "")
}
