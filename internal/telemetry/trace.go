package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names, one per component.
const (
	TracerIAM     = "authd/iam"
	TracerAuthz   = "authd/authz"
	TracerSession = "authd/session"
)

// StartSpan creates a new span for a component operation.
//
//	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.LoginWithToken",
//	    attribute.String(telemetry.AttrAuthMechanism, "bearer"),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records err on the span and marks the span as failed.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span, e.g. a rejection reason.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Span attribute keys. Secrets (passwords, tokens, session references) are
// never recorded.
const (
	AttrPrincipalSubject = "principal.subject"
	AttrAuthMechanism    = "auth.mechanism"
	AttrAuthReason       = "auth.reason"
	AttrSessionID        = "session.id"
	AttrPolicyName       = "policy.requirement"
	AttrPolicyAllowed    = "policy.allowed"
)
