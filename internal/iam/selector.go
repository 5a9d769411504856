package iam

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/telemetry"
)

// Selector dispatches a request to exactly one authenticator based on the
// artifact it presents.
type Selector struct {
	bearer     Authenticator
	session    Authenticator
	cookieName string
	metrics    *telemetry.AuthMetrics
}

// SelectorOption customises a Selector.
type SelectorOption func(*Selector)

// WithAuthMetrics records every resolution outcome.
func WithAuthMetrics(m *telemetry.AuthMetrics) SelectorOption {
	return func(s *Selector) { s.metrics = m }
}

// NewSelector wires the two mechanisms. Either may be nil, in which case
// requests for it are unauthenticated.
func NewSelector(bearer Authenticator, session Authenticator, cookieName string, opts ...SelectorOption) *Selector {
	if cookieName == "" {
		cookieName = auth.DefaultSessionCookieName
	}
	s := &Selector{bearer: bearer, session: session, cookieName: cookieName}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Choose returns the mechanism that would handle req under mech, or "" when
// the request presents no acceptable artifact. A bearer header takes
// precedence when both artifacts are present and any mechanism is allowed.
func (s *Selector) Choose(req AuthRequest, mech Mechanism) Mechanism {
	_, hasBearer := auth.BearerToken(req.Headers)
	hasCookie := auth.CookieValue(req.Cookies, s.cookieName) != ""

	switch mech {
	case MechanismBearer:
		if hasBearer {
			return MechanismBearer
		}
	case MechanismCookie:
		if hasCookie {
			return MechanismCookie
		}
	default:
		if hasBearer {
			return MechanismBearer
		}
		if hasCookie {
			return MechanismCookie
		}
	}
	return ""
}

// Resolve authenticates req under mech. Every failure is an error; a missing
// or unacceptable artifact is auth.ErrUnauthenticated and no authenticator
// is invoked for it.
func (s *Selector) Resolve(ctx context.Context, req AuthRequest, mech Mechanism) (*Principal, error) {
	chosen := s.Choose(req, mech)

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Resolve",
		attribute.String("route.mechanism", string(mech)),
		attribute.String(telemetry.AttrAuthMechanism, string(chosen)),
	)
	defer span.End()

	p, err := s.resolve(ctx, req, chosen)
	if err != nil {
		telemetry.AddEvent(span, "auth.rejected", attribute.String(telemetry.AttrAuthReason, string(auth.ReasonOf(err))))
		s.metrics.RecordAuth(ctx, string(chosen), string(auth.ReasonOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrPrincipalSubject, p.Subject))
	s.metrics.RecordAuth(ctx, string(chosen), "")
	return p, nil
}

func (s *Selector) resolve(ctx context.Context, req AuthRequest, chosen Mechanism) (*Principal, error) {
	var a Authenticator
	switch chosen {
	case MechanismBearer:
		a = s.bearer
	case MechanismCookie:
		a = s.session
	default:
		return nil, auth.ErrUnauthenticated
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s mechanism is not enabled", auth.ErrUnauthenticated, chosen)
	}

	p, err := a.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, auth.ErrUnauthenticated
	}
	return p, nil
}
