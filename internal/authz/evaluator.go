package authz

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
	"github.com/ArashRezazadeh/DataAnnotations/internal/telemetry"
)

// Requirement is one condition of an operation: a role or a named policy.
type Requirement struct {
	Role   string
	Policy string
}

// RequireRole requires exact membership of role.
func RequireRole(role string) Requirement { return Requirement{Role: role} }

// RequirePolicy requires the registered policy name to allow.
func RequirePolicy(name string) Requirement { return Requirement{Policy: name} }

func (r Requirement) String() string {
	if r.Policy != "" {
		return "policy:" + r.Policy
	}
	return "role:" + r.Role
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  auth.Reason
	// Requirement is the first requirement that did not allow.
	Requirement string
}

// Err returns nil for an allowed decision, otherwise auth.ErrUnauthenticated
// or auth.ErrDenied.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == auth.ReasonUnauthenticated:
		return auth.ErrUnauthenticated
	default:
		return fmt.Errorf("%w: %s", auth.ErrDenied, d.Requirement)
	}
}

// Evaluator authorizes principals against a Registry.
type Evaluator struct {
	registry *Registry
	logger   *zap.Logger
}

func NewEvaluator(registry *Registry, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{registry: registry, logger: logger}
}

// Registry returns the evaluator's policies.
func (e *Evaluator) Registry() *Registry { return e.registry }

// Authorize evaluates reqs in order with logical AND. A nil principal is
// Denied(Unauthenticated) before any policy runs. An error is returned only
// for evaluation faults (auth.ErrPolicyEvaluation), which are never a deny.
func (e *Evaluator) Authorize(ctx context.Context, principal *claims.Principal, reqs ...Requirement) (Decision, error) {
	if principal == nil {
		return Decision{Reason: auth.ReasonUnauthenticated}, nil
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerAuthz, "authz.Authorize",
		attribute.String(telemetry.AttrPrincipalSubject, principal.Subject),
		attribute.Int("requirements", len(reqs)),
	)
	defer span.End()

	for _, req := range reqs {
		ok, err := e.check(ctx, *principal, req)
		if err != nil {
			telemetry.RecordError(span, err)
			e.logger.Error("policy evaluation failed",
				zap.String("requirement", req.String()),
				zap.String("subject", principal.Subject),
				zap.Error(err),
			)
			return Decision{Reason: auth.ReasonPolicyEvaluation, Requirement: req.String()}, err
		}
		if !ok {
			telemetry.AddEvent(span, "authz.denied", attribute.String(telemetry.AttrPolicyName, req.String()))
			return Decision{Reason: auth.ReasonDenied, Requirement: req.String()}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

func (e *Evaluator) check(ctx context.Context, p claims.Principal, req Requirement) (allowed bool, err error) {
	if req.Policy == "" {
		return p.HasRole(req.Role), nil
	}
	policy, ok := e.registry.Lookup(req.Policy)
	if !ok {
		return false, fmt.Errorf("%w: policy %q is not registered", auth.ErrPolicyEvaluation, req.Policy)
	}

	defer func() {
		if r := recover(); r != nil {
			allowed = false
			err = fmt.Errorf("%w: policy %q panicked: %v", auth.ErrPolicyEvaluation, req.Policy, r)
		}
	}()
	allowed, err = policy.Evaluate(ctx, p)
	if err != nil && !errors.Is(err, auth.ErrPolicyEvaluation) {
		err = fmt.Errorf("%w: policy %q: %v", auth.ErrPolicyEvaluation, req.Policy, err)
	}
	return allowed, err
}
