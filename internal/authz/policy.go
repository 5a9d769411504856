// Package authz evaluates named policies against an authenticated principal.
//
// Policies are registered once into an immutable Registry at startup. The
// Evaluator composes the requirements of one operation with logical AND and
// reports Allowed, Denied or an evaluation fault. A policy that errors or
// panics is a server fault, never a silent deny.
package authz

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

// Policy is a named predicate over a principal.
type Policy interface {
	Name() string
	Evaluate(ctx context.Context, p claims.Principal) (bool, error)
}

// foldString case-folds s. A Caser is stateful, so each call gets its own.
func foldString(s string) string {
	return cases.Fold().String(s)
}

// RolePolicy allows principals holding Role.
type RolePolicy struct {
	PolicyName      string
	Role            string
	CaseInsensitive bool
}

// NewRolePolicy returns a case-sensitive role policy named after the role.
func NewRolePolicy(role string) *RolePolicy {
	return &RolePolicy{PolicyName: role, Role: role}
}

func (r *RolePolicy) Name() string { return r.PolicyName }

func (r *RolePolicy) Evaluate(_ context.Context, p claims.Principal) (bool, error) {
	if !r.CaseInsensitive {
		return p.HasRole(r.Role), nil
	}
	want := foldString(r.Role)
	for _, role := range p.Roles {
		if foldString(role) == want {
			return true, nil
		}
	}
	return false, nil
}

// PredicateFunc is a pure boolean function over a principal's claims.
type PredicateFunc func(p claims.Principal) (bool, error)

// PredicatePolicy wraps a registered PredicateFunc.
type PredicatePolicy struct {
	PolicyName string
	Fn         PredicateFunc
}

func NewPredicatePolicy(name string, fn PredicateFunc) *PredicatePolicy {
	return &PredicatePolicy{PolicyName: name, Fn: fn}
}

func (p *PredicatePolicy) Name() string { return p.PolicyName }

func (p *PredicatePolicy) Evaluate(_ context.Context, principal claims.Principal) (bool, error) {
	if p.Fn == nil {
		return false, fmt.Errorf("%w: policy %q has no predicate", auth.ErrPolicyEvaluation, p.PolicyName)
	}
	return p.Fn(principal)
}

// UsernameStartsWithL is always registered.
const UsernameStartsWithL = "UsernameStartsWithL"

// NameHasPrefix returns a predicate matching display names that start with
// prefix, compared with Unicode case folding.
func NameHasPrefix(prefix string) PredicateFunc {
	want := foldString(prefix)
	return func(p claims.Principal) (bool, error) {
		return strings.HasPrefix(foldString(p.DisplayName), want), nil
	}
}

// Builtins returns the policies every registry carries.
func Builtins() []Policy {
	return []Policy{
		NewPredicatePolicy(UsernameStartsWithL, NameHasPrefix("L")),
	}
}
