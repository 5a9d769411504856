package iam

import (
	"context"
	"time"

	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

// Principal is the authenticated identity attached to a request. It is never
// mutated after the authenticator returns it.
type Principal struct {
	claims.Principal

	// Mechanism that authenticated the request.
	Mechanism Mechanism

	// SessionID is the log-safe session record id (cookie mechanism only).
	SessionID string

	// ExpiresAt is the token expiry or the current session expiry.
	ExpiresAt time.Time
}

// Claims returns the claims view used by the authorization evaluator, or nil
// for a nil principal.
func (p *Principal) Claims() *claims.Principal {
	if p == nil {
		return nil
	}
	c := p.Principal
	c.Roles = p.RoleList()
	return &c
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the authentication
// middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
