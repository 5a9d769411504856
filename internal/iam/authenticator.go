package iam

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

// Mechanism names a session mechanism.
type Mechanism string

const (
	// MechanismAny accepts whichever artifact the request presents.
	MechanismAny    Mechanism = "any"
	MechanismBearer Mechanism = "bearer"
	MechanismCookie Mechanism = "cookie"
)

// ParseMechanism accepts any, bearer (or token) and cookie. Empty means any.
func ParseMechanism(s string) (Mechanism, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return MechanismAny, nil
	case "bearer", "token", "jwt":
		return MechanismBearer, nil
	case "cookie", "session":
		return MechanismCookie, nil
	default:
		return "", fmt.Errorf("%w: unknown session mechanism %q", auth.ErrConfiguration, s)
	}
}

// Authenticator validates one kind of credential.
//
// Return values:
//   - (principal, nil): authenticated
//   - (nil, nil): the credential is not present on the request
//   - (nil, error): the credential was present and rejected
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*Principal, error)
}

// AuthRequest is the transport-neutral view of a request's credentials.
type AuthRequest struct {
	Headers http.Header
	Cookies []*http.Cookie
}

// NewAuthRequest extracts the credential carriers from r.
func NewAuthRequest(r *http.Request) AuthRequest {
	return AuthRequest{Headers: r.Header, Cookies: r.Cookies()}
}
