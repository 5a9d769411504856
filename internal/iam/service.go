package iam

import (
	"context"
	"time"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
	"github.com/ArashRezazadeh/DataAnnotations/internal/token"
)

// CredentialVerifier is the external identity store's password check. It
// returns auth.ErrInvalidCredentials for unknown users and wrong passwords
// alike.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (auth.Identity, error)
}

// UserDirectory manages accounts keyed by username.
type UserDirectory interface {
	CreateUser(ctx context.Context, u auth.NewUser) (auth.Identity, error)
	DeleteUser(ctx context.Context, username string) error
}

// Service is the login and account facade used by the HTTP handlers.
type Service interface {
	// LoginWithToken verifies credentials and issues a bearer token.
	LoginWithToken(ctx context.Context, username, password string) (token.Issued, error)

	// LoginWithSession verifies credentials and opens a cookie session.
	LoginWithSession(ctx context.Context, username, password string) (session.Ticket, error)

	// Logout closes the session behind sessionRef (if any) and revokes the
	// bearer token carried by p (if any). It is idempotent.
	Logout(ctx context.Context, p *Principal, sessionRef string) error

	// Register validates and creates an account. problems lists every
	// registration rule that failed.
	Register(ctx context.Context, u auth.NewUser) (id auth.Identity, problems []string, err error)

	// DeleteUser removes an account. Existing sessions and tokens of the user
	// live until they expire; new logins fail.
	DeleteUser(ctx context.Context, username string) error

	// SessionCookieName is the cookie carrying session references.
	SessionCookieName() string

	// SessionWindow is the sliding window of cookie sessions.
	SessionWindow() time.Duration
}
