package iam

import (
	"context"
	"time"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
)

// SessionAuthenticator resolves the session cookie through the session
// manager, sliding its expiry on every successful request.
type SessionAuthenticator struct {
	sessions   *session.Manager
	cookieName string
	now        func() time.Time
}

// NewSessionAuthenticator creates a session authenticator reading cookieName
// (auth.DefaultSessionCookieName when empty).
func NewSessionAuthenticator(sessions *session.Manager, cookieName string) *SessionAuthenticator {
	if cookieName == "" {
		cookieName = auth.DefaultSessionCookieName
	}
	return &SessionAuthenticator{sessions: sessions, cookieName: cookieName, now: time.Now}
}

// CookieName returns the cookie this authenticator reads.
func (a *SessionAuthenticator) CookieName() string { return a.cookieName }

// Authenticate returns (nil, nil) when the cookie is absent. Rejections are
// auth.ErrSessionNotFound and auth.ErrSessionExpired.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	ref := auth.CookieValue(req.Cookies, a.cookieName)
	if ref == "" {
		return nil, nil
	}

	rec, err := a.sessions.Lookup(ctx, ref, a.now())
	if err != nil {
		return nil, err
	}
	return &Principal{
		Principal: rec.Claims.Principal(),
		Mechanism: MechanismCookie,
		SessionID: rec.ID,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}
