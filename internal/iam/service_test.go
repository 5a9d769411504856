package iam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
)

func TestNewServiceValidation(t *testing.T) {
	env := newTestEnv(t)
	deps := ServiceDependencies{Verifier: env.dir, Directory: env.dir, Signer: env.signer, Sessions: env.sessions}

	_, err := NewService(deps, ServiceConfig{Audience: testAudience, TokenTTL: time.Hour})
	assert.ErrorIs(t, err, auth.ErrConfiguration)

	_, err = NewService(deps, ServiceConfig{Issuer: testIssuer, Audience: testAudience})
	assert.ErrorIs(t, err, auth.ErrConfiguration)

	_, err = NewService(ServiceDependencies{Verifier: env.dir}, ServiceConfig{Issuer: testIssuer, Audience: testAudience, TokenTTL: time.Hour})
	assert.ErrorIs(t, err, auth.ErrConfiguration)

	svc, err := NewService(deps, ServiceConfig{Issuer: testIssuer, Audience: testAudience, TokenTTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultSessionCookieName, svc.SessionCookieName())
	assert.Equal(t, time.Hour, svc.SessionWindow())
}

func TestLoginWithTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.dir.add("alice@example.com", "Secret1!", "u-alice", "Admin")
	ctx := context.Background()

	issued, err := env.svc.LoginWithToken(ctx, "alice@example.com", "Secret1!")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	p, err := env.selector.Resolve(ctx, bearerRequest(issued.Token), MechanismAny)
	require.NoError(t, err)
	assert.Equal(t, "u-alice", p.Subject)
	assert.Equal(t, "alice@example.com", p.DisplayName)
	assert.Equal(t, []string{"Admin"}, p.Roles)
	assert.Equal(t, MechanismBearer, p.Mechanism)
	assert.NotEmpty(t, p.TokenID)
	assert.True(t, p.ExpiresAt.Equal(issued.ExpiresAt))
}

func TestLoginWithSessionRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.dir.add("bob@example.com", "Secret1!", "u-bob")
	ctx := context.Background()

	ticket, err := env.svc.LoginWithSession(ctx, "bob@example.com", "Secret1!")
	require.NoError(t, err)
	require.NotEmpty(t, ticket.Reference)
	assert.NotContains(t, ticket.Reference, "u-bob")

	p, err := env.selector.Resolve(ctx, cookieRequest(ticket.Reference), MechanismAny)
	require.NoError(t, err)
	assert.Equal(t, "u-bob", p.Subject)
	assert.Equal(t, MechanismCookie, p.Mechanism)
	assert.Equal(t, ticket.ID, p.SessionID)
	assert.Empty(t, p.Roles)
}

func TestBothMechanismsCarryTheSameClaims(t *testing.T) {
	env := newTestEnv(t)
	env.dir.add("carol@example.com", "Secret1!", "u-carol", "Admin", "Auditor")
	ctx := context.Background()

	issued, err := env.svc.LoginWithToken(ctx, "carol@example.com", "Secret1!")
	require.NoError(t, err)
	ticket, err := env.svc.LoginWithSession(ctx, "carol@example.com", "Secret1!")
	require.NoError(t, err)

	viaToken, err := env.selector.Resolve(ctx, bearerRequest(issued.Token), MechanismBearer)
	require.NoError(t, err)
	viaCookie, err := env.selector.Resolve(ctx, cookieRequest(ticket.Reference), MechanismCookie)
	require.NoError(t, err)

	assert.Equal(t, viaToken.Subject, viaCookie.Subject)
	assert.Equal(t, viaToken.DisplayName, viaCookie.DisplayName)
	assert.ElementsMatch(t, viaToken.Roles, viaCookie.Roles)
	assert.NotEqual(t, viaToken.TokenID, viaCookie.TokenID, "each login gets its own token id")
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.dir.add("dave@example.com", "Secret1!", "u-dave")
	ctx := context.Background()

	cases := []struct{ user, pass string }{
		{"dave@example.com", "wrong"},
		{"nobody@example.com", "Secret1!"},
		{"", "Secret1!"},
		{"dave@example.com", ""},
	}
	for _, c := range cases {
		_, err := env.svc.LoginWithToken(ctx, c.user, c.pass)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "token login %q", c.user)

		_, err = env.svc.LoginWithSession(ctx, c.user, c.pass)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "session login %q", c.user)
	}
}

func TestLoginStoreFailureIsNotInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.dir.err = errors.New("directory offline")

	_, err := env.svc.LoginWithToken(context.Background(), "erin@example.com", "Secret1!")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogoutClosesSession(t *testing.T) {
	env := newTestEnv(t)
	env.dir.add("frank@example.com", "Secret1!", "u-frank")
	ctx := context.Background()

	ticket, err := env.svc.LoginWithSession(ctx, "frank@example.com", "Secret1!")
	require.NoError(t, err)
	p, err := env.selector.Resolve(ctx, cookieRequest(ticket.Reference), MechanismAny)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, p, ticket.Reference))
	_, err = env.selector.Resolve(ctx, cookieRequest(ticket.Reference), MechanismAny)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	// second logout is a no-op
	require.NoError(t, env.svc.Logout(ctx, p, ticket.Reference))
}

func TestLogoutRevokesBearerToken(t *testing.T) {
	env := newTestEnv(t)
	env.dir.add("grace@example.com", "Secret1!", "u-grace")
	ctx := context.Background()

	issued, err := env.svc.LoginWithToken(ctx, "grace@example.com", "Secret1!")
	require.NoError(t, err)
	p, err := env.selector.Resolve(ctx, bearerRequest(issued.Token), MechanismAny)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, p, ""))
	_, err = env.selector.Resolve(ctx, bearerRequest(issued.Token), MechanismAny)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)

	// a fresh login is unaffected
	again, err := env.svc.LoginWithToken(ctx, "grace@example.com", "Secret1!")
	require.NoError(t, err)
	_, err = env.selector.Resolve(ctx, bearerRequest(again.Token), MechanismAny)
	assert.NoError(t, err)
}

func TestLogoutWithoutPrincipal(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.svc.Logout(context.Background(), nil, ""))
	assert.NoError(t, env.svc.Logout(context.Background(), nil, "never-issued"))
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, problems, err := env.svc.Register(ctx, auth.NewUser{Username: "heidi@example.com", Password: "Secret1!"})
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, "heidi@example.com", id.DisplayName)

	_, err = env.svc.LoginWithToken(ctx, "heidi@example.com", "Secret1!")
	assert.NoError(t, err)

	_, problems, err = env.svc.Register(ctx, auth.NewUser{Username: "heidi@example.com", Password: "Secret1!"})
	assert.ErrorIs(t, err, auth.ErrUserExists)
	assert.Equal(t, []string{"Username 'heidi@example.com' is already taken."}, problems)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	_, problems, err := env.svc.Register(context.Background(), auth.NewUser{Username: "not-an-email", Password: "short"})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
	assert.NotEmpty(t, problems)
	assert.Empty(t, env.dir.users, "nothing is created on validation failure")
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	env.dir.add("ivan@example.com", "Secret1!", "u-ivan")
	ctx := context.Background()

	ticket, err := env.svc.LoginWithSession(ctx, "ivan@example.com", "Secret1!")
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteUser(ctx, "ivan@example.com"))
	assert.ErrorIs(t, env.svc.DeleteUser(ctx, "ivan@example.com"), auth.ErrUserNotFound)

	_, err = env.svc.LoginWithToken(ctx, "ivan@example.com", "Secret1!")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// existing sessions live until they expire
	_, err = env.selector.Resolve(ctx, cookieRequest(ticket.Reference), MechanismAny)
	assert.NoError(t, err)
}

func TestSessionAuthenticatorSlidesExpiry(t *testing.T) {
	now := time.Date(2099, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	mgr, err := session.NewManager(session.NewMemoryBackend(), session.Options{
		SlidingWindow: 10 * time.Minute,
		MaxLifetime:   time.Hour,
		Now:           clock,
	})
	require.NoError(t, err)
	cs, err := claims.Build("u-judy", "judy@example.com", nil)
	require.NoError(t, err)
	ticket, err := mgr.Open(context.Background(), cs, 0)
	require.NoError(t, err)

	a := NewSessionAuthenticator(mgr, "")
	a.now = func() time.Time { return now.Add(5 * time.Minute) }
	assert.Equal(t, auth.DefaultSessionCookieName, a.CookieName())

	p, err := a.Authenticate(context.Background(), cookieRequest(ticket.Reference))
	require.NoError(t, err)
	assert.True(t, p.ExpiresAt.Equal(now.Add(15*time.Minute)), "got %s", p.ExpiresAt)

	a.now = func() time.Time { return now.Add(16 * time.Minute) }
	_, err = a.Authenticate(context.Background(), cookieRequest(ticket.Reference))
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
}

func TestSessionAuthenticatorAbsentCookie(t *testing.T) {
	env := newTestEnv(t)
	a := NewSessionAuthenticator(env.sessions, "")

	p, err := a.Authenticate(context.Background(), bearerRequest("tok"))
	assert.NoError(t, err)
	assert.Nil(t, p)
}
