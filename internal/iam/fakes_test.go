package iam

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
	"github.com/ArashRezazadeh/DataAnnotations/internal/token"
)

const (
	testIssuer   = "authd-test"
	testAudience = "authd-test-clients"
)

var testKey = []byte("0123456789abcdef0123456789abcdef-iam-test")

type fakeUser struct {
	identity auth.Identity
	password string
}

// fakeDirectory is a map-backed CredentialVerifier and UserDirectory.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]fakeUser
	err   error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]fakeUser{}}
}

func (d *fakeDirectory) add(username, password, userID string, roles ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[strings.ToLower(username)] = fakeUser{
		identity: auth.Identity{UserID: userID, Username: username, DisplayName: username, Roles: roles},
		password: password,
	}
}

func (d *fakeDirectory) Verify(ctx context.Context, username, password string) (auth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return auth.Identity{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return auth.Identity{}, d.err
	}
	u, ok := d.users[strings.ToLower(username)]
	if !ok || u.password != password {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	return u.identity, nil
}

func (d *fakeDirectory) CreateUser(_ context.Context, u auth.NewUser) (auth.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, ok := d.users[key]; ok {
		return auth.Identity{}, auth.ErrUserExists
	}
	id := auth.Identity{UserID: "id-" + key, Username: key, DisplayName: u.DisplayName, Roles: u.Roles}
	d.users[key] = fakeUser{identity: id, password: u.Password}
	return id, nil
}

func (d *fakeDirectory) DeleteUser(_ context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(username)
	if _, ok := d.users[key]; !ok {
		return auth.ErrUserNotFound
	}
	delete(d.users, key)
	return nil
}

type testEnv struct {
	dir         *fakeDirectory
	signer      *token.Signer
	sessions    *session.Manager
	revocations *MemoryRevocationList
	svc         Service
	selector    *Selector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	signer, err := token.NewSigner(testKey)
	require.NoError(t, err)
	sessions, err := session.NewManager(session.NewMemoryBackend(), session.Options{
		SlidingWindow: time.Hour,
		MaxLifetime:   4 * time.Hour,
	})
	require.NoError(t, err)
	revocations, err := NewMemoryRevocationList(16)
	require.NoError(t, err)

	dir := newFakeDirectory()
	svc, err := NewService(ServiceDependencies{
		Verifier:    dir,
		Directory:   dir,
		Signer:      signer,
		Sessions:    sessions,
		Revocations: revocations,
	}, ServiceConfig{
		Issuer:   testIssuer,
		Audience: testAudience,
		TokenTTL: time.Hour,
	})
	require.NoError(t, err)

	selector := NewSelector(
		NewBearerAuthenticator(signer, testIssuer, testAudience, revocations),
		NewSessionAuthenticator(sessions, ""),
		"",
	)
	return &testEnv{dir: dir, signer: signer, sessions: sessions, revocations: revocations, svc: svc, selector: selector}
}

func bearerRequest(tok string) AuthRequest {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok)
	return AuthRequest{Headers: h}
}

func cookieRequest(ref string) AuthRequest {
	return AuthRequest{
		Headers: http.Header{},
		Cookies: []*http.Cookie{{Name: auth.DefaultSessionCookieName, Value: ref}},
	}
}

func bothRequest(tok, ref string) AuthRequest {
	req := cookieRequest(ref)
	req.Headers.Set("Authorization", "Bearer "+tok)
	return req
}

// countingAuthenticator records how often it was asked.
type countingAuthenticator struct {
	calls int
	p     *Principal
	err   error
}

func (a *countingAuthenticator) Authenticate(context.Context, AuthRequest) (*Principal, error) {
	a.calls++
	return a.p, a.err
}
