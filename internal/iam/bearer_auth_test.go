package iam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
	"github.com/ArashRezazadeh/DataAnnotations/internal/token"
)

func issueTestToken(t *testing.T, signer *token.Signer, issuer, audience string) (token.Issued, claims.ClaimSet) {
	t.Helper()
	cs, err := claims.Build("u1", "u1@example.com", []string{"Admin"})
	if err != nil {
		t.Fatalf("build claims: %v", err)
	}
	issued, err := signer.Issue(cs, issuer, audience, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return issued, cs
}

func TestBearerAuthenticatorAbsentHeader(t *testing.T) {
	signer, err := token.NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	a := NewBearerAuthenticator(signer, testIssuer, testAudience, nil)

	p, err := a.Authenticate(context.Background(), cookieRequest("ref"))
	if err != nil || p != nil {
		t.Fatalf("expected (nil, nil) without a bearer header, got (%v, %v)", p, err)
	}
}

func TestBearerAuthenticatorRejections(t *testing.T) {
	signer, err := token.NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	other, err := token.NewSigner([]byte("another-key-that-is-long-enough-0123456789"))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	a := NewBearerAuthenticator(signer, testIssuer, testAudience, nil)

	forged, _ := issueTestToken(t, other, testIssuer, testAudience)
	wrongIssuer, _ := issueTestToken(t, signer, "someone-else", testAudience)
	wrongAudience, _ := issueTestToken(t, signer, testIssuer, "someone-else")
	valid, _ := issueTestToken(t, signer, testIssuer, testAudience)

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"garbage", "not.a.jwt", auth.ErrSignatureInvalid},
		{"forged", forged.Token, auth.ErrSignatureInvalid},
		{"issuer", wrongIssuer.Token, auth.ErrIssuerMismatch},
		{"audience", wrongAudience.Token, auth.ErrAudienceMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), bearerRequest(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	a.now = func() time.Time { return valid.ExpiresAt }
	if _, err := a.Authenticate(context.Background(), bearerRequest(valid.Token)); !errors.Is(err, auth.ErrExpired) {
		t.Fatalf("expected ErrExpired at the expiry instant, got %v", err)
	}
}

func TestBearerAuthenticatorRevocation(t *testing.T) {
	signer, err := token.NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	revocations, err := NewMemoryRevocationList(4)
	if err != nil {
		t.Fatalf("NewMemoryRevocationList: %v", err)
	}
	a := NewBearerAuthenticator(signer, testIssuer, testAudience, revocations)

	issued, cs := issueTestToken(t, signer, testIssuer, testAudience)
	p, err := a.Authenticate(context.Background(), bearerRequest(issued.Token))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.TokenID != cs.TokenID() || p.Subject != "u1" || !p.HasRole("Admin") {
		t.Fatalf("unexpected principal: %+v", p)
	}

	if err := revocations.Revoke(context.Background(), cs.TokenID(), "u1", issued.ExpiresAt); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	_, err = a.Authenticate(context.Background(), bearerRequest(issued.Token))
	if !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, string, time.Time) error { return nil }
func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("store unavailable")
}

func TestBearerAuthenticatorRevocationStoreFailure(t *testing.T) {
	signer, err := token.NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	a := NewBearerAuthenticator(signer, testIssuer, testAudience, failingRevocations{})
	issued, _ := issueTestToken(t, signer, testIssuer, testAudience)

	_, err = a.Authenticate(context.Background(), bearerRequest(issued.Token))
	if err == nil || auth.IsAuthenticationFailure(err) {
		t.Fatalf("expected an internal error, got %v", err)
	}
}
