package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

// tokenClaims is the wire layout of a bearer token payload.
type tokenClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
	Name  string   `json:"name"`
}

// Issued is a freshly signed bearer token.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Signer signs claim sets into HS256 bearer tokens and validates them.
// It holds only read-only state and is safe for concurrent use.
type Signer struct {
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Signer.
type Option func(*Signer)

// WithClock overrides the issuance clock.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner returns a Signer for key. Weak keys are rejected here so that a
// misconfigured process fails at startup.
func NewSigner(key []byte, opts ...Option) (*Signer, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	s := &Signer{
		key: slices.Clone(key),
		now: time.Now,
		// Claims are checked by hand below so that the signature is always
		// confirmed before issuer, audience or expiry are looked at.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs cs with expiry = now + ttl. The expiry is absolute and
// truncated to whole seconds, which is the precision carried on the wire.
func (s *Signer) Issue(cs claims.ClaimSet, issuer, audience string, ttl time.Duration) (Issued, error) {
	if err := CheckKey(s.key); err != nil {
		return Issued{}, err
	}
	if issuer == "" || audience == "" {
		return Issued{}, fmt.Errorf("%w: issuer and audience are required", auth.ErrConfiguration)
	}
	if ttl <= 0 {
		return Issued{}, fmt.Errorf("%w: token ttl must be positive", auth.ErrConfiguration)
	}
	if err := cs.Validate(); err != nil {
		return Issued{}, err
	}

	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(ttl).Truncate(time.Second)

	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   cs.Subject(),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        cs.TokenID(),
		},
		Roles: cs.Roles(),
		Name:  cs.Name(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(s.key)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate decodes raw and returns its claim set, or exactly one rejection:
// ErrSignatureInvalid, ErrIssuerMismatch, ErrAudienceMismatch or ErrExpired,
// checked in that order. The token is valid while now < expiry.
func (s *Signer) Validate(raw, issuer, audience string, now time.Time) (claims.ClaimSet, error) {
	if err := CheckKey(s.key); err != nil {
		return claims.ClaimSet{}, err
	}

	tc := &tokenClaims{}
	parsed, err := s.parser.ParseWithClaims(raw, tc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		// Malformed segments are indistinguishable from forgeries to callers.
		return claims.ClaimSet{}, fmt.Errorf("%w: %v", auth.ErrSignatureInvalid, err)
	}
	if !parsed.Valid {
		return claims.ClaimSet{}, auth.ErrSignatureInvalid
	}

	if tc.Issuer != issuer {
		return claims.ClaimSet{}, fmt.Errorf("%w: got %q", auth.ErrIssuerMismatch, tc.Issuer)
	}
	if !slices.Contains(tc.Audience, audience) {
		return claims.ClaimSet{}, fmt.Errorf("%w: got %v", auth.ErrAudienceMismatch, []string(tc.Audience))
	}
	if tc.ExpiresAt == nil {
		return claims.ClaimSet{}, fmt.Errorf("%w: no expiry claim", auth.ErrExpired)
	}
	if !now.Before(tc.ExpiresAt.Time) {
		return claims.ClaimSet{}, fmt.Errorf("%w: at %s", auth.ErrExpired, tc.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}

	cs, err := claims.Restore(tc.Subject, tc.ID, tc.Name, tc.Roles)
	if err != nil {
		return claims.ClaimSet{}, err
	}
	return cs, nil
}

// ExpiresAt reads the expiry of a token whose signature has already been
// validated. It is used when recording revocations.
func (s *Signer) ExpiresAt(raw string) (time.Time, error) {
	tc := &tokenClaims{}
	if _, err := s.parser.ParseWithClaims(raw, tc, func(*jwt.Token) (any, error) { return s.key, nil }); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", auth.ErrSignatureInvalid, err)
	}
	if tc.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry")
	}
	return tc.ExpiresAt.Time, nil
}
