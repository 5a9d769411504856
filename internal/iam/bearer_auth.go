package iam

import (
	"context"
	"fmt"
	"time"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/token"
)

// BearerAuthenticator validates "Authorization: Bearer" tokens.
type BearerAuthenticator struct {
	signer      *token.Signer
	issuer      string
	audience    string
	revocations RevocationList
	now         func() time.Time
}

// NewBearerAuthenticator returns an authenticator for tokens issued by signer.
// revocations may be nil, in which case logout cannot revoke tokens.
func NewBearerAuthenticator(signer *token.Signer, issuer, audience string, revocations RevocationList) *BearerAuthenticator {
	return &BearerAuthenticator{
		signer:      signer,
		issuer:      issuer,
		audience:    audience,
		revocations: revocations,
		now:         time.Now,
	}
}

// Authenticate validates the bearer token, then checks the revocation list.
func (a *BearerAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	raw, ok := auth.BearerToken(req.Headers)
	if !ok {
		return nil, nil
	}

	cs, err := a.signer.Validate(raw, a.issuer, a.audience, a.now())
	if err != nil {
		return nil, err
	}

	if a.revocations != nil {
		revoked, err := a.revocations.IsRevoked(ctx, cs.TokenID())
		if err != nil {
			return nil, fmt.Errorf("check revocation status: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: jti %s", auth.ErrTokenRevoked, cs.TokenID())
		}
	}

	exp, err := a.signer.ExpiresAt(raw)
	if err != nil {
		return nil, err
	}
	return &Principal{
		Principal: cs.Principal(),
		Mechanism: MechanismBearer,
		ExpiresAt: exp,
	}, nil
}
