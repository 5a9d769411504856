package claims

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

// Claim types, in canonical order.
const (
	TypeSubject = "sub"
	TypeTokenID = "jti"
	TypeRole    = "role"
	TypeName    = "name"
)

// Claim is a single named fact about a principal.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ClaimSet is the ordered, serialisable projection of a Principal.
// The zero value is empty and fails Validate.
type ClaimSet struct {
	claims []Claim
}

// Build produces the canonical claim set for a verified user. A fresh random
// token id is generated on every call.
func Build(userID, displayName string, roles []string) (ClaimSet, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return ClaimSet{}, fmt.Errorf("generate token id: %w", err)
	}
	return Restore(userID, id.String(), displayName, roles)
}

// Restore reassembles a claim set from already-issued parts, e.g. a validated
// token. It enforces the same invariants as Build.
func Restore(subject, tokenID, displayName string, roles []string) (ClaimSet, error) {
	if subject == "" {
		return ClaimSet{}, fmt.Errorf("%w: subject is required", auth.ErrInvalidPrincipal)
	}
	if tokenID == "" {
		return ClaimSet{}, fmt.Errorf("%w: token id is required", auth.ErrInvalidPrincipal)
	}
	if displayName == "" {
		return ClaimSet{}, fmt.Errorf("%w: display name is required", auth.ErrInvalidPrincipal)
	}

	cs := make([]Claim, 0, len(roles)+3)
	cs = append(cs, Claim{Type: TypeSubject, Value: subject})
	cs = append(cs, Claim{Type: TypeTokenID, Value: tokenID})
	for _, role := range roles {
		if role == "" {
			continue
		}
		cs = append(cs, Claim{Type: TypeRole, Value: role})
	}
	cs = append(cs, Claim{Type: TypeName, Value: displayName})
	return ClaimSet{claims: cs}, nil
}

// Validate checks that subject and token id are present.
func (c ClaimSet) Validate() error {
	if c.Subject() == "" || c.TokenID() == "" {
		return fmt.Errorf("%w: subject and token id are required", auth.ErrInvalidPrincipal)
	}
	return nil
}

func (c ClaimSet) first(kind string) string {
	for _, cl := range c.claims {
		if cl.Type == kind {
			return cl.Value
		}
	}
	return ""
}

func (c ClaimSet) Subject() string { return c.first(TypeSubject) }
func (c ClaimSet) TokenID() string { return c.first(TypeTokenID) }
func (c ClaimSet) Name() string    { return c.first(TypeName) }

// Roles returns the role claims in issuance order.
func (c ClaimSet) Roles() []string {
	var roles []string
	for _, cl := range c.claims {
		if cl.Type == TypeRole {
			roles = append(roles, cl.Value)
		}
	}
	return roles
}

// All returns a copy of the claims in canonical order.
func (c ClaimSet) All() []Claim {
	return slices.Clone(c.claims)
}

// Len returns the number of claims.
func (c ClaimSet) Len() int { return len(c.claims) }

// Principal projects the claim set into a request-scoped identity.
func (c ClaimSet) Principal() Principal {
	return Principal{
		Subject:     c.Subject(),
		DisplayName: c.Name(),
		Roles:       c.Roles(),
		TokenID:     c.TokenID(),
	}
}

// MarshalJSON encodes the claims as an ordered array.
func (c ClaimSet) MarshalJSON() ([]byte, error) {
	if c.claims == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.claims)
}

// UnmarshalJSON decodes an ordered array and re-applies the canonical
// invariants, so a stored record cannot smuggle in a malformed claim set.
func (c *ClaimSet) UnmarshalJSON(data []byte) error {
	var raw []Claim
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := ClaimSet{claims: raw}
	restored, err := Restore(decoded.Subject(), decoded.TokenID(), decoded.Name(), decoded.Roles())
	if err != nil {
		return err
	}
	*c = restored
	return nil
}
