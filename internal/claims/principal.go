package claims

import "slices"

// Principal is the authenticated identity for the duration of a request.
//
// It is treated as immutable after construction: ClaimSet.Principal copies
// the role slice, and accessors never hand out internal state.
type Principal struct {
	// Subject is the stable user id.
	Subject string

	// DisplayName is the user-facing name (the username for local accounts).
	DisplayName string

	// Roles is unordered and may be empty.
	Roles []string

	// TokenID is unique per issuance and is used for revocation and audit.
	TokenID string
}

// HasRole reports whether role is held, using exact comparison.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// RoleList returns a copy of the roles.
func (p Principal) RoleList() []string {
	return slices.Clone(p.Roles)
}
