// Package claims builds the canonical identity claim set shared by both
// session mechanisms.
//
// A ClaimSet is an ordered, immutable value: subject, token id, one role
// claim per role, then the display name. It is built fresh for every
// issuance by Build and reconstructed from a validated token or a stored
// session record by Restore. Neither path ever updates a claim set in place.
//
// Principal is the request-scoped projection of a ClaimSet. Authorization
// policies read it; nothing writes to it after construction.
package claims
