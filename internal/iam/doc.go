// Package iam turns credentials into principals.
//
// Login: a CredentialVerifier accepts a username/password pair, the claims
// Builder produces a fresh ClaimSet, and the ClaimSet is issued either as a
// signed bearer token or as a server-side session behind an opaque cookie.
// Both mechanisms share the same Builder, so a principal looks the same no
// matter how it logged in.
//
// Requests: the Selector inspects which artifact a request presents and
// dispatches to exactly one Authenticator:
//
//	Authorization: Bearer <token>  → BearerAuthenticator → Signer.Validate
//	Cookie: Auth=<reference>       → SessionAuthenticator → Manager.Resolve
//	neither                        → auth.ErrUnauthenticated
//
// A route may pin one mechanism; presenting only the other artifact is then
// also unauthenticated.
package iam
