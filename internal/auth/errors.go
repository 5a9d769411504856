package auth

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when the credential verifier rejects a
	// username/password pair. It never says which half was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConfiguration is fatal at startup: missing or weak signing key,
	// missing issuer or audience, inconsistent lifetimes.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidPrincipal is returned when a claim set cannot be built.
	ErrInvalidPrincipal = errors.New("invalid principal")

	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrExpired          = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// ErrPolicyEvaluation means a registered policy failed to evaluate. It is a
	// server fault and must never be read as a deny.
	ErrPolicyEvaluation = errors.New("policy evaluation error")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrDenied          = errors.New("access denied")

	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidInput wraps request or registration validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// Reason is a stable, log-friendly code for a rejection.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonConfiguration      Reason = "configuration_error"
	ReasonInvalidPrincipal   Reason = "invalid_principal"
	ReasonSignatureInvalid   Reason = "signature_invalid"
	ReasonIssuerMismatch     Reason = "issuer_mismatch"
	ReasonAudienceMismatch   Reason = "audience_mismatch"
	ReasonExpired            Reason = "expired"
	ReasonTokenRevoked       Reason = "token_revoked"
	ReasonSessionNotFound    Reason = "session_not_found"
	ReasonSessionExpired     Reason = "session_expired"
	ReasonPolicyEvaluation   Reason = "policy_evaluation_error"
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonDenied             Reason = "denied"
	ReasonUserExists         Reason = "user_exists"
	ReasonUserNotFound       Reason = "user_not_found"
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonInternal           Reason = "internal"
)

var reasons = []struct {
	err    error
	reason Reason
	status int
}{
	{ErrInvalidCredentials, ReasonInvalidCredentials, http.StatusUnauthorized},
	{ErrConfiguration, ReasonConfiguration, http.StatusInternalServerError},
	{ErrInvalidPrincipal, ReasonInvalidPrincipal, http.StatusInternalServerError},
	{ErrSignatureInvalid, ReasonSignatureInvalid, http.StatusUnauthorized},
	{ErrIssuerMismatch, ReasonIssuerMismatch, http.StatusUnauthorized},
	{ErrAudienceMismatch, ReasonAudienceMismatch, http.StatusUnauthorized},
	{ErrExpired, ReasonExpired, http.StatusUnauthorized},
	{ErrTokenRevoked, ReasonTokenRevoked, http.StatusUnauthorized},
	{ErrSessionNotFound, ReasonSessionNotFound, http.StatusUnauthorized},
	{ErrSessionExpired, ReasonSessionExpired, http.StatusUnauthorized},
	{ErrPolicyEvaluation, ReasonPolicyEvaluation, http.StatusInternalServerError},
	{ErrUnauthenticated, ReasonUnauthenticated, http.StatusUnauthorized},
	{ErrDenied, ReasonDenied, http.StatusForbidden},
	{ErrUserExists, ReasonUserExists, http.StatusBadRequest},
	{ErrUserNotFound, ReasonUserNotFound, http.StatusNotFound},
	{ErrInvalidInput, ReasonInvalidInput, http.StatusBadRequest},
}

// ReasonOf classifies err. Unknown errors are ReasonInternal.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}

// HTTPStatus maps err to the status presented at the boundary.
// All authentication rejections collapse to 401.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.status
		}
	}
	return http.StatusInternalServerError
}

// IsAuthenticationFailure reports whether err should be presented as a
// generic 401.
func IsAuthenticationFailure(err error) bool {
	return err != nil && HTTPStatus(err) == http.StatusUnauthorized
}
