package auth

import (
	"net/http"
	"time"
)

// DefaultSessionCookieName matches the cookie name the account endpoints
// have always used.
const DefaultSessionCookieName = "Auth"

// SessionCookie builds the cookie carrying an opaque session reference.
// It has no Expires attribute: sliding expiry is tracked server-side only.
func SessionCookie(name, reference string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    reference,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredSessionCookie instructs the client to drop the session cookie.
func ExpiredSessionCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// CookieValue returns the named cookie's value from cookies, or "".
func CookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
