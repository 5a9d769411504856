package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// ContentSecurityPolicy is sent on every response.
const ContentSecurityPolicy = "default-src 'self'; script-src 'self'; object-src 'none'; frame-ancestors 'none'; base-uri 'self';"

// SecurityHeaders sets anti-framing, anti-sniffing and CSP headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", ContentSecurityPolicy)
		next.ServeHTTP(w, r)
	})
}

// ProblemDetails is an RFC 7807 body.
type ProblemDetails struct {
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail"`
	Instance string            `json:"instance"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// RequireHTTPS rejects plain-HTTP requests with a 400 problem document. A
// request counts as HTTPS when it arrived over TLS or a proxy set
// X-Forwarded-Proto: https.
func RequireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isHTTPS(r) {
			next.ServeHTTP(w, r)
			return
		}

		problem := ProblemDetails{
			Title:    "Bad Request",
			Status:   http.StatusBadRequest,
			Detail:   "HTTP requests are not allowed. Please use HTTPS.",
			Instance: fmt.Sprintf("%s (%s)", r.URL.Path, middleware.GetReqID(r.Context())),
			Headers: map[string]string{
				"Host":              r.Host,
				"User-Agent":        r.UserAgent(),
				"X-Forwarded-Proto": r.Header.Get("X-Forwarded-Proto"),
				"X-Forwarded-For":   r.Header.Get("X-Forwarded-For"),
			},
		}
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(problem)
	})
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	// first hop wins when proxies append
	if i := strings.IndexByte(proto, ','); i >= 0 {
		proto = proto[:i]
	}
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}
