package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/iam"
)

// Authenticate resolves the request principal through selector, accepting
// only mech, and stores it in the request context.
//
// Every rejection is a generic 401; the precise reason is only logged.
// Store failures during resolution are 500.
func Authenticate(selector *iam.Selector, mech iam.Mechanism, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := selector.Resolve(ctx, iam.NewAuthRequest(r), mech)
			if err != nil {
				fields := []zap.Field{
					zap.String("reason", string(auth.ReasonOf(err))),
					zap.String("path", r.URL.Path),
					zap.String("mechanism", string(mech)),
					zap.String("request_id", middleware.GetReqID(ctx)),
					zap.Error(err),
				}
				if !auth.IsAuthenticationFailure(err) {
					logger.Error("authentication error", fields...)
					internalError(w)
					return
				}
				logger.Info("authentication rejected", fields...)
				unauthenticated(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(iam.WithPrincipal(ctx, principal)))
		})
	}
}
