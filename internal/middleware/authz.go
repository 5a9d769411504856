package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/authz"
	"github.com/ArashRezazadeh/DataAnnotations/internal/iam"
)

// RequirePolicies enforces reqs (logical AND) for the principal placed in
// the context by Authenticate.
//
//   - no principal: 401
//   - denied: 403
//   - policy evaluation fault: 500, never a deny
func RequirePolicies(evaluator *authz.Evaluator, logger *zap.Logger, reqs ...authz.Requirement) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.String()
	}
	required := strings.Join(names, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, _ := iam.PrincipalFromContext(ctx)

			decision, err := evaluator.Authorize(ctx, principal.Claims(), reqs...)
			if err != nil {
				// already logged at Error by the evaluator
				internalError(w)
				return
			}
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			fields := []zap.Field{
				zap.String("reason", string(decision.Reason)),
				zap.String("path", r.URL.Path),
				zap.String("required", required),
				zap.String("failed", decision.Requirement),
				zap.String("request_id", middleware.GetReqID(ctx)),
			}
			if decision.Reason == auth.ReasonUnauthenticated {
				logger.Info("authorization rejected", fields...)
				unauthenticated(w)
				return
			}
			fields = append(fields, zap.String("subject", principal.Subject))
			logger.Info("authorization denied", fields...)
			forbidden(w)
		})
	}
}
