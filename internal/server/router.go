package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ArashRezazadeh/DataAnnotations/internal/authz"
	"github.com/ArashRezazadeh/DataAnnotations/internal/iam"
	authmw "github.com/ArashRezazadeh/DataAnnotations/internal/middleware"
	"github.com/ArashRezazadeh/DataAnnotations/internal/telemetry"
)

// AdminRole is required to delete accounts.
const AdminRole = "Admin"

// RouterOptions controls the construction of the HTTP router.
type RouterOptions struct {
	Service   iam.Service
	Selector  *iam.Selector
	Evaluator *authz.Evaluator
	Logger    *zap.Logger
	Metrics   *telemetry.HTTPMetrics

	// LoginMechanism is used by /login when no mode is given.
	LoginMechanism iam.Mechanism
	// RouteMechanism is accepted by the general protected routes.
	RouteMechanism iam.Mechanism

	RequireHTTPS  bool
	CORSOrigins   []string
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
}

// DefaultCORSOptions allows any header and method from origins (any origin
// when empty).
func DefaultCORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles the chi router with the shared middleware and the
// account routes mounted under /api/account.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	if opts.Service == nil || opts.Selector == nil || opts.Evaluator == nil {
		return nil, fmt.Errorf("router requires service, selector and evaluator")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loginMode := opts.LoginMechanism
	if loginMode == "" || loginMode == iam.MechanismAny {
		loginMode = iam.MechanismBearer
	}
	routeMode := opts.RouteMechanism
	if routeMode == "" {
		routeMode = iam.MechanismAny
	}

	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	h := &accountHandlers{svc: opts.Service, validator: validator, loginMode: loginMode, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.AccessLog(logger, opts.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(authmw.SecurityHeaders)
	if opts.RequireHTTPS {
		r.Use(authmw.RequireHTTPS)
	}
	r.Use(cors.Handler(DefaultCORSOptions(opts.CORSOrigins)))
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	authn := func(mech iam.Mechanism) func(http.Handler) http.Handler {
		return authmw.Authenticate(opts.Selector, mech, logger)
	}
	require := func(reqs ...authz.Requirement) func(http.Handler) http.Handler {
		return authmw.RequirePolicies(opts.Evaluator, logger, reqs...)
	}

	r.Route("/api/account", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)

		r.With(authn(iam.MechanismAny)).Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(authn(routeMode))
			r.Get("/authtest", h.secured)
			r.Get("/whoami", h.whoami)
			r.With(require(authz.RequirePolicy(authz.UsernameStartsWithL))).Get("/lonly", h.secured)
			r.With(require(authz.RequireRole(AdminRole))).Delete("/delete/{email}", h.deleteUser)
		})

		r.With(authn(iam.MechanismBearer)).Get("/bearer-only", h.secured)
		r.With(authn(iam.MechanismCookie)).Get("/cookie-only", h.secured)
	})

	health := opts.HealthHandler
	if health == nil {
		health = defaultHealthHandler
	}
	r.Get("/health", health)

	return r, nil
}

// NewH2CHandler wraps the router with an h2c server to provide HTTP/2 over
// cleartext.
func NewH2CHandler(opts RouterOptions) (http.Handler, error) {
	router, err := NewRouter(opts)
	if err != nil {
		return nil, err
	}
	return h2c.NewHandler(router, &http2.Server{}), nil
}
