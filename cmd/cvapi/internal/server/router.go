package server

import (
	"errors"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/config"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/envelope"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/logging"
	cvmiddleware "github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/middleware"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/repository"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/telemetry"
)

// RouterOptions controls the construction of the cvapi HTTP router.
// Repositories, Tokens and Enforcer are required.
type RouterOptions struct {
	Users       repository.UserRepository
	Roles       repository.RoleRepository
	Departments repository.DepartmentRepository
	Revoked     repository.RevokedTokenRepository
	Tokens      *auth.TokenIssuer
	Enforcer    casbin.IEnforcer
	Cfg         *config.Config
	Logger      logrus.FieldLogger
	CORSOptions *cors.Options
	Middleware  []func(http.Handler) http.Handler
	// MeterProvider receives request and auth metrics. Nil uses the global
	// OpenTelemetry provider.
	MeterProvider metric.MeterProvider
	// HealthHandler replaces the static /health response, typically with
	// NewHealthHandler(db).
	HealthHandler http.HandlerFunc
}

// DefaultCORSOptions returns the CORS policy for the given browser origins.
func DefaultCORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	envelope.Message(w, http.StatusOK, "OK")
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the cvapi handlers mounted.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	if opts.Users == nil || opts.Roles == nil || opts.Departments == nil || opts.Revoked == nil {
		return nil, errors.New("router requires user, role, department and revoked token repositories")
	}
	if opts.Tokens == nil {
		return nil, errors.New("router requires a token issuer")
	}
	if opts.Enforcer == nil {
		return nil, errors.New("router requires a casbin enforcer")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	authnDeps := cvmiddleware.AuthnDependencies{
		Tokens:      opts.Tokens,
		Users:       opts.Users,
		RevokedJTIs: opts.Revoked,
		Logger:      log,
	}
	authn, err := cvmiddleware.NewAuthnMiddleware(authnDeps)
	if err != nil {
		return nil, err
	}
	authnDeps.Optional = true
	optionalAuthn, err := cvmiddleware.NewAuthnMiddleware(authnDeps)
	if err != nil {
		return nil, err
	}
	authz, err := cvmiddleware.NewAuthzMiddleware(cvmiddleware.AuthzDependencies{
		Enforcer: opts.Enforcer,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	serverMetrics, err := telemetry.NewServerMetrics(opts.MeterProvider)
	if err != nil {
		return nil, err
	}
	authMetrics, err := telemetry.NewAuthMetrics(opts.MeterProvider)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(log))
	r.Use(serverMetrics.Middleware)
	r.Use(middleware.Recoverer)

	var origins []string
	if opts.Cfg != nil {
		origins = opts.Cfg.CORSOrigins
	}
	corsCfg := DefaultCORSOptions(origins)
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	authDeps := AuthDeps{
		Users:         opts.Users,
		Departments:   opts.Departments,
		Revoked:       opts.Revoked,
		Tokens:        opts.Tokens,
		RotateRefresh: opts.Cfg == nil || opts.Cfg.JWT.RotateRefreshTokens,
		Logger:        log,
	}

	r.Get("/roles", HandleListRoles(opts.Roles, log))
	r.Get("/departments", HandleListDepartments(opts.Departments, log))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", telemetry.Traced("login", authMetrics, HandleLogin(authDeps)))
		r.Post("/refresh", telemetry.Traced("refresh", authMetrics, HandleRefresh(authDeps)))
		r.With(optionalAuthn).Post("/register", telemetry.Traced("register", authMetrics, HandleRegister(authDeps)))
		r.With(authn).Post("/logout", telemetry.Traced("logout", authMetrics, HandleLogout(authDeps)))
	})

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/profile", HandleProfile(opts.Users, log))
		r.Get("/dashboards", HandleDashboards())

		r.Group(func(r chi.Router) {
			r.Use(authz)
			r.Get("/dashboards/{scope}", HandleDashboard(opts.Users, log))
			r.Get("/admin/users", HandleListUsers(opts.Users, log))
			r.Post("/admin/departments", HandleCreateDepartment(opts.Departments, log))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		envelope.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		envelope.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r, nil
}
