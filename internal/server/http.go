package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	audithandler "ai-prompt-generator/admin/internal/audit/handler"
	healthhandler "ai-prompt-generator/admin/internal/health/handler"
	identityhandler "ai-prompt-generator/admin/internal/identity/handler"
	"ai-prompt-generator/admin/internal/platform/rbac"
	"ai-prompt-generator/admin/internal/server/middleware"
	sessionhandler "ai-prompt-generator/admin/internal/session/handler"
	"ai-prompt-generator/admin/internal/telemetry/metrics"
)

// Deps holds the handlers and middleware the admin router is assembled from.
type Deps struct {
	// Authorizer guards every /admin/api route except login. Required.
	Authorizer *middleware.Authorizer
	// Auth serves login, logout and me. Required.
	Auth *identityhandler.AuthHandler
	// Sessions serves the session administration endpoints. Required.
	Sessions *sessionhandler.Handler
	// Audit serves the audit log query. If nil, the route is not registered.
	Audit *audithandler.Handler
	// Health serves GET /health. If nil, a handler without a session count is used.
	Health *healthhandler.Handler
	// LoginLimiter rate limits POST /admin/api/auth/login per client IP. If nil, login is unlimited.
	LoginLimiter *middleware.IPRateLimiter
	// TrustedProxies are the reverse proxies whose forwarding headers name the client IP.
	// Nil uses the connection peer for every request.
	TrustedProxies *middleware.TrustedProxies
	// CORSOrigins are the origins allowed to call the API with credentials. Empty disables CORS headers.
	CORSOrigins []string
}

// NewRouter returns the admin HTTP handler.
//
// Route → handler mapping:
//   - POST   /admin/api/auth/login                  → identity handler (rate limited, unauthenticated)
//   - POST   /admin/api/auth/logout                 → identity handler
//   - GET    /admin/api/auth/me                     → identity handler
//   - GET    /admin/api/sessions                    → session handler (user:read)
//   - GET    /admin/api/sessions/stats              → session handler (security:read)
//   - DELETE /admin/api/sessions/{id}               → session handler (security:write)
//   - GET    /admin/api/security/suspicious/{userID} → session handler (security:audit)
//   - GET    /admin/api/security/audit              → audit handler (security:audit)
//   - GET    /health, GET /metrics                  → unauthenticated
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Tracing, middleware.Metrics)

	health := deps.Health
	if health == nil {
		health = healthhandler.NewHandler(nil)
	}
	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authz := deps.Authorizer
	api := r.PathPrefix("/admin/api").Subrouter()

	var login http.Handler = authz.Recover(deps.Auth.Login)
	if deps.LoginLimiter != nil {
		login = deps.LoginLimiter.Middleware(login)
	}
	api.Handle("/auth/login", login).Methods(http.MethodPost)
	api.Handle("/auth/logout", authz.WithAuth(deps.Auth.Logout, middleware.Options{SkipRouteCheck: true})).Methods(http.MethodPost)
	api.Handle("/auth/me", authz.WithAuth(deps.Auth.Me, middleware.Options{SkipRouteCheck: true})).Methods(http.MethodGet)

	api.Handle("/sessions", authz.WithAuth(deps.Sessions.ListSessions, middleware.Options{
		RequiredPermissions: []rbac.Permission{rbac.PermUserRead},
	})).Methods(http.MethodGet)
	api.Handle("/sessions/stats", authz.WithAuth(deps.Sessions.Stats, middleware.Options{
		RequiredPermissions: []rbac.Permission{rbac.PermSecurityRead},
	})).Methods(http.MethodGet)
	api.Handle("/sessions/{id}", authz.WithAuth(deps.Sessions.RevokeSession, middleware.Options{
		RequiredPermissions: []rbac.Permission{rbac.PermSecurityWrite},
	})).Methods(http.MethodDelete)
	api.Handle("/security/suspicious/{userID}", authz.WithAuth(deps.Sessions.Suspicious, middleware.Options{
		RequiredPermissions: []rbac.Permission{rbac.PermSecurityAudit},
	})).Methods(http.MethodGet)
	if deps.Audit != nil {
		api.Handle("/security/audit", authz.WithAuth(deps.Audit.ListAuditLogs, middleware.Options{
			RequiredPermissions: []rbac.Permission{rbac.PermSecurityAudit},
		})).Methods(http.MethodGet)
	}

	var h http.Handler = r
	if len(deps.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposedHeaders:   []string{middleware.HeaderRequestID, "Retry-After"},
			AllowCredentials: true,
		}).Handler(h)
	}
	return middleware.RequestInfo(deps.TrustedProxies)(h)
}
