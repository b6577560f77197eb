package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ai-prompt-generator/admin/internal/audit"
	auditdomain "ai-prompt-generator/admin/internal/audit/domain"
	"ai-prompt-generator/admin/internal/identity/domain"
	"ai-prompt-generator/admin/internal/platform/rbac"
	"ai-prompt-generator/admin/internal/telemetry/metrics"
)

// Request headers set on authorized requests for downstream handlers.
const (
	HeaderUserID          = "X-User-ID"
	HeaderUserRole        = "X-User-Role"
	HeaderUserPermissions = "X-User-Permissions"
)

// Options configures a protected route.
type Options struct {
	// RequiredPermissions must all be held (AND). The wildcard satisfies any.
	RequiredPermissions []rbac.Permission
	// SkipRouteCheck disables the route table lookup for this route.
	SkipRouteCheck bool
}

// HandlerFunc is an HTTP handler that may fail. A returned error becomes a sanitized 500.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Authorizer authenticates and authorizes admin API requests.
type Authorizer struct {
	resolver *Resolver
	routes   *rbac.RouteAuthorizer
	audit    audit.AuditLogger
	log      *slog.Logger
	tracer   trace.Tracer
}

// NewAuthorizer returns an Authorizer. routes nil uses the default route table; auditLogger may be nil.
func NewAuthorizer(resolver *Resolver, routes *rbac.RouteAuthorizer, auditLogger audit.AuditLogger, log *slog.Logger) *Authorizer {
	if routes == nil {
		routes = rbac.NewRouteAuthorizer(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Authorizer{
		resolver: resolver,
		routes:   routes,
		audit:    auditLogger,
		log:      log,
		tracer:   otel.Tracer("ai-prompt-generator/admin/middleware"),
	}
}

// Middleware returns middleware that resolves the caller, applies opts.RequiredPermissions,
// then the route table check unless skipped. On success the identity is attached to the
// request context and the X-User-* request headers.
func (a *Authorizer) Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := a.tracer.Start(r.Context(), "admin.authorize")
			defer span.End()
			r = r.WithContext(ctx)
			route := routeTemplate(r)

			res := a.resolver.Authenticate(r)
			if !res.Success {
				outcome := metrics.OutcomeUnauthorized
				if res.StatusCode == http.StatusForbidden {
					outcome = metrics.OutcomeForbidden
				}
				a.deny(w, r, span, route, res.Identity, res.Method, outcome, res.StatusCode, res.Code, res.Message())
				return
			}
			id := res.Identity
			if !rbac.HasPermission(id, opts.RequiredPermissions...) {
				a.deny(w, r, span, route, id, res.Method, metrics.OutcomeForbidden,
					http.StatusForbidden, CodeInsufficientPermissions, "insufficient permissions")
				return
			}
			if !opts.SkipRouteCheck && !a.routes.CheckRoutePermission(r.Method, route, id) {
				a.deny(w, r, span, route, id, res.Method, metrics.OutcomeRouteDenied,
					http.StatusForbidden, CodeRouteAccessDenied, "access to this route is denied")
				return
			}

			metrics.AuthDecisionsTotal.WithLabelValues(methodLabel(res.Method), metrics.OutcomeAllowed).Inc()
			span.SetAttributes(
				attribute.String("admin.user_id", id.UserID),
				attribute.String("admin.role", string(id.Role)),
				attribute.String("admin.auth_method", string(id.Method)),
			)
			r.Header.Set(HeaderUserID, id.UserID)
			r.Header.Set(HeaderUserRole, string(id.Role))
			r.Header.Set(HeaderUserPermissions, id.Permissions.String())
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithAuth wraps h with Middleware(opts). A panic or returned error from h is logged
// with its detail and answered with a generic 500.
func (a *Authorizer) WithAuth(h HandlerFunc, opts Options) http.Handler {
	return a.Middleware(opts)(a.Recover(h))
}

// Recover adapts h to http.Handler, turning panics and returned errors into a sanitized 500.
func (a *Authorizer) Recover(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		defer func() {
			if rec := recover(); rec != nil {
				a.log.ErrorContext(r.Context(), "handler panic",
					"method", r.Method, "path", r.URL.Path, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
				a.internalError(sw, r)
			}
		}()
		if err := h(sw, r); err != nil {
			a.log.ErrorContext(r.Context(), "handler error", "method", r.Method, "path", r.URL.Path, "error", err)
			a.internalError(sw, r)
		}
	})
}

func (a *Authorizer) internalError(w *statusWriter, r *http.Request) {
	metrics.AuthDecisionsTotal.WithLabelValues("handler", metrics.OutcomeInternalError).Inc()
	if w.wroteHeader {
		return
	}
	WriteError(w, http.StatusInternalServerError, CodeInternalServerError, "internal server error")
}

// RequireIdentity returns the caller attached by Middleware. If none is present it
// writes a 500 USER_INFO_UNAVAILABLE and returns false.
func RequireIdentity(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		slog.ErrorContext(r.Context(), "identity missing in protected handler", "path", r.URL.Path)
		WriteError(w, http.StatusInternalServerError, CodeUserInfoUnavailable, "user information unavailable")
		return nil, false
	}
	return id, true
}

func (a *Authorizer) deny(w http.ResponseWriter, r *http.Request, span trace.Span, route string, id *domain.Identity,
	method domain.AuthMethod, outcome string, status int, code, message string) {
	metrics.AuthDecisionsTotal.WithLabelValues(methodLabel(method), outcome).Inc()
	span.SetAttributes(attribute.String("admin.denied_code", code))
	span.SetStatus(codes.Error, code)

	userID := ""
	if id != nil {
		userID = id.UserID
	}
	a.log.InfoContext(r.Context(), "request denied",
		"method", r.Method, "route", route, "status", status, "code", code, "user_id", userID)
	if a.audit != nil {
		ar := audit.ParseRoute(r.Method, route)
		auditOutcome := auditdomain.OutcomeDenied
		if status == http.StatusUnauthorized {
			auditOutcome = auditdomain.OutcomeFailure
		}
		entry := auditdomain.AuditLog{
			UserID:   userID,
			Action:   ar.Action,
			Resource: ar.Resource,
			Outcome:  auditOutcome,
			Metadata: code + ": " + message,
		}
		if id != nil {
			entry.SessionID = id.SessionID
		}
		a.audit.LogEvent(r.Context(), entry)
	}
	WriteError(w, status, code, message)
}

// routeTemplate returns the gorilla/mux path template of the matched route, or the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func methodLabel(m domain.AuthMethod) string {
	if m == "" {
		return "none"
	}
	return string(m)
}

// statusWriter records whether a status has been written.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
