package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"ai-prompt-generator/admin/internal/identity/domain"
	"ai-prompt-generator/admin/internal/platform/rbac"
	"ai-prompt-generator/admin/internal/security"
	sessionrepo "ai-prompt-generator/admin/internal/session/repository"
	"ai-prompt-generator/admin/internal/telemetry/metrics"
)

const (
	// SessionCookieName is the cookie carrying the session id.
	SessionCookieName = "admin_session"
	// DefaultVerifyTimeout bounds a single bearer token verification.
	DefaultVerifyTimeout = 2 * time.Second

	bearerPrefix = "bearer "
)

var (
	// ErrNoCredential is returned when the request has neither a bearer token nor a session cookie.
	ErrNoCredential = errors.New("no credential supplied")
	// ErrTokenRevoked is returned for a bearer token in the revoked set.
	ErrTokenRevoked = errors.New("token has been revoked")
	// ErrVerifyTimeout is returned when the verifier does not answer within the timeout.
	ErrVerifyTimeout = errors.New("token verification timed out")
	// ErrInvalidSession is returned for an unknown, expired or inactive session id.
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrAdminRoleRequired is returned when the caller authenticated but holds neither admin nor super_admin.
	ErrAdminRoleRequired = errors.New("admin role required")
)

// Verifier validates a bearer token and returns its claims. security.TokenProvider implements it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*security.VerifiedToken, error)
}

// AuthResult is the outcome of Authenticate. On failure Identity may still be set
// (403 for a non-admin role) so the denial can be attributed.
type AuthResult struct {
	Success    bool
	Identity   *domain.Identity
	Err        error
	StatusCode int
	Code       string
	Method     domain.AuthMethod
}

// Message is the client-safe text for a failed result.
func (r AuthResult) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Resolver turns request credentials into an Identity. A bearer token takes
// precedence over the session cookie; only one is consulted.
type Resolver struct {
	verifier Verifier
	sessions sessionrepo.Store
	timeout  time.Duration
}

// NewResolver returns a Resolver. A non-positive timeout selects DefaultVerifyTimeout.
func NewResolver(verifier Verifier, sessions sessionrepo.Store, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	return &Resolver{verifier: verifier, sessions: sessions, timeout: timeout}
}

// Authenticate resolves the caller of req.
func (r *Resolver) Authenticate(req *http.Request) AuthResult {
	ctx := req.Context()
	var res AuthResult
	if token := ExtractBearer(req); token != "" {
		res = r.authenticateBearer(ctx, token)
	} else if cookie, err := req.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		res = r.authenticateSession(ctx, cookie.Value)
	} else {
		return unauthenticated("", ErrNoCredential)
	}
	if !res.Success {
		return res
	}
	if !res.Identity.Role.IsAdmin() {
		return AuthResult{
			Identity:   res.Identity,
			Err:        ErrAdminRoleRequired,
			StatusCode: http.StatusForbidden,
			Code:       CodeInsufficientPermissions,
			Method:     res.Method,
		}
	}
	return res
}

func (r *Resolver) authenticateBearer(ctx context.Context, token string) AuthResult {
	if r.sessions.IsTokenBlacklisted(ctx, token) {
		return unauthenticated(domain.AuthMethodBearer, ErrTokenRevoked)
	}
	verified, err := r.verify(ctx, token)
	if err != nil {
		return unauthenticated(domain.AuthMethodBearer, err)
	}
	// A token never grants more than its role currently allows.
	perms := verified.Permissions.Intersect(rbac.PermissionsForRole(verified.Role))
	return AuthResult{
		Success: true,
		Identity: &domain.Identity{
			UserID:      verified.UserID,
			Username:    verified.Username,
			Role:        verified.Role,
			Permissions: perms,
			Method:      domain.AuthMethodBearer,
		},
		StatusCode: http.StatusOK,
		Method:     domain.AuthMethodBearer,
	}
}

type verifyResult struct {
	token *security.VerifiedToken
	err   error
}

// verify calls the verifier under the resolver timeout. A verifier that ignores
// its context is abandoned when the deadline passes.
func (r *Resolver) verify(ctx context.Context, token string) (*security.VerifiedToken, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	ch := make(chan verifyResult, 1)
	go func() {
		tok, err := r.verifier.Verify(ctx, token)
		ch <- verifyResult{token: tok, err: err}
	}()
	select {
	case out := <-ch:
		metrics.TokenVerifyDurationSeconds.Observe(time.Since(start).Seconds())
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return nil, ErrVerifyTimeout
			}
			return nil, out.err
		}
		if out.token == nil {
			return nil, security.ErrInvalidToken
		}
		return out.token, nil
	case <-ctx.Done():
		metrics.TokenVerifyDurationSeconds.Observe(time.Since(start).Seconds())
		return nil, ErrVerifyTimeout
	}
}

func (r *Resolver) authenticateSession(ctx context.Context, sessionID string) AuthResult {
	sess, ok := r.sessions.GetSession(ctx, sessionID)
	if !ok {
		return unauthenticated(domain.AuthMethodSession, ErrInvalidSession)
	}
	return AuthResult{
		Success: true,
		Identity: &domain.Identity{
			UserID:      sess.UserID,
			Username:    sess.Username,
			Role:        sess.Role,
			Permissions: rbac.PermissionsForRole(sess.Role),
			SessionID:   sess.ID,
			Method:      domain.AuthMethodSession,
		},
		StatusCode: http.StatusOK,
		Method:     domain.AuthMethodSession,
	}
}

func unauthenticated(method domain.AuthMethod, err error) AuthResult {
	return AuthResult{
		Err:        err,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeAuthenticationFailed,
		Method:     method,
	}
}

// ExtractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func ExtractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
