package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ai-prompt-generator/admin/internal/audit"
	auditdomain "ai-prompt-generator/admin/internal/audit/domain"
	identitydomain "ai-prompt-generator/admin/internal/identity/domain"
	"ai-prompt-generator/admin/internal/platform/rbac"
	"ai-prompt-generator/admin/internal/security"
	sessiondomain "ai-prompt-generator/admin/internal/session/domain"
	"ai-prompt-generator/admin/internal/telemetry/metrics"
	userdomain "ai-prompt-generator/admin/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP status codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSuspiciousActivity = errors.New("too many recent failed logins; try again later")
)

// Login failure reasons stored on LoginRecords.
const (
	reasonInvalidPassword = "invalid password"
	reasonAccountDisabled = "account disabled"
	reasonSuspicious      = "suspicious activity"
)

// Login result labels for metrics.LoginAttemptsTotal.
const (
	resultSuccess            = "success"
	resultInvalidCredentials = "invalid_credentials"
	resultSuspicious         = "suspicious"
)

// LoginInput is a login request together with the client it came from.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult holds the new session and a bearer token for the same user.
type LoginResult struct {
	Session        *sessiondomain.Session
	Token          string
	TokenExpiresAt time.Time
	Identity       *identitydomain.Identity
}

// LogoutInput names the credentials to invalidate. Either field may be empty.
type LogoutInput struct {
	UserID      string
	SessionID   string
	BearerToken string
}

// UserRepo is the minimal user directory needed by the auth service.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
}

// SessionStore is the minimal session store needed by the auth service.
type SessionStore interface {
	CreateSession(ctx context.Context, identity *identitydomain.Identity, meta sessiondomain.RequestMeta) (*sessiondomain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) bool
	LinkToken(ctx context.Context, sessionID, token string, expiresAt time.Time) bool
	RecordLoginAttempt(ctx context.Context, rec sessiondomain.LoginRecord)
	DetectSuspiciousActivity(ctx context.Context, userID string) bool
	BlacklistToken(ctx context.Context, token string, expiresAt time.Time)
}

// TokenIssuer signs bearer tokens. security.TokenProvider implements it.
type TokenIssuer interface {
	Issue(sub security.TokenSubject) (token, jti string, expiresAt time.Time, err error)
	TTL() time.Duration
}

// AuthService implements password login and logout for admin users.
type AuthService struct {
	users    UserRepo
	sessions SessionStore
	hasher   *security.Hasher
	tokens   TokenIssuer
	audit    audit.AuditLogger
	log      *slog.Logger
	nowF     func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies. auditLogger may be nil.
func NewAuthService(
	users UserRepo,
	sessions SessionStore,
	hasher *security.Hasher,
	tokens TokenIssuer,
	auditLogger audit.AuditLogger,
	log *slog.Logger,
) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		audit:    auditLogger,
		log:      log,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Login checks username and password, opens a session and issues a bearer token.
// Unknown users, disabled accounts and wrong passwords all return ErrInvalidCredentials.
// A user whose recent history looks like an attack gets ErrSuspiciousActivity before
// the password is checked.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		s.failed(ctx, "", username, in, "")
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.CompareDummy([]byte(in.Password))
		s.failed(ctx, "", username, in, "")
		return nil, ErrInvalidCredentials
	}
	if s.sessions.DetectSuspiciousActivity(ctx, user.ID) {
		metrics.LoginAttemptsTotal.WithLabelValues(resultSuspicious).Inc()
		// A refused attempt counts toward the suspicious window like any other failure.
		s.sessions.RecordLoginAttempt(ctx, sessiondomain.LoginRecord{
			UserID:        user.ID,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			Success:       false,
			FailureReason: reasonSuspicious,
		})
		s.log.WarnContext(ctx, "auth: login refused, suspicious activity", "user_id", user.ID, "ip", in.IPAddress)
		s.auditEvent(ctx, auditdomain.AuditLog{
			UserID:   user.ID,
			Action:   "login",
			Resource: "auth",
			Outcome:  auditdomain.OutcomeDenied,
			IP:       in.IPAddress,
			Metadata: reasonSuspicious,
		})
		return nil, ErrSuspiciousActivity
	}
	if !user.Active() {
		s.hasher.CompareDummy([]byte(in.Password))
		s.failed(ctx, user.ID, username, in, reasonAccountDisabled)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(in.Password)); err != nil {
		s.failed(ctx, user.ID, username, in, reasonInvalidPassword)
		return nil, ErrInvalidCredentials
	}

	identity := &identitydomain.Identity{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: rbac.PermissionsForRole(user.Role),
	}
	sess, err := s.sessions.CreateSession(ctx, identity, sessiondomain.RequestMeta{
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	token, _, exp, err := s.tokens.Issue(security.TokenSubject{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: identity.Permissions,
	})
	if err != nil {
		s.sessions.DeleteSession(ctx, sess.ID)
		return nil, err
	}
	if !s.sessions.LinkToken(ctx, sess.ID, token, exp) {
		s.log.WarnContext(ctx, "auth: session gone before token link", "user_id", user.ID, "session_id", sess.ID)
	}
	identity.SessionID = sess.ID
	identity.Method = identitydomain.AuthMethodSession

	metrics.LoginAttemptsTotal.WithLabelValues(resultSuccess).Inc()
	s.log.InfoContext(ctx, "auth: login", "user_id", user.ID, "role", user.Role, "device", sess.DeviceInfo)
	s.auditEvent(ctx, auditdomain.AuditLog{
		UserID:    user.ID,
		SessionID: sess.ID,
		Action:    "login",
		Resource:  "auth",
		Outcome:   auditdomain.OutcomeSuccess,
		IP:        in.IPAddress,
	})
	return &LoginResult{
		Session:        sess,
		Token:          token,
		TokenExpiresAt: exp,
		Identity:       identity,
	}, nil
}

// Logout deletes the session, which also revokes the bearer token issued with it, and
// revokes the bearer token named in in. Missing credentials are skipped; logout never fails.
func (s *AuthService) Logout(ctx context.Context, in LogoutInput) {
	deleted := false
	if in.SessionID != "" {
		deleted = s.sessions.DeleteSession(ctx, in.SessionID)
	}
	revoked := false
	if in.BearerToken != "" {
		exp, ok := security.ExpiryOf(in.BearerToken)
		if !ok {
			exp = s.nowF().Add(s.tokens.TTL())
		}
		s.sessions.BlacklistToken(ctx, in.BearerToken, exp)
		metrics.TokensRevokedTotal.Inc()
		revoked = true
	}
	s.log.InfoContext(ctx, "auth: logout", "user_id", in.UserID, "session_deleted", deleted, "token_revoked", revoked)
	s.auditEvent(ctx, auditdomain.AuditLog{
		UserID:    in.UserID,
		SessionID: in.SessionID,
		Action:    "logout",
		Resource:  "auth",
		Outcome:   auditdomain.OutcomeSuccess,
	})
}

// failed records a rejected login. userID is empty for unknown usernames, which have
// no history to append to.
func (s *AuthService) failed(ctx context.Context, userID, username string, in LoginInput, reason string) {
	metrics.LoginAttemptsTotal.WithLabelValues(resultInvalidCredentials).Inc()
	if userID != "" {
		s.sessions.RecordLoginAttempt(ctx, sessiondomain.LoginRecord{
			UserID:        userID,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			Success:       false,
			FailureReason: reason,
		})
	}
	s.log.InfoContext(ctx, "auth: login failed", "username", username, "user_id", userID, "ip", in.IPAddress)
	s.auditEvent(ctx, auditdomain.AuditLog{
		UserID:   userID,
		Action:   "login",
		Resource: "auth",
		Outcome:  auditdomain.OutcomeFailure,
		IP:       in.IPAddress,
		Metadata: "invalid credentials",
	})
}

func (s *AuthService) auditEvent(ctx context.Context, entry auditdomain.AuditLog) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, entry)
	}
}
