package repository

import (
	"context"
	"time"

	identitydomain "ai-prompt-generator/admin/internal/identity/domain"
	"ai-prompt-generator/admin/internal/session/domain"
)

// Store is the session registry used by the auth middleware and the login service.
// MemoryStore is the only implementation; callers depend on this interface so a
// shared backend can replace it without touching them.
type Store interface {
	// CreateSession opens a new session for identity, evicting the least recently
	// active live session when the user is at capacity, and records a successful login.
	CreateSession(ctx context.Context, identity *identitydomain.Identity, meta domain.RequestMeta) (*domain.Session, error)
	// GetSession returns a live session and advances its LastActivity. Expired or
	// unknown IDs return (nil, false); expired records are removed.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, bool)
	// DeleteSession removes a session and revokes the bearer token linked to it.
	// Returns false if it did not exist.
	DeleteSession(ctx context.Context, sessionID string) bool
	// LinkToken ties a bearer token to a live session so the token dies with it.
	// Returns false if the session is unknown or expired.
	LinkToken(ctx context.Context, sessionID, token string, expiresAt time.Time) bool
	// GetUserSessions lists the user's live sessions, removing any expired ones found.
	GetUserSessions(ctx context.Context, userID string) []*domain.Session
	// RecordLoginAttempt appends to the user's login history.
	RecordLoginAttempt(ctx context.Context, rec domain.LoginRecord)
	// LoginHistory returns the user's login history, oldest first.
	LoginHistory(ctx context.Context, userID string) []domain.LoginRecord
	// DetectSuspiciousActivity reports whether the user's recent login attempts look like an attack.
	DetectSuspiciousActivity(ctx context.Context, userID string) bool
	// BlacklistToken revokes a bearer token until expiresAt. Only its hash is kept.
	BlacklistToken(ctx context.Context, token string, expiresAt time.Time)
	// IsTokenBlacklisted reports whether token has been revoked.
	IsTokenBlacklisted(ctx context.Context, token string) bool
	// ActiveSessionStats aggregates live sessions per user and per device class.
	ActiveSessionStats(ctx context.Context) Stats
	// Sweep removes every expired or inactive session and returns how many were removed.
	Sweep(ctx context.Context) int
}

// Stats is a point-in-time count of live sessions.
type Stats struct {
	Total    int                        `json:"total"`
	ByUser   map[string]int             `json:"by_user"`
	ByDevice map[domain.DeviceClass]int `json:"by_device"`
}
