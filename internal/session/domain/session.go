package domain

import (
	"time"

	"ai-prompt-generator/admin/internal/platform/rbac"
)

const (
	// DefaultTTL is how long a session lives after creation.
	DefaultTTL = 24 * time.Hour
	// DefaultMaxPerUser is the number of live sessions a user may hold at once.
	DefaultMaxPerUser = 3
	// LoginHistoryCap bounds the per-user login history ring.
	LoginHistoryCap = 100
)

// Session is an interactive admin session dereferenced by the session cookie.
type Session struct {
	ID           string
	UserID       string
	Username     string
	Role         rbac.Role
	CreatedAt    time.Time
	LastActivity time.Time
	IPAddress    string
	UserAgent    string
	DeviceInfo   DeviceClass
	IsActive     bool
	ExpiresAt    time.Time

	// TokenHash is the hash of the bearer token issued alongside the session, if any.
	// Deleting or evicting the session revokes that token until TokenExpiresAt.
	TokenHash      string
	TokenExpiresAt time.Time
}

// Live reports whether s is active and unexpired at now. Always computed, never stored.
func (s *Session) Live(now time.Time) bool {
	return s != nil && s.IsActive && s.ExpiresAt.After(now)
}

// Clone returns a copy safe to hand to callers outside the store lock.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// RequestMeta is what the store records about the client that opened a session.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LoginRecord is one login attempt, successful or not.
type LoginRecord struct {
	UserID        string
	IPAddress     string
	UserAgent     string
	Timestamp     time.Time
	Success       bool
	FailureReason string
}
