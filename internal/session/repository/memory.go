package repository

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	identitydomain "ai-prompt-generator/admin/internal/identity/domain"
	"ai-prompt-generator/admin/internal/security"
	"ai-prompt-generator/admin/internal/session/domain"
)

const (
	// SuspiciousWindow is the trailing window inspected by DetectSuspiciousActivity.
	SuspiciousWindow = 15 * time.Minute
	// SuspiciousFailureThreshold is the failed-attempt count that flags a user.
	SuspiciousFailureThreshold = 5
	// SuspiciousIPThreshold is exceeded when more distinct IPs than this attempt a login.
	SuspiciousIPThreshold = 3

	shardCount = 64
)

var (
	// ErrNilIdentity is returned by CreateSession when no identity is given.
	ErrNilIdentity = errors.New("session: identity required")
	// ErrSessionIDCollision is returned if the random source produced an ID already in use.
	ErrSessionIDCollision = errors.New("session: generated id already in use")
)

// MemoryConfig configures a MemoryStore. Zero values select the defaults.
type MemoryConfig struct {
	// TTL is the session lifetime (default 24h).
	TTL time.Duration
	// MaxPerUser caps live sessions per user (default 3).
	MaxPerUser int
	// RevokedTTL is how long a revoked token hash is retained. It must be at least the
	// bearer token lifetime; entries are also dropped by Sweep once the token itself expires.
	RevokedTTL time.Duration
}

// userEntry is everything the store holds for one user. Guarded by its shard's mutex.
type userEntry struct {
	sessions map[string]*domain.Session
	history  *domain.LoginHistory
}

type shard struct {
	mu    sync.Mutex
	users map[string]*userEntry
}

// MemoryStore is an in-process Store. Each user hashes to one of 64 shards and all
// reads and writes of that user's sessions and login history happen under the
// shard mutex, so count-evict-insert in CreateSession is atomic per user.
// The id→user index has its own RWMutex; lock order is always shard then index.
type MemoryStore struct {
	ttl        time.Duration
	maxPerUser int

	shards [shardCount]shard

	indexMu sync.RWMutex
	index   map[string]string // session id -> user id

	revoked *expirable.LRU[string, time.Time] // token hash -> token expiry

	nowF  func() time.Time
	newID func() (string, error)
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultTTL
	}
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = domain.DefaultMaxPerUser
	}
	if cfg.RevokedTTL <= 0 {
		cfg.RevokedTTL = cfg.TTL
	}
	s := &MemoryStore{
		ttl:        cfg.TTL,
		maxPerUser: cfg.MaxPerUser,
		index:      make(map[string]string),
		revoked:    expirable.NewLRU[string, time.Time](0, nil, cfg.RevokedTTL),
		nowF:       func() time.Time { return time.Now().UTC() },
		newID:      security.NewSessionID,
	}
	for i := range s.shards {
		s.shards[i].users = make(map[string]*userEntry)
	}
	return s
}

func (s *MemoryStore) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.shards[h.Sum32()%shardCount]
}

// entry returns the user's entry, creating it if needed. Caller holds sh.mu.
func (sh *shard) entry(userID string) *userEntry {
	e, ok := sh.users[userID]
	if !ok {
		e = &userEntry{
			sessions: make(map[string]*domain.Session),
			history:  domain.NewLoginHistory(domain.LoginHistoryCap),
		}
		sh.users[userID] = e
	}
	return e
}

func (s *MemoryStore) lookupOwner(sessionID string) (string, bool) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	userID, ok := s.index[sessionID]
	return userID, ok
}

// removeLocked drops a session from the user entry and the index. Caller holds the shard mutex.
func (s *MemoryStore) removeLocked(e *userEntry, sessionID string) {
	delete(e.sessions, sessionID)
	s.indexMu.Lock()
	delete(s.index, sessionID)
	s.indexMu.Unlock()
}

// revokeLinked blacklists the bearer token tied to sess unless it has already expired.
func (s *MemoryStore) revokeLinked(sess *domain.Session, now time.Time) {
	if sess.TokenHash == "" || !sess.TokenExpiresAt.After(now) {
		return
	}
	s.revoked.Add(sess.TokenHash, sess.TokenExpiresAt)
}

// purgeLocked removes the user's non-live sessions. Caller holds the shard mutex.
func (s *MemoryStore) purgeLocked(e *userEntry, now time.Time) int {
	n := 0
	for id, sess := range e.sessions {
		if !sess.Live(now) {
			s.removeLocked(e, id)
			n++
		}
	}
	return n
}

// CreateSession implements Store.
func (s *MemoryStore) CreateSession(ctx context.Context, identity *identitydomain.Identity, meta domain.RequestMeta) (*domain.Session, error) {
	if identity == nil || identity.UserID == "" {
		return nil, ErrNilIdentity
	}
	id, err := s.newID()
	if err != nil {
		return nil, err
	}
	sh := s.shardFor(identity.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.nowF()
	e := sh.entry(identity.UserID)
	s.purgeLocked(e, now)
	for len(e.sessions) >= s.maxPerUser {
		victim := leastRecentlyActive(e.sessions)
		s.revokeLinked(e.sessions[victim], now)
		s.removeLocked(e, victim)
	}

	sess := &domain.Session{
		ID:           id,
		UserID:       identity.UserID,
		Username:     identity.Username,
		Role:         identity.Role,
		CreatedAt:    now,
		LastActivity: now,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		DeviceInfo:   domain.ClassifyDevice(meta.UserAgent),
		IsActive:     true,
		ExpiresAt:    now.Add(s.ttl),
	}
	s.indexMu.Lock()
	if _, taken := s.index[id]; taken {
		s.indexMu.Unlock()
		return nil, ErrSessionIDCollision
	}
	s.index[id] = identity.UserID
	s.indexMu.Unlock()
	e.sessions[id] = sess

	e.history.Append(domain.LoginRecord{
		UserID:    identity.UserID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Timestamp: now,
		Success:   true,
	})
	return sess.Clone(), nil
}

// leastRecentlyActive returns the id with the oldest LastActivity. Ties go to the oldest CreatedAt.
func leastRecentlyActive(sessions map[string]*domain.Session) string {
	var victim *domain.Session
	for _, sess := range sessions {
		if victim == nil ||
			sess.LastActivity.Before(victim.LastActivity) ||
			(sess.LastActivity.Equal(victim.LastActivity) && sess.CreatedAt.Before(victim.CreatedAt)) {
			victim = sess
		}
	}
	return victim.ID
}

// GetSession implements Store.
func (s *MemoryStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, bool) {
	if sessionID == "" {
		return nil, false
	}
	userID, ok := s.lookupOwner(sessionID)
	if !ok {
		return nil, false
	}
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.users[userID]
	if !ok {
		return nil, false
	}
	sess, ok := e.sessions[sessionID]
	if !ok {
		return nil, false
	}
	now := s.nowF()
	if !sess.Live(now) {
		s.removeLocked(e, sessionID)
		return nil, false
	}
	sess.LastActivity = now
	return sess.Clone(), true
}

// DeleteSession implements Store.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) bool {
	userID, ok := s.lookupOwner(sessionID)
	if !ok {
		return false
	}
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.users[userID]
	if !ok {
		return false
	}
	sess, ok := e.sessions[sessionID]
	if !ok {
		return false
	}
	s.revokeLinked(sess, s.nowF())
	s.removeLocked(e, sessionID)
	return true
}

// LinkToken implements Store.
func (s *MemoryStore) LinkToken(ctx context.Context, sessionID, token string, expiresAt time.Time) bool {
	if token == "" {
		return false
	}
	userID, ok := s.lookupOwner(sessionID)
	if !ok {
		return false
	}
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.users[userID]
	if !ok {
		return false
	}
	sess, ok := e.sessions[sessionID]
	if !ok || !sess.Live(s.nowF()) {
		return false
	}
	sess.TokenHash = security.HashToken(token)
	sess.TokenExpiresAt = expiresAt
	return true
}

// GetUserSessions implements Store. Sessions are returned oldest first.
func (s *MemoryStore) GetUserSessions(ctx context.Context, userID string) []*domain.Session {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.users[userID]
	if !ok {
		return nil
	}
	s.purgeLocked(e, s.nowF())
	out := make([]*domain.Session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// RecordLoginAttempt implements Store. A zero Timestamp is set to now.
func (s *MemoryStore) RecordLoginAttempt(ctx context.Context, rec domain.LoginRecord) {
	if rec.UserID == "" {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.nowF()
	}
	sh := s.shardFor(rec.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entry(rec.UserID).history.Append(rec)
}

// LoginHistory implements Store.
func (s *MemoryStore) LoginHistory(ctx context.Context, userID string) []domain.LoginRecord {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.users[userID]
	if !ok {
		return nil
	}
	return e.history.Records()
}

// DetectSuspiciousActivity implements Store. Within the trailing 15 minutes (inclusive),
// five or more failures, or attempts from more than three distinct IPs, flag the user.
func (s *MemoryStore) DetectSuspiciousActivity(ctx context.Context, userID string) bool {
	records := s.LoginHistory(ctx, userID)
	if len(records) == 0 {
		return false
	}
	now := s.nowF()
	failures := 0
	ips := make(map[string]struct{})
	for _, rec := range records {
		if now.Sub(rec.Timestamp) > SuspiciousWindow {
			continue
		}
		if !rec.Success {
			failures++
		}
		if rec.IPAddress != "" {
			ips[rec.IPAddress] = struct{}{}
		}
	}
	return failures >= SuspiciousFailureThreshold || len(ips) > SuspiciousIPThreshold
}

// BlacklistToken implements Store. A zero expiresAt keeps the hash for the full RevokedTTL.
func (s *MemoryStore) BlacklistToken(ctx context.Context, token string, expiresAt time.Time) {
	if token == "" {
		return
	}
	s.revoked.Add(security.HashToken(token), expiresAt)
}

// IsTokenBlacklisted implements Store.
func (s *MemoryStore) IsTokenBlacklisted(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	return s.revoked.Contains(security.HashToken(token))
}

// ActiveSessionStats implements Store. It reads without evicting.
func (s *MemoryStore) ActiveSessionStats(ctx context.Context) Stats {
	stats := Stats{
		ByUser:   make(map[string]int),
		ByDevice: make(map[domain.DeviceClass]int),
	}
	now := s.nowF()
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for userID, e := range sh.users {
			for _, sess := range e.sessions {
				if !sess.Live(now) {
					continue
				}
				stats.Total++
				stats.ByUser[userID]++
				stats.ByDevice[sess.DeviceInfo]++
			}
		}
		sh.mu.Unlock()
	}
	return stats
}

// idle reports whether e holds no sessions and no login attempt inside the suspicious window.
func idle(e *userEntry, now time.Time) bool {
	if len(e.sessions) > 0 {
		return false
	}
	last, ok := e.history.Last()
	return !ok || now.Sub(last.Timestamp) > SuspiciousWindow
}

// Sweep implements Store. It drops users left with no sessions and no recent login
// attempts, and revoked-token entries whose token has expired.
func (s *MemoryStore) Sweep(ctx context.Context) int {
	now := s.nowF()
	removed := 0
	for i := range s.shards {
		if ctx.Err() != nil {
			return removed
		}
		sh := &s.shards[i]
		sh.mu.Lock()
		for userID, e := range sh.users {
			removed += s.purgeLocked(e, now)
			if idle(e, now) {
				delete(sh.users, userID)
			}
		}
		sh.mu.Unlock()
	}
	for _, hash := range s.revoked.Keys() {
		exp, ok := s.revoked.Peek(hash)
		if ok && !exp.IsZero() && !exp.After(now) {
			s.revoked.Remove(hash)
		}
	}
	return removed
}

// TTL returns the lifetime given to new sessions.
func (s *MemoryStore) TTL() time.Duration { return s.ttl }

// SessionCount returns the number of stored sessions, live or not yet purged. Diagnostic accessor.
func (s *MemoryStore) SessionCount() int {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return len(s.index)
}

// RevokedCount returns the number of retained revoked-token hashes. Diagnostic accessor.
func (s *MemoryStore) RevokedCount() int {
	return s.revoked.Len()
}

// SetClock replaces the store clock. Test accessor.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.nowF = now
}
