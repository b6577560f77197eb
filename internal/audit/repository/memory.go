package repository

import (
	"context"
	"errors"
	"sync"

	"ai-prompt-generator/admin/internal/audit/domain"
)

// DefaultMemoryCapacity is the number of entries MemoryRepository keeps when none is configured.
const DefaultMemoryCapacity = 1000

// ErrNilEntry is returned by Create for a nil entry.
var ErrNilEntry = errors.New("audit: nil entry")

// MemoryRepository keeps the most recent audit entries in a ring. Older entries are
// dropped; long-term retention is the OTel log pipeline's job.
type MemoryRepository struct {
	mu   sync.RWMutex
	buf  []*domain.AuditLog
	next int
	full bool
}

// NewMemoryRepository returns a MemoryRepository holding at most capacity entries.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryRepository{buf: make([]*domain.AuditLog, capacity)}
}

// Create implements Repository. The entry is copied.
func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	if a == nil {
		return ErrNilEntry
	}
	cp := *a
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = &cp
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// ListRecent implements Repository.
func (r *MemoryRepository) ListRecent(ctx context.Context, limit int, userID, action, resource string) ([]*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.next
	if r.full {
		n = len(r.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*domain.AuditLog, 0, limit)
	for i := 0; i < n && len(out) < limit; i++ {
		idx := (r.next - 1 - i + len(r.buf)) % len(r.buf)
		e := r.buf[idx]
		if userID != "" && e.UserID != userID {
			continue
		}
		if action != "" && e.Action != action {
			continue
		}
		if resource != "" && e.Resource != resource {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
