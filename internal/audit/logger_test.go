package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ai-prompt-generator/admin/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListRecent(ctx context.Context, limit int, userID, action, resource string) ([]*domain.AuditLog, error) {
	return m.entries, nil
}

type mockEmitter struct {
	mu     sync.Mutex
	events []*domain.AuditLog
	done   chan struct{}
}

func (m *mockEmitter) Emit(ctx context.Context, event *domain.AuditLog) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	ipExtractor := func(ctx context.Context) string {
		return "192.168.1.1"
	}
	logger := NewLogger(repo, nil, ipExtractor, discardLogger())

	logger.LogEvent(context.Background(), domain.AuditLog{
		UserID:   "user-1",
		Action:   "login",
		Resource: "auth",
		Metadata: "meta",
	})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.ID == "" {
		t.Error("id should be generated")
	}
	if entry.Outcome != domain.OutcomeSuccess {
		t.Errorf("outcome = %q, want %q", entry.Outcome, domain.OutcomeSuccess)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestLogger_LogEvent_KeepsGivenFields(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil, nil, discardLogger())
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	logger.LogEvent(context.Background(), domain.AuditLog{
		ID:        "fixed",
		Action:    "revoke",
		Outcome:   domain.OutcomeDenied,
		IP:        "10.0.0.9",
		CreatedAt: at,
	})

	entry := repo.entries[0]
	if entry.ID != "fixed" || entry.IP != "10.0.0.9" || entry.Outcome != domain.OutcomeDenied || !entry.CreatedAt.Equal(at) {
		t.Errorf("entry = %+v", entry)
	}
}

func TestLogger_LogEvent_NoIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil, nil, discardLogger())
	logger.LogEvent(context.Background(), domain.AuditLog{Action: "logout"})
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "unknown")
	}
}

func TestLogger_LogEvent_RepoError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("full")}
	logger := NewLogger(repo, nil, nil, discardLogger())
	logger.LogEvent(context.Background(), domain.AuditLog{Action: "login"})
	if len(repo.entries) != 0 {
		t.Errorf("expected no entries, got %d", len(repo.entries))
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	logger := NewLogger(nil, nil, nil, nil)
	logger.LogEvent(context.Background(), domain.AuditLog{Action: "login"})
}

func TestLogger_LogEvent_Emits(t *testing.T) {
	em := &mockEmitter{done: make(chan struct{}, 1)}
	logger := NewLogger(nil, em, nil, discardLogger())
	logger.LogEvent(context.Background(), domain.AuditLog{Action: "login", UserID: "user-1"})

	select {
	case <-em.done:
	case <-time.After(time.Second):
		t.Fatal("emitter not called")
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 1 || em.events[0].UserID != "user-1" {
		t.Errorf("events = %+v", em.events)
	}
}
