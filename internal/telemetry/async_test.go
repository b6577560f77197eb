package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ai-prompt-generator/admin/internal/audit/domain"
	"ai-prompt-generator/admin/internal/telemetry/metrics"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*domain.AuditLog
	emitErr error
	delay   time.Duration
	done    chan struct{}
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *domain.AuditLog) error {
	defer func() {
		if m.done != nil {
			m.done <- struct{}{}
		}
	}()
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*domain.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	EmitAsync(nil, &domain.AuditLog{Action: "login"})
}

func TestEmitAsync_NilEvent(t *testing.T) {
	em := &mockEventEmitter{}
	EmitAsync(em, nil)
	time.Sleep(10 * time.Millisecond)
	if n := len(em.getEvents()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestEmitAsync_Emits(t *testing.T) {
	em := &mockEventEmitter{done: make(chan struct{}, 1)}
	EmitAsync(em, &domain.AuditLog{Action: "login", UserID: "user-1"})

	select {
	case <-em.done:
	case <-time.After(time.Second):
		t.Fatal("emit did not run")
	}
	events := em.getEvents()
	if len(events) != 1 || events[0].UserID != "user-1" {
		t.Errorf("events = %+v", events)
	}
}

func TestEmitAsync_FailureCounted(t *testing.T) {
	counter := metrics.AuditEmitFailuresTotal.WithLabelValues("revoke")
	before := testutil.ToFloat64(counter)
	em := &mockEventEmitter{emitErr: errors.New("collector down"), done: make(chan struct{}, 1)}
	EmitAsync(em, &domain.AuditLog{Action: "revoke", Resource: "session"})
	select {
	case <-em.done:
	case <-time.After(time.Second):
		t.Fatal("emit did not run")
	}
	deadline := time.Now().Add(time.Second)
	for testutil.ToFloat64(counter) == before {
		if time.Now().After(deadline) {
			t.Fatal("audit_emit_failures_total was not incremented")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestActionLabel(t *testing.T) {
	if got := actionLabel(""); got != "unknown" {
		t.Errorf("actionLabel(\"\") = %q, want %q", got, "unknown")
	}
	if got := actionLabel("login"); got != "login" {
		t.Errorf("actionLabel(login) = %q, want %q", got, "login")
	}
}

func TestShutdownDrainDuration(t *testing.T) {
	if ShutdownDrainDuration < emitTimeout {
		t.Errorf("ShutdownDrainDuration = %v, must be >= %v", ShutdownDrainDuration, emitTimeout)
	}
}
