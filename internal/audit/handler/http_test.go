package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-prompt-generator/admin/internal/audit/domain"
	auditrepo "ai-prompt-generator/admin/internal/audit/repository"
)

type failingRepo struct{}

func (failingRepo) Create(ctx context.Context, a *domain.AuditLog) error { return nil }

func (failingRepo) ListRecent(ctx context.Context, limit int, userID, action, resource string) ([]*domain.AuditLog, error) {
	return nil, errors.New("unavailable")
}

func seeded(t *testing.T) *auditrepo.MemoryRepository {
	t.Helper()
	repo := auditrepo.NewMemoryRepository(0)
	ctx := context.Background()
	for _, e := range []domain.AuditLog{
		{ID: "1", UserID: "u1", Action: "login", Resource: "auth"},
		{ID: "2", UserID: "u2", Action: "login", Resource: "auth"},
		{ID: "3", UserID: "u1", Action: "revoke", Resource: "session"},
	} {
		e := e
		if err := repo.Create(ctx, &e); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	return repo
}

func list(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, []domain.AuditLog) {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := h.ListAuditLogs(rec, httptest.NewRequest(http.MethodGet, target, nil)); err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	var body struct {
		Logs []domain.AuditLog `json:"logs"`
	}
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return rec, body.Logs
}

func TestListAuditLogs_NewestFirst(t *testing.T) {
	_, logs := list(t, NewHandler(seeded(t)), "/admin/api/security/audit")
	if len(logs) != 3 {
		t.Fatalf("len = %d, want 3", len(logs))
	}
	if logs[0].ID != "3" || logs[2].ID != "1" {
		t.Errorf("order = %s,%s,%s, want 3,2,1", logs[0].ID, logs[1].ID, logs[2].ID)
	}
}

func TestListAuditLogs_Filters(t *testing.T) {
	h := NewHandler(seeded(t))
	if _, logs := list(t, h, "/admin/api/security/audit?user_id=u1"); len(logs) != 2 {
		t.Errorf("user filter len = %d, want 2", len(logs))
	}
	if _, logs := list(t, h, "/admin/api/security/audit?action=login&limit=1"); len(logs) != 1 || logs[0].ID != "2" {
		t.Errorf("action+limit = %+v, want entry 2", logs)
	}
	if _, logs := list(t, h, "/admin/api/security/audit?resource=billing"); logs == nil || len(logs) != 0 {
		t.Errorf("no-match = %v, want empty list", logs)
	}
}

func TestListAuditLogs_BadLimit(t *testing.T) {
	for _, q := range []string{"limit=0", "limit=-3", "limit=abc"} {
		rec, _ := list(t, NewHandler(seeded(t)), "/admin/api/security/audit?"+q)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestListAuditLogs_RepoError(t *testing.T) {
	h := NewHandler(failingRepo{})
	err := h.ListAuditLogs(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/api/security/audit", nil))
	if err == nil {
		t.Fatal("want repository error returned")
	}
}
