package repository

import (
	"context"
	"fmt"
	"testing"

	"ai-prompt-generator/admin/internal/audit/domain"
)

func TestMemoryRepository_CreateAndList(t *testing.T) {
	repo := NewMemoryRepository(10)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := repo.Create(ctx, &domain.AuditLog{ID: fmt.Sprintf("a%d", i), UserID: "user-1", Action: "login"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	list, err := repo.ListRecent(ctx, 0, "", "", "")
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].ID != "a2" || list[2].ID != "a0" {
		t.Errorf("order = %s..%s, want newest first", list[0].ID, list[2].ID)
	}
}

func TestMemoryRepository_Wraps(t *testing.T) {
	repo := NewMemoryRepository(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = repo.Create(ctx, &domain.AuditLog{ID: fmt.Sprintf("a%d", i)})
	}
	list, _ := repo.ListRecent(ctx, 10, "", "", "")
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"a4", "a3", "a2"} {
		if list[i].ID != want {
			t.Errorf("list[%d] = %q, want %q", i, list[i].ID, want)
		}
	}
}

func TestMemoryRepository_Filters(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	_ = repo.Create(ctx, &domain.AuditLog{ID: "1", UserID: "u1", Action: "login", Resource: "auth"})
	_ = repo.Create(ctx, &domain.AuditLog{ID: "2", UserID: "u2", Action: "login", Resource: "auth"})
	_ = repo.Create(ctx, &domain.AuditLog{ID: "3", UserID: "u1", Action: "revoke", Resource: "session"})

	list, _ := repo.ListRecent(ctx, 0, "u1", "", "")
	if len(list) != 2 {
		t.Errorf("by user: len = %d, want 2", len(list))
	}
	list, _ = repo.ListRecent(ctx, 0, "", "login", "")
	if len(list) != 2 {
		t.Errorf("by action: len = %d, want 2", len(list))
	}
	list, _ = repo.ListRecent(ctx, 0, "u1", "", "session")
	if len(list) != 1 || list[0].ID != "3" {
		t.Errorf("by user and resource = %+v", list)
	}
	list, _ = repo.ListRecent(ctx, 1, "", "", "")
	if len(list) != 1 || list[0].ID != "3" {
		t.Errorf("limit 1 = %+v", list)
	}
}

func TestMemoryRepository_NilEntry(t *testing.T) {
	if err := NewMemoryRepository(1).Create(context.Background(), nil); err != ErrNilEntry {
		t.Errorf("Create(nil): want ErrNilEntry, got %v", err)
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository(2)
	ctx := context.Background()
	entry := &domain.AuditLog{ID: "1", Action: "login"}
	_ = repo.Create(ctx, entry)
	entry.Action = "changed"
	list, _ := repo.ListRecent(ctx, 0, "", "", "")
	list[0].Action = "mutated"
	again, _ := repo.ListRecent(ctx, 0, "", "", "")
	if again[0].Action != "login" {
		t.Errorf("Action = %q, want %q", again[0].Action, "login")
	}
}
