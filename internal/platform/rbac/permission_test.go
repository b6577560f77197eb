package rbac

import (
	"errors"
	"testing"
)

func TestCatalog_SizeAndOrder(t *testing.T) {
	cat := Catalog()
	if len(cat) != 16 {
		t.Fatalf("len(Catalog()) = %d, want 16", len(cat))
	}
	if cat[0] != PermSystemRead {
		t.Errorf("first = %v, want %v", cat[0], PermSystemRead)
	}
	if cat[len(cat)-1] != PermSuperAdmin {
		t.Errorf("last = %v, want %v", cat[len(cat)-1], PermSuperAdmin)
	}
	for _, p := range cat {
		if p.String() == "" {
			t.Errorf("permission %d has no name", uint32(p))
		}
	}
}

func TestParsePermission(t *testing.T) {
	for _, p := range Catalog() {
		got, err := ParsePermission(p.String())
		if err != nil {
			t.Fatalf("ParsePermission(%q): %v", p.String(), err)
		}
		if got != p {
			t.Errorf("ParsePermission(%q) = %v, want %v", p.String(), got, p)
		}
	}
	if _, err := ParsePermission("template:burn"); !errors.Is(err, ErrUnknownPermission) {
		t.Errorf("ParsePermission(unknown): want ErrUnknownPermission, got %v", err)
	}
}

func TestPermissionSet_Operations(t *testing.T) {
	a := NewPermissionSet(PermTemplateRead, PermTemplateWrite)
	b := NewPermissionSet(PermTemplateWrite, PermUserRead)

	if !a.Has(PermTemplateRead) || a.Has(PermUserRead) {
		t.Errorf("Has on %v is wrong", a)
	}
	if got := a.Union(b).Len(); got != 3 {
		t.Errorf("Union len = %d, want 3", got)
	}
	if got := a.Intersect(b); got != NewPermissionSet(PermTemplateWrite) {
		t.Errorf("Intersect = %v, want template:write", got)
	}
	if a.Has(0) {
		t.Error("Has(0) should be false")
	}
}

func TestPermissionSet_StringsRoundTrip(t *testing.T) {
	s := NewPermissionSet(PermUserRead, PermSystemRead, PermSecurityAudit)
	names := s.Strings()
	want := []string{"system:read", "user:read", "security:audit"}
	if len(names) != len(want) {
		t.Fatalf("Strings() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Strings()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if got := s.String(); got != "system:read,user:read,security:audit" {
		t.Errorf("String() = %q", got)
	}
	parsed, err := ParsePermissionSet(names)
	if err != nil {
		t.Fatalf("ParsePermissionSet: %v", err)
	}
	if parsed != s {
		t.Errorf("ParsePermissionSet = %v, want %v", parsed, s)
	}
}

func TestParsePermissionSet_UnknownFailsWhole(t *testing.T) {
	if _, err := ParsePermissionSet([]string{"user:read", "root"}); !errors.Is(err, ErrUnknownPermission) {
		t.Errorf("want ErrUnknownPermission, got %v", err)
	}
}
