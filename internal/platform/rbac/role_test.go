package rbac

import (
	"errors"
	"testing"
)

type testSubject struct {
	role  Role
	perms PermissionSet
}

func (s testSubject) AssignedRole() Role    { return s.role }
func (s testSubject) Grants() PermissionSet { return s.perms }

func subjectFor(r Role) testSubject {
	return testSubject{role: r, perms: PermissionsForRole(r)}
}

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}
	if got, err := ParseRole(" Admin "); err != nil || got != RoleAdmin {
		t.Errorf("ParseRole should normalize case and space, got %q, %v", got, err)
	}
	if _, err := ParseRole("owner"); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("ParseRole(owner): want ErrUnknownRole, got %v", err)
	}
}

func TestRole_IsAdmin(t *testing.T) {
	tests := map[Role]bool{
		RoleSuperAdmin: true,
		RoleAdmin:      true,
		RoleEditor:     false,
		RoleViewer:     false,
		Role("ghost"):  false,
	}
	for r, want := range tests {
		if got := r.IsAdmin(); got != want {
			t.Errorf("%q.IsAdmin() = %v, want %v", r, got, want)
		}
	}
}

func TestPermissionsForRole(t *testing.T) {
	admin := PermissionsForRole(RoleAdmin)
	if admin.Has(PermSystemConfig) || admin.Has(PermSecurityWrite) || admin.Has(PermSuperAdmin) {
		t.Errorf("admin set %v must exclude system:config, security:write and the wildcard", admin)
	}
	if admin.Len() != 13 {
		t.Errorf("admin permission count = %d, want 13", admin.Len())
	}
	editor := PermissionsForRole(RoleEditor)
	want := NewPermissionSet(PermTemplateRead, PermTemplateWrite, PermTemplatePublish, PermAPIRead, PermSystemRead)
	if editor != want {
		t.Errorf("editor = %v, want %v", editor, want)
	}
	viewer := PermissionsForRole(RoleViewer)
	if viewer != NewPermissionSet(PermTemplateRead, PermSystemRead, PermAPIRead) {
		t.Errorf("viewer = %v", viewer)
	}
	if !PermissionsForRole(RoleSuperAdmin).Has(PermSuperAdmin) {
		t.Error("super_admin must hold the wildcard")
	}
	if PermissionsForRole(Role("ghost")) != 0 {
		t.Error("unknown role must map to the empty set")
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		subject  Subject
		required []Permission
		want     bool
	}{
		{"super admin passes anything", subjectFor(RoleSuperAdmin), []Permission{PermSystemConfig, PermSecurityWrite}, true},
		{"wildcard alone passes", testSubject{perms: NewPermissionSet(PermSuperAdmin)}, []Permission{PermUserDelete}, true},
		{"editor holds template write", subjectFor(RoleEditor), []Permission{PermTemplateWrite}, true},
		{"editor lacks user read", subjectFor(RoleEditor), []Permission{PermTemplateWrite, PermUserRead}, false},
		{"admin lacks system config", subjectFor(RoleAdmin), []Permission{PermSystemConfig}, false},
		{"empty requirement", subjectFor(RoleViewer), nil, true},
		{"nil subject", nil, nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasPermission(tc.subject, tc.required...); got != tc.want {
				t.Errorf("HasPermission = %v, want %v", got, tc.want)
			}
		})
	}
}
