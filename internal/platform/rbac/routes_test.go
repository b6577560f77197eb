package rbac

import "testing"

func TestRouteAuthorizer_Required(t *testing.T) {
	a := NewRouteAuthorizer(RouteTable{
		"GET:/x":   NewPermissionSet(PermUserRead),
		"/x":       NewPermissionSet(PermSecurityRead),
		"post:/y/": NewPermissionSet(PermUserWrite),
	})

	if got, ok := a.Required("GET", "/x"); !ok || got != NewPermissionSet(PermUserRead) {
		t.Errorf("GET /x = %v, %v; exact key should win", got, ok)
	}
	if got, ok := a.Required("DELETE", "/x"); !ok || got != NewPermissionSet(PermSecurityRead) {
		t.Errorf("DELETE /x = %v, %v; bare path should apply", got, ok)
	}
	if got, ok := a.Required("post", "/y"); !ok || got != NewPermissionSet(PermUserWrite) {
		t.Errorf("post /y = %v, %v; keys should be normalized", got, ok)
	}
	if _, ok := a.Required("GET", "/z"); ok {
		t.Error("unmapped route reported as mapped")
	}
}

func TestRouteAuthorizer_CheckRoutePermission(t *testing.T) {
	a := NewRouteAuthorizer(nil)
	tests := []struct {
		name    string
		method  string
		path    string
		subject Subject
		want    bool
	}{
		{"admin mapped route", "GET", "/admin/api/users", subjectFor(RoleAdmin), true},
		{"editor mapped route denied", "GET", "/admin/api/users", subjectFor(RoleEditor), false},
		{"editor template write", "POST", "/admin/api/templates", subjectFor(RoleEditor), true},
		{"trailing slash", "GET", "/admin/api/templates/", subjectFor(RoleViewer), true},
		{"templated path", "DELETE", "/admin/api/sessions/{id}", subjectFor(RoleAdmin), false},
		{"templated path super admin", "DELETE", "/admin/api/sessions/{id}", subjectFor(RoleSuperAdmin), true},
		{"bare path any method", "POST", "/admin/api/security", subjectFor(RoleAdmin), true},
		{"open route", "GET", "/admin/api/auth/me", subjectFor(RoleViewer), true},
		{"unmapped admin fallback", "GET", "/admin/api/reports", subjectFor(RoleAdmin), true},
		{"unmapped editor fallback", "GET", "/admin/api/reports", subjectFor(RoleEditor), false},
		{"unmapped wildcard non admin role", "GET", "/admin/api/reports", testSubject{role: RoleViewer, perms: NewPermissionSet(PermSuperAdmin)}, false},
		{"nil subject", "GET", "/admin/api/auth/me", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.CheckRoutePermission(tc.method, tc.path, tc.subject); got != tc.want {
				t.Errorf("CheckRoutePermission(%s %s) = %v, want %v", tc.method, tc.path, got, tc.want)
			}
		})
	}
}
