package rbac

import "strings"

// RouteTable maps "METHOD:/path" or bare "/path" keys to the permissions a route requires.
type RouteTable map[string]PermissionSet

// DefaultRoutes is the admin API route table. Anything not listed here falls back
// to requiring an admin or super_admin role.
var DefaultRoutes = RouteTable{
	"GET:/admin/api/templates":                    NewPermissionSet(PermTemplateRead),
	"POST:/admin/api/templates":                   NewPermissionSet(PermTemplateWrite),
	"PUT:/admin/api/templates/{id}":               NewPermissionSet(PermTemplateWrite),
	"DELETE:/admin/api/templates/{id}":            NewPermissionSet(PermTemplateDelete),
	"POST:/admin/api/templates/{id}/publish":      NewPermissionSet(PermTemplatePublish),
	"GET:/admin/api/users":                        NewPermissionSet(PermUserRead),
	"POST:/admin/api/users":                       NewPermissionSet(PermUserWrite),
	"PUT:/admin/api/users/{id}":                   NewPermissionSet(PermUserWrite),
	"DELETE:/admin/api/users/{id}":                NewPermissionSet(PermUserDelete),
	"GET:/admin/api/sessions":                     NewPermissionSet(PermUserRead),
	"DELETE:/admin/api/sessions/{id}":             NewPermissionSet(PermSecurityWrite),
	"GET:/admin/api/sessions/stats":               NewPermissionSet(PermSecurityRead),
	"GET:/admin/api/security/suspicious/{userID}": NewPermissionSet(PermSecurityAudit),
	"GET:/admin/api/security/audit":               NewPermissionSet(PermSecurityAudit),
	"/admin/api/security":                         NewPermissionSet(PermSecurityRead),
	"GET:/admin/api/system":                       NewPermissionSet(PermSystemRead),
	"PUT:/admin/api/system":                       NewPermissionSet(PermSystemWrite),
	"PUT:/admin/api/system/config":                NewPermissionSet(PermSystemConfig),
	"GET:/admin/api/keys":                         NewPermissionSet(PermAPIRead),
	"POST:/admin/api/keys":                        NewPermissionSet(PermAPIWrite),
	"/admin/api/auth/me":                          0,
	"/admin/api/auth/logout":                      0,
}

// RouteAuthorizer resolves the permissions a (method, path) pair requires.
// The table is never mutated after construction, so lookups take no lock.
type RouteAuthorizer struct {
	routes RouteTable
}

// NewRouteAuthorizer returns a RouteAuthorizer over a copy of routes. A nil table uses DefaultRoutes.
func NewRouteAuthorizer(routes RouteTable) *RouteAuthorizer {
	if routes == nil {
		routes = DefaultRoutes
	}
	cp := make(RouteTable, len(routes))
	for k, v := range routes {
		cp[normalizeKey(k)] = v
	}
	return &RouteAuthorizer{routes: cp}
}

// Required returns the permissions mapped for method and path and whether any entry matched.
// The exact "METHOD:path" key wins over the bare path key. path may be a concrete URL path
// or a router path template such as "/admin/api/sessions/{id}".
func (a *RouteAuthorizer) Required(method, path string) (PermissionSet, bool) {
	path = normalizePath(path)
	if perms, ok := a.routes[strings.ToUpper(method)+":"+path]; ok {
		return perms, true
	}
	if perms, ok := a.routes[path]; ok {
		return perms, true
	}
	return 0, false
}

// CheckRoutePermission reports whether subject may call method on path. Unmapped routes
// are fail-closed: only admin and super_admin pass, regardless of fine-grained permissions.
func (a *RouteAuthorizer) CheckRoutePermission(method, path string, subject Subject) bool {
	if subject == nil {
		return false
	}
	required, ok := a.Required(method, path)
	if !ok {
		return subject.AssignedRole().IsAdmin()
	}
	return HasPermission(subject, required.Permissions()...)
}

func normalizeKey(k string) string {
	if i := strings.Index(k, ":"); i > 0 && !strings.HasPrefix(k, "/") {
		return strings.ToUpper(k[:i]) + ":" + normalizePath(k[i+1:])
	}
	return normalizePath(k)
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
