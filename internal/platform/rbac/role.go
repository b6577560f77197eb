package rbac

import (
	"errors"
	"strings"
)

// ErrUnknownRole is returned when a role name is not one of the four admin roles.
var ErrUnknownRole = errors.New("unknown role")

// Role is an admin panel role.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
)

// Roles lists every role, most privileged first.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleEditor, RoleViewer}
}

// ParseRole maps a role name to a Role.
func ParseRole(name string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := rolePermissions[r]; !ok {
		return "", ErrUnknownRole
	}
	return r, nil
}

// IsAdmin reports whether r meets the minimum role for the admin API (admin or super_admin).
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

var allPermissions = func() PermissionSet {
	var s PermissionSet
	for _, p := range Catalog() {
		s |= PermissionSet(p)
	}
	return s
}()

// rolePermissions is read-only after package init.
var rolePermissions = map[Role]PermissionSet{
	RoleSuperAdmin: allPermissions,
	RoleAdmin: NewPermissionSet(
		PermSystemRead, PermSystemWrite,
		PermTemplateRead, PermTemplateWrite, PermTemplateDelete, PermTemplatePublish,
		PermUserRead, PermUserWrite, PermUserDelete,
		PermAPIRead, PermAPIWrite,
		PermSecurityRead, PermSecurityAudit,
	),
	RoleEditor: NewPermissionSet(
		PermSystemRead,
		PermTemplateRead, PermTemplateWrite, PermTemplatePublish,
		PermAPIRead,
	),
	RoleViewer: NewPermissionSet(
		PermSystemRead,
		PermTemplateRead,
		PermAPIRead,
	),
}

// PermissionsForRole returns the static permission set for r; unknown roles get the empty set.
func PermissionsForRole(r Role) PermissionSet {
	return rolePermissions[r]
}

// Subject is an authenticated caller: its role and the permissions resolved for it.
type Subject interface {
	AssignedRole() Role
	Grants() PermissionSet
}

// HasPermission reports whether subject may exercise every permission in required.
// The wildcard satisfies any requirement; otherwise all of required must be held.
func HasPermission(subject Subject, required ...Permission) bool {
	if subject == nil {
		return false
	}
	held := subject.Grants()
	if held.Has(PermSuperAdmin) {
		return true
	}
	for _, p := range required {
		if !held.Has(p) {
			return false
		}
	}
	return true
}
