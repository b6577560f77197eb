package domain

import "ai-prompt-generator/admin/internal/platform/rbac"

// Identity is the caller resolved from a bearer token or a session cookie.
// Both credential paths produce this same shape.
type Identity struct {
	UserID      string
	Username    string
	Role        rbac.Role
	Permissions rbac.PermissionSet
	SessionID   string // empty for bearer tokens
	Method      AuthMethod
}

// AuthMethod records which credential produced an Identity.
type AuthMethod string

const (
	AuthMethodBearer  AuthMethod = "bearer"
	AuthMethodSession AuthMethod = "session"
)

// AssignedRole implements rbac.Subject.
func (i *Identity) AssignedRole() rbac.Role {
	if i == nil {
		return ""
	}
	return i.Role
}

// Grants implements rbac.Subject.
func (i *Identity) Grants() rbac.PermissionSet {
	if i == nil {
		return 0
	}
	return i.Permissions
}
