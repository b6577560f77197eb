// Package rbac holds the closed permission catalog, the static role tables, and
// the route permission map used to authorize admin requests.
package rbac

import (
	"errors"
	"math/bits"
	"strings"
)

// ErrUnknownPermission is returned when a permission name is not in the catalog.
var ErrUnknownPermission = errors.New("unknown permission")

// Permission is a single capability atom. Each value is one bit so sets of
// permissions fit in a PermissionSet.
type Permission uint32

const (
	PermSystemRead Permission = 1 << iota
	PermSystemWrite
	PermSystemConfig
	PermTemplateRead
	PermTemplateWrite
	PermTemplateDelete
	PermTemplatePublish
	PermUserRead
	PermUserWrite
	PermUserDelete
	PermAPIRead
	PermAPIWrite
	PermSecurityRead
	PermSecurityWrite
	PermSecurityAudit

	// PermSuperAdmin is the wildcard; holding it satisfies every check.
	PermSuperAdmin
)

var permissionNames = map[Permission]string{
	PermSystemRead:      "system:read",
	PermSystemWrite:     "system:write",
	PermSystemConfig:    "system:config",
	PermTemplateRead:    "template:read",
	PermTemplateWrite:   "template:write",
	PermTemplateDelete:  "template:delete",
	PermTemplatePublish: "template:publish",
	PermUserRead:        "user:read",
	PermUserWrite:       "user:write",
	PermUserDelete:      "user:delete",
	PermAPIRead:         "api:read",
	PermAPIWrite:        "api:write",
	PermSecurityRead:    "security:read",
	PermSecurityWrite:   "security:write",
	PermSecurityAudit:   "security:audit",
	PermSuperAdmin:      "*",
}

var permissionsByName = func() map[string]Permission {
	m := make(map[string]Permission, len(permissionNames))
	for p, name := range permissionNames {
		m[name] = p
	}
	return m
}()

// Catalog lists every permission in bit order, wildcard last.
func Catalog() []Permission {
	out := make([]Permission, 0, len(permissionNames))
	for p := PermSystemRead; p <= PermSuperAdmin; p <<= 1 {
		out = append(out, p)
	}
	return out
}

// String returns the wire name of p (e.g. "template:write"), or "" for values outside the catalog.
func (p Permission) String() string {
	return permissionNames[p]
}

// ParsePermission maps a wire name to its Permission.
func ParsePermission(name string) (Permission, error) {
	p, ok := permissionsByName[strings.TrimSpace(name)]
	if !ok {
		return 0, ErrUnknownPermission
	}
	return p, nil
}

// PermissionSet is a bitset of permissions.
type PermissionSet uint32

// NewPermissionSet returns the set holding perms.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s |= PermissionSet(p)
	}
	return s
}

// Has reports whether p is in s. The wildcard is not expanded here; use HasPermission for checks.
func (s PermissionSet) Has(p Permission) bool {
	return p != 0 && s&PermissionSet(p) == PermissionSet(p)
}

// Union returns s ∪ o.
func (s PermissionSet) Union(o PermissionSet) PermissionSet { return s | o }

// Intersect returns s ∩ o.
func (s PermissionSet) Intersect(o PermissionSet) PermissionSet { return s & o }

// Len returns the number of permissions in s.
func (s PermissionSet) Len() int { return bits.OnesCount32(uint32(s)) }

// Permissions returns the members of s in catalog order.
func (s PermissionSet) Permissions() []Permission {
	out := make([]Permission, 0, s.Len())
	for _, p := range Catalog() {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Strings returns the wire names of s in catalog order.
func (s PermissionSet) Strings() []string {
	perms := s.Permissions()
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = p.String()
	}
	return out
}

// String joins the wire names with commas; used for the X-User-Permissions header.
func (s PermissionSet) String() string {
	return strings.Join(s.Strings(), ",")
}

// ParsePermissionSet parses wire names into a set. Unknown names fail the whole parse
// so a token cannot smuggle a capability the catalog does not define.
func ParsePermissionSet(names []string) (PermissionSet, error) {
	var s PermissionSet
	for _, n := range names {
		p, err := ParsePermission(n)
		if err != nil {
			return 0, err
		}
		s |= PermissionSet(p)
	}
	return s, nil
}
