package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an admin API route.
type ActionResource struct {
	Action   string
	Resource string
}

const apiPrefix = "/admin/api/"

// Route overrides: audit as login, logout and revoke rather than the generic verb.
var routeOverrides = map[string]ActionResource{
	"POST /admin/api/auth/login":      {Action: "login", Resource: "auth"},
	"POST /admin/api/auth/logout":     {Action: "logout", Resource: "auth"},
	"DELETE /admin/api/sessions/{id}": {Action: "revoke", Resource: "session"},
	"GET /admin/api/security/audit":   {Action: "list", Resource: "audit"},
}

// ParseRoute returns action and resource for a method and route template (e.g. GET /admin/api/users/{id}).
// Resource is the singular of the first path segment after /admin/api/ (users -> user).
// Action is the last static segment when the route has one beyond the resource (sessions/stats -> stats);
// otherwise it follows the method: get or list, create, update, delete.
func ParseRoute(method, template string) ActionResource {
	method = strings.ToUpper(method)
	if ar, ok := routeOverrides[method+" "+template]; ok {
		return ar
	}
	if !strings.HasPrefix(template, apiPrefix) {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	segs := strings.Split(strings.Trim(strings.TrimPrefix(template, apiPrefix), "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	resource := singular(segs[0])
	last := ""
	for _, s := range segs[1:] {
		if !isParam(s) {
			last = s
		}
	}
	if last != "" {
		return ActionResource{Action: last, Resource: resource}
	}
	return ActionResource{Action: methodToAction(method, isParam(segs[len(segs)-1])), Resource: resource}
}

func isParam(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func singular(s string) string {
	if strings.HasSuffix(s, "ies") {
		return strings.TrimSuffix(s, "ies") + "y"
	}
	if strings.HasSuffix(s, "ss") {
		return s
	}
	return strings.TrimSuffix(s, "s")
}

func methodToAction(method string, byID bool) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		if byID {
			return "get"
		}
		return "list"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
