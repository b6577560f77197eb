package handler

import (
	"net/http"
	"strconv"

	"ai-prompt-generator/admin/internal/audit/domain"
	auditrepo "ai-prompt-generator/admin/internal/audit/repository"
	"ai-prompt-generator/admin/internal/server/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Handler serves the audit log query endpoint.
type Handler struct {
	repo auditrepo.Repository
}

// NewHandler returns an audit Handler reading from repo.
func NewHandler(repo auditrepo.Repository) *Handler {
	return &Handler{repo: repo}
}

// ListAuditLogs handles GET /admin/api/security/audit. Query parameters limit,
// user_id, action and resource narrow the result; entries are newest first.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	limit := defaultPageSize
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.CodeBadRequest, "limit must be a positive integer")
			return nil
		}
		limit = n
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	logs, err := h.repo.ListRecent(r.Context(), limit, q.Get("user_id"), q.Get("action"), q.Get("resource"))
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs": logs,
	})
	return nil
}
