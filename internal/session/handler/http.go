package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ai-prompt-generator/admin/internal/audit"
	auditdomain "ai-prompt-generator/admin/internal/audit/domain"
	"ai-prompt-generator/admin/internal/server/middleware"
	"ai-prompt-generator/admin/internal/session/domain"
	sessionrepo "ai-prompt-generator/admin/internal/session/repository"
)

// Store is the part of the session store the admin endpoints read and mutate.
type Store interface {
	GetUserSessions(ctx context.Context, userID string) []*domain.Session
	DeleteSession(ctx context.Context, sessionID string) bool
	ActiveSessionStats(ctx context.Context) sessionrepo.Stats
	LoginHistory(ctx context.Context, userID string) []domain.LoginRecord
	DetectSuspiciousActivity(ctx context.Context, userID string) bool
}

// SessionView is the JSON form of a session.
type SessionView struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	Device       string    `json:"device"`
	Current      bool      `json:"current"`
}

// LoginAttemptView is the JSON form of a login record.
type LoginAttemptView struct {
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"user_agent"`
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// SuspiciousResponse is returned by the suspicious-activity endpoint.
type SuspiciousResponse struct {
	UserID         string             `json:"user_id"`
	Suspicious     bool               `json:"suspicious"`
	RecentAttempts []LoginAttemptView `json:"recent_attempts"`
}

// Handler serves the session administration endpoints.
type Handler struct {
	store       Store
	auditLogger audit.AuditLogger
}

// NewHandler returns a session Handler. auditLogger may be nil.
func NewHandler(store Store, auditLogger audit.AuditLogger) *Handler {
	return &Handler{store: store, auditLogger: auditLogger}
}

// ListSessions handles GET /admin/api/sessions. Without ?user_id= it lists the caller's own sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) error {
	id, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return nil
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = id.UserID
	}
	list := h.store.GetUserSessions(r.Context(), userID)
	out := make([]SessionView, len(list))
	for i, s := range list {
		out[i] = toView(s, id.SessionID)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"sessions": out,
	})
	return nil
}

// RevokeSession handles DELETE /admin/api/sessions/{id}.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) error {
	id, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return nil
	}
	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeBadRequest, "session id required")
		return nil
	}
	if !h.store.DeleteSession(r.Context(), sessionID) {
		middleware.WriteError(w, http.StatusNotFound, middleware.CodeNotFound, "session not found")
		return nil
	}
	if h.auditLogger != nil {
		h.auditLogger.LogEvent(r.Context(), auditdomain.AuditLog{
			UserID:    id.UserID,
			SessionID: sessionID,
			Action:    "revoke",
			Resource:  "session",
			Outcome:   auditdomain.OutcomeSuccess,
		})
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Stats handles GET /admin/api/sessions/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) error {
	middleware.WriteJSON(w, http.StatusOK, h.store.ActiveSessionStats(r.Context()))
	return nil
}

// Suspicious handles GET /admin/api/security/suspicious/{userID}.
func (h *Handler) Suspicious(w http.ResponseWriter, r *http.Request) error {
	userID := mux.Vars(r)["userID"]
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeBadRequest, "user id required")
		return nil
	}
	cutoff := time.Now().UTC().Add(-sessionrepo.SuspiciousWindow)
	recent := make([]LoginAttemptView, 0)
	for _, rec := range h.store.LoginHistory(r.Context(), userID) {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		recent = append(recent, LoginAttemptView{
			IPAddress:     rec.IPAddress,
			UserAgent:     rec.UserAgent,
			Timestamp:     rec.Timestamp,
			Success:       rec.Success,
			FailureReason: rec.FailureReason,
		})
	}
	middleware.WriteJSON(w, http.StatusOK, SuspiciousResponse{
		UserID:         userID,
		Suspicious:     h.store.DetectSuspiciousActivity(r.Context(), userID),
		RecentAttempts: recent,
	})
	return nil
}

func toView(s *domain.Session, currentID string) SessionView {
	return SessionView{
		ID:           s.ID,
		UserID:       s.UserID,
		Username:     s.Username,
		Role:         string(s.Role),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		ExpiresAt:    s.ExpiresAt,
		IPAddress:    s.IPAddress,
		UserAgent:    s.UserAgent,
		Device:       string(s.DeviceInfo),
		Current:      currentID != "" && s.ID == currentID,
	}
}
