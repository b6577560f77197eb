package handler

import (
	"net/http"
	"time"

	"ai-prompt-generator/admin/internal/server/middleware"
)

// Response is the body of GET /health.
type Response struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	SessionsStored int    `json:"sessions_stored"`
}

// Handler serves the unauthenticated liveness probe.
type Handler struct {
	started  time.Time
	sessions func() int
}

// NewHandler returns a health Handler. sessions reports the current stored session count and may be nil.
func NewHandler(sessions func() int) *Handler {
	return &Handler{started: time.Now(), sessions: sessions}
}

// Health handles GET /health for load balancers and Kubernetes probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	}
	if h.sessions != nil {
		resp.SessionsStored = h.sessions()
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}
