package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ai-prompt-generator/admin/internal/identity/service"
	"ai-prompt-generator/admin/internal/server/middleware"
)

// maxLoginBody caps the login request body.
const maxLoginBody = 4 << 10

// AuthService is the login/logout behaviour the handler needs. service.AuthService implements it.
type AuthService interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, in service.LogoutInput)
}

// LoginRequest is the body of POST /admin/api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionSummary is the client-visible part of a session.
type SessionSummary struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	Device    string    `json:"device"`
}

// LoginResponse is returned on a successful login. The session id is also set as a cookie.
type LoginResponse struct {
	Token          string         `json:"token"`
	TokenExpiresAt time.Time      `json:"token_expires_at"`
	UserID         string         `json:"user_id"`
	Username       string         `json:"username"`
	Role           string         `json:"role"`
	Permissions    []string       `json:"permissions"`
	Session        SessionSummary `json:"session"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Method      string   `json:"auth_method"`
	SessionID   string   `json:"session_id,omitempty"`
}

// AuthHandler serves the login, logout and me endpoints.
type AuthHandler struct {
	svc          AuthService
	secureCookie bool
	sessionTTL   time.Duration
}

// NewAuthHandler returns an AuthHandler. secureCookie sets the Secure flag on the session cookie.
func NewAuthHandler(svc AuthService, sessionTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, sessionTTL: sessionTTL, secureCookie: secureCookie}
}

// Login handles POST /admin/api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeBadRequest, "invalid request body")
		return nil
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeBadRequest, "username and password required")
		return nil
	}
	res, err := h.svc.Login(r.Context(), service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: middleware.ClientIPFromContext(r.Context()),
		UserAgent: r.UserAgent(),
	})
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.CodeAuthenticationFailed, "invalid credentials")
		return nil
	case errors.Is(err, service.ErrSuspiciousActivity):
		w.Header().Set("Retry-After", "900")
		middleware.WriteError(w, http.StatusTooManyRequests, middleware.CodeRateLimited, err.Error())
		return nil
	case err != nil:
		return err
	}

	http.SetCookie(w, h.sessionCookie(res.Session.ID, int(h.sessionTTL.Seconds())))
	middleware.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:          res.Token,
		TokenExpiresAt: res.TokenExpiresAt,
		UserID:         res.Identity.UserID,
		Username:       res.Identity.Username,
		Role:           string(res.Identity.Role),
		Permissions:    res.Identity.Permissions.Strings(),
		Session: SessionSummary{
			ID:        res.Session.ID,
			ExpiresAt: res.Session.ExpiresAt,
			Device:    string(res.Session.DeviceInfo),
		},
	})
	return nil
}

// Logout handles POST /admin/api/auth/logout. It deletes the cookie session and
// revokes the bearer token, whichever the request carries, and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	id, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return nil
	}
	in := service.LogoutInput{UserID: id.UserID, SessionID: id.SessionID}
	if id.SessionID == "" {
		if c, err := r.Cookie(middleware.SessionCookieName); err == nil {
			in.SessionID = c.Value
		}
	}
	in.BearerToken = middleware.ExtractBearer(r)
	h.svc.Logout(r.Context(), in)

	http.SetCookie(w, h.sessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Me handles GET /admin/api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) error {
	id, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return nil
	}
	middleware.WriteJSON(w, http.StatusOK, MeResponse{
		UserID:      id.UserID,
		Username:    id.Username,
		Role:        string(id.Role),
		Permissions: id.Permissions.Strings(),
		Method:      string(id.Method),
		SessionID:   id.SessionID,
	})
	return nil
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/admin",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}
