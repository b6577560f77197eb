package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeAuthenticationFailed    = "AUTHENTICATION_FAILED"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeRouteAccessDenied       = "ROUTE_ACCESS_DENIED"
	CodeUserInfoUnavailable     = "USER_INFO_UNAVAILABLE"
	CodeInternalServerError     = "INTERNAL_SERVER_ERROR"
	CodeRateLimited             = "RATE_LIMITED"
	CodeBadRequest              = "BAD_REQUEST"
	CodeNotFound                = "NOT_FOUND"
)

// WWWAuthenticate is sent with every 401.
const WWWAuthenticate = `Bearer realm="Admin API"`

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// WriteError writes a structured error. 401 responses also carry the WWW-Authenticate challenge.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", WWWAuthenticate)
	}
	WriteJSON(w, status, ErrorBody{
		Error:     message,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("middleware: encode response", "error", err)
	}
}
