package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"media-gallery/internal/database"
	"media-gallery/internal/logging"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "media_gallery_session"

type contextKey string

const principalKey contextKey = "principal"

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse represents the response from authentication endpoints
type AuthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Username  string `json:"username,omitempty"`
	Admin     bool   `json:"admin,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

// principal returns the authenticated username stored by AuthMiddleware.
func principal(r *http.Request) string {
	if username, ok := r.Context().Value(principalKey).(string); ok {
		return username
	}
	return ""
}

// isAdmin reports whether the request principal is the operator account.
func (h *Handlers) isAdmin(r *http.Request) bool {
	return principal(r) == h.db.Operator()
}

// authenticate validates a username/password pair. The operator account
// authenticates against configuration; everyone else against the users
// table.
func (h *Handlers) authenticate(ctx context.Context, username, password string) bool {
	if username == h.db.Operator() {
		return subtle.ConstantTimeCompare([]byte(password), []byte(h.adminPassword)) == 1
	}
	_, err := h.db.ValidateCredentials(ctx, username, password)
	return err == nil
}

// Login authenticates a user and issues a session cookie
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !h.authenticate(ctx, req.Username, req.Password) {
		logging.Warn("Failed login attempt for %s", req.Username)
		writeJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	session, err := h.db.CreateSession(ctx, req.Username)
	if err != nil {
		logging.Error("Failed to create session: %v", err)
		writeJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	logging.Info("User %s logged in", req.Username)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success:   true,
		Username:  req.Username,
		Admin:     req.Username == h.db.Operator(),
		ExpiresIn: int(database.SessionDuration.Seconds()),
	})
}

// Logout ends the current session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		// Best-effort cleanup, logout succeeds regardless
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			logging.Error("Failed to delete session during logout: %v", err)
		}
	}

	clearSessionCookie(w)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// CheckAuth verifies the current session and reports the principal
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	username, err := h.db.ValidateSession(ctx, cookie.Value)
	if err != nil {
		clearSessionCookie(w)
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success:  true,
		Username: username,
		Admin:    username == h.db.Operator(),
	})
}

// AuthMiddleware protects routes that require an authenticated session.
// The resolved username is stored on the request context for handlers.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		username, err := h.db.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			clearSessionCookie(w)
			writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
