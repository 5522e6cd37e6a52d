package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"media-gallery/internal/database"
	"media-gallery/internal/filesystem"
	"media-gallery/internal/logging"

	"github.com/gorilla/mux"
)

const (
	minUsernameLength = 3
	minPasswordLength = 4
)

// CreateUserRequest carries the credentials for a new account.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ListUsers returns all stored accounts. Operator only.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeJSONError(w, "Admin access required", http.StatusForbidden)
		return
	}

	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string][]database.User{"users": users})
}

// CreateUser registers a new account and prepares its media and
// thumbnail directories. Operator only.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.isAdmin(r) {
		writeJSONError(w, "Admin access required", http.StatusForbidden)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Username) < minUsernameLength || !filesystem.ValidUsername(req.Username) {
		writeJSONError(w, "Username must be at least 3 characters and contain no path separators", http.StatusBadRequest)
		return
	}
	if len(req.Password) < minPasswordLength {
		writeJSONError(w, "Password must be at least 4 characters", http.StatusBadRequest)
		return
	}
	if req.Username == h.db.Operator() {
		writeJSONError(w, "Username is reserved", http.StatusConflict)
		return
	}

	user, err := h.db.CreateUser(ctx, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.roots.EnsureUserDirs(req.Username); err != nil {
		logging.Warn("Failed to create directories for %s: %v", req.Username, err)
	}

	logging.Info("Created user %s", req.Username)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, user)
}

// DeleteUser removes an account along with its catalog rows, share
// edges and sessions. Files on disk are untouched. Operator only.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.isAdmin(r) {
		writeJSONError(w, "Admin access required", http.StatusForbidden)
		return
	}

	username := mux.Vars(r)["username"]
	if username == h.db.Operator() {
		writeJSONError(w, "Cannot delete the operator account", http.StatusBadRequest)
		return
	}

	if err := h.db.DeleteUser(ctx, username); err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Info("Deleted user %s", username)
	writeJSONStatus(w, "deleted")
}

// TriggerScan starts a scan pass in the background. Operator only.
func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeJSONError(w, "Admin access required", http.StatusForbidden)
		return
	}

	if h.scanner.IsScanning() {
		writeJSONStatus(w, "already_running")
		return
	}

	// Detached from the request context so the scan survives the reply.
	go func() {
		if _, err := h.scanner.Scan(context.Background()); err != nil {
			logging.Error("Manually triggered scan failed: %v", err)
		}
	}()

	writeJSONStatus(w, "started")
}
