package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// ShareRequest names the user to grant or revoke access for.
type ShareRequest struct {
	Username string `json:"username"`
}

// GalleriesResponse lists the galleries the principal may read.
type GalleriesResponse struct {
	Galleries []string `json:"galleries"`
}

// SharesResponse describes the principal's share edges in both
// directions.
type SharesResponse struct {
	SharedWith   []string `json:"sharedWith"`
	SharedWithMe []string `json:"sharedWithMe"`
}

// GetGalleries returns every gallery the principal may read: their own
// plus each one shared with them.
func (h *Handlers) GetGalleries(w http.ResponseWriter, r *http.Request) {
	galleries, err := h.svc.Galleries(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, GalleriesResponse{Galleries: galleries})
}

// GetShares returns who the principal shares with and who shares with
// the principal.
func (h *Handlers) GetShares(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	me := principal(r)

	grantees, err := h.svc.Grantees(ctx, me)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	owners, err := h.svc.SharedWithMe(ctx, me)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SharesResponse{SharedWith: grantees, SharedWithMe: owners})
}

// AddShare grants another user read access to the principal's gallery.
func (h *Handlers) AddShare(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.Share(r.Context(), principal(r), req.Username); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONStatus(w, "shared")
}

// RemoveShare revokes a previously granted share. The grantee loses
// access on their next request.
func (h *Handlers) RemoveShare(w http.ResponseWriter, r *http.Request) {
	grantee := mux.Vars(r)["username"]

	if err := h.svc.Unshare(r.Context(), principal(r), grantee); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONStatus(w, "unshared")
}
