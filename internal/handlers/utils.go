package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-gallery/internal/database"
	"media-gallery/internal/gallery"
	"media-gallery/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// writeServiceError maps service and catalog errors onto HTTP status
// codes. Unknown errors are logged and become an opaque 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gallery.ErrForbidden):
		writeJSONError(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, database.ErrUnknownUser):
		writeJSONError(w, "Unknown user", http.StatusNotFound)
	case errors.Is(err, database.ErrNotShared):
		writeJSONError(w, "Not shared", http.StatusNotFound)
	case errors.Is(err, database.ErrAlreadyShared):
		writeJSONError(w, "Already shared", http.StatusConflict)
	case errors.Is(err, database.ErrConflict):
		writeJSONError(w, "Already exists", http.StatusConflict)
	case errors.Is(err, database.ErrSelfShare):
		writeJSONError(w, "Cannot share a gallery with its owner", http.StatusBadRequest)
	case errors.Is(err, database.ErrInvalidInput):
		writeJSONError(w, "Invalid request", http.StatusBadRequest)
	case errors.Is(err, gallery.ErrUnsupportedFile):
		writeJSONError(w, "Unsupported file type", http.StatusBadRequest)
	default:
		logging.Error("Unhandled service error: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
