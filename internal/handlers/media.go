package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"media-gallery/internal/database"
	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"

	"github.com/gorilla/mux"
)

// Multipart form memory budget for uploads. Larger files spill to disk.
const uploadMaxMemory = 32 << 20

// ListMedia returns one page of a gallery, newest first. The owner
// query parameter selects whose gallery; it defaults to the principal's
// own.
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	opts := database.ListOptions{
		Owner:    query.Get("owner"),
		Page:     1,
		PageSize: 20,
	}
	if opts.Owner == "" {
		opts.Owner = principal(r)
	}

	if year, err := strconv.Atoi(query.Get("year")); err == nil && year > 0 {
		opts.Year = year
	}
	if month, err := strconv.Atoi(query.Get("month")); err == nil && month > 0 {
		opts.Month = month
	}
	if day, err := strconv.Atoi(query.Get("day")); err == nil && day > 0 {
		opts.Day = day
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if pageSize, err := strconv.Atoi(query.Get("perPage")); err == nil && pageSize > 0 {
		opts.PageSize = pageSize
	}

	page, err := h.svc.List(ctx, principal(r), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, page)
}

// GetMediaFile serves the original file bytes for an item the principal
// may read. http.ServeFile handles range requests, which video playback
// relies on.
func (h *Handlers) GetMediaFile(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemForRequest(w, r)
	if !ok {
		return
	}

	if _, err := os.Stat(item.Filepath); err != nil {
		logging.Warn("Media file missing on disk: %s", item.Filepath)
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	ext := strings.ToLower(filepath.Ext(item.Filename))
	w.Header().Set("Content-Type", mediatypes.GetMimeType(ext))
	http.ServeFile(w, r, item.Filepath)
}

// GetThumbnail serves the cached thumbnail for an item. Items whose
// thumbnail generation failed have none and return 404.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemForRequest(w, r)
	if !ok {
		return
	}

	if item.ThumbnailPath == "" {
		writeJSONError(w, "No thumbnail available", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(item.ThumbnailPath); err != nil {
		logging.Warn("Thumbnail missing on disk: %s", item.ThumbnailPath)
		writeJSONError(w, "No thumbnail available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, item.ThumbnailPath)
}

// itemForRequest resolves the {id} route variable to an item the
// principal may read, writing the error response itself on failure.
func (h *Handlers) itemForRequest(w http.ResponseWriter, r *http.Request) (*database.MediaItem, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "Invalid media id", http.StatusBadRequest)
		return nil, false
	}

	item, err := h.svc.GetItem(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return item, true
}

// GetFilterOptions returns the date buckets available for narrowing a
// gallery listing.
func (h *Handlers) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	owner := query.Get("owner")
	if owner == "" {
		owner = principal(r)
	}

	year, _ := strconv.Atoi(query.Get("year"))
	month, _ := strconv.Atoi(query.Get("month"))

	opts, err := h.svc.FilterOptions(ctx, principal(r), owner, year, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, opts)
}

// UploadResult reports the outcome for one file of an upload batch.
type UploadResult struct {
	Filename string `json:"filename"`
	Error    string `json:"error,omitempty"`
}

// UploadResponse summarizes a multipart upload.
type UploadResponse struct {
	Uploaded []database.MediaItem `json:"uploaded"`
	Errors   []UploadResult       `json:"errors,omitempty"`
}

// Upload accepts up to the configured number of files in one multipart
// request and stores them in the principal's own gallery. Failures are
// reported per file; one bad file does not reject the batch.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := principal(r)

	if err := r.ParseMultipartForm(uploadMaxMemory); err != nil {
		writeJSONError(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSONError(w, "No files provided", http.StatusBadRequest)
		return
	}
	if len(files) > h.maxUploadFiles {
		writeJSONError(w,
			"Too many files: limit is "+strconv.Itoa(h.maxUploadFiles)+" per upload",
			http.StatusBadRequest)
		return
	}

	response := UploadResponse{Uploaded: []database.MediaItem{}}
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			response.Errors = append(response.Errors, UploadResult{
				Filename: header.Filename,
				Error:    "failed to read file",
			})
			continue
		}

		item, err := h.svc.SaveUpload(ctx, owner, header.Filename, file)
		file.Close()
		if err != nil {
			logging.Warn("Upload of %s for %s failed: %v", header.Filename, owner, err)
			response.Errors = append(response.Errors, UploadResult{
				Filename: header.Filename,
				Error:    err.Error(),
			})
			continue
		}
		response.Uploaded = append(response.Uploaded, *item)
	}

	w.Header().Set("Content-Type", "application/json")
	if len(response.Uploaded) == 0 {
		w.WriteHeader(http.StatusBadRequest)
	}
	writeJSON(w, response)
}
