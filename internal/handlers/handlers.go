package handlers

import (
	"media-gallery/internal/database"
	"media-gallery/internal/filesystem"
	"media-gallery/internal/gallery"
	"media-gallery/internal/scanner"
	"media-gallery/internal/startup"

	"github.com/gorilla/mux"
)

type Handlers struct {
	db             *database.Database
	svc            *gallery.Service
	scanner        *scanner.Scanner
	roots          *filesystem.Roots
	adminPassword  string
	maxUploadFiles int
}

func New(db *database.Database, svc *gallery.Service, scan *scanner.Scanner, config *startup.Config) *Handlers {
	return &Handlers{
		db:             db,
		svc:            svc,
		scanner:        scan,
		roots:          config.Roots,
		adminPassword:  config.AdminPassword,
		maxUploadFiles: config.UploadMaxFiles,
	}
}

// Routes registers every route on the router. Health probes and the
// auth endpoints are public; everything under /api requires a session.
func (h *Handlers) Routes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/login", h.Login).Methods("POST")
	auth.HandleFunc("/logout", h.Logout).Methods("POST")
	auth.HandleFunc("/check", h.CheckAuth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.AuthMiddleware)
	api.HandleFunc("/media", h.ListMedia).Methods("GET")
	api.HandleFunc("/media/{id:[0-9]+}", h.GetMediaFile).Methods("GET")
	api.HandleFunc("/media/{id:[0-9]+}/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/filter-options", h.GetFilterOptions).Methods("GET")
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/galleries", h.GetGalleries).Methods("GET")
	api.HandleFunc("/shares", h.GetShares).Methods("GET")
	api.HandleFunc("/shares", h.AddShare).Methods("POST")
	api.HandleFunc("/shares/{username}", h.RemoveShare).Methods("DELETE")
	api.HandleFunc("/users", h.ListUsers).Methods("GET")
	api.HandleFunc("/users", h.CreateUser).Methods("POST")
	api.HandleFunc("/users/{username}", h.DeleteUser).Methods("DELETE")
	api.HandleFunc("/scan", h.TriggerScan).Methods("POST")
}
