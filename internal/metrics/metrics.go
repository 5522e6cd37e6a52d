package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-gallery/internal/logging"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_gallery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_scanner_runs_total",
			Help: "Total number of scan passes",
		},
	)

	ScannerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_scanner_last_run_timestamp",
			Help: "Timestamp of the last scan pass",
		},
	)

	ScannerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_scanner_last_run_duration_seconds",
			Help: "Duration of the last scan pass in seconds",
		},
	)

	ScannerItemsDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_scanner_items_discovered_total",
			Help: "Total number of new media items discovered by the scanner",
		},
	)

	ScannerFilesExamined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_scanner_files_examined_total",
			Help: "Total number of files examined by the scanner",
		},
	)

	ScannerUserErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_scanner_user_errors_total",
			Help: "Total number of per-user scan failures",
		},
	)

	ScannerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_scanner_is_running",
			Help: "Whether a scan pass is currently in progress (1) or not (0)",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_thumbnails_generated_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"kind", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_gallery_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_uploads_total",
			Help: "Total number of uploaded files",
		},
		[]string{"status"},
	)
)

// InitializeMetrics pre-populates expected label combinations so every
// metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, op := range []string{"insert_media", "get_media_by_id", "list_media",
		"delete_media_by_owner", "filter_options", "create_user", "delete_user",
		"update_password", "validate_credentials", "add_share", "remove_share",
		"is_shared", "shared_with", "grantees", "create_session",
		"validate_session", "clean_expired_sessions"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, kind := range []string{"image", "video"} {
		ThumbnailsGenerated.WithLabelValues(kind, "success")
		ThumbnailsGenerated.WithLabelValues(kind, "error")
		ThumbnailGenerationDuration.WithLabelValues(kind)
	}

	for _, status := range []string{"success", "error"} {
		UploadsTotal.WithLabelValues(status)
	}
}

// Serve starts a dedicated metrics listener on the given port. It never
// returns unless the listener fails, so callers run it in a goroutine.
func Serve(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logging.Info("Metrics server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logging.Error("Metrics server error: %v", err)
	}
}
