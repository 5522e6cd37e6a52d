package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-gallery/internal/database"
	"media-gallery/internal/gallery"
	"media-gallery/internal/handlers"
	"media-gallery/internal/logging"
	"media-gallery/internal/media"
	"media-gallery/internal/metrics"
	"media-gallery/internal/middleware"
	"media-gallery/internal/scanner"
	"media-gallery/internal/startup"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Initialize metrics
	metrics.InitializeMetrics()
	if config.MetricsEnabled {
		go metrics.Serve(config.MetricsPort)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath, config.AdminUsername)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Clean up expired sessions periodically
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			if err := db.CleanExpiredSessions(); err != nil {
				logging.Warn("Session cleanup failed: %v", err)
			}
			db.UpdateDBMetrics()
		}
	}()

	// Initialize thumbnail generator
	var videoThumbs media.VideoThumbnailer
	if config.VideoThumbnailer == startup.VideoThumbnailerFFmpeg {
		videoThumbs = media.FFmpegThumbnailer{}
	} else {
		videoThumbs = media.PlaceholderThumbnailer{}
	}
	thumbs := media.NewGenerator(videoThumbs)

	// Initialize gallery service and scanner
	svc := gallery.NewService(db, config.Roots, thumbs)
	scan := scanner.New(db, config.Roots, thumbs, config.ScanInterval)

	// Run the first scan before serving so the catalog reflects the
	// filesystem by the time readiness flips.
	startup.LogScannerInit(config.ScanInterval)
	scanStart := time.Now()
	items, err := scan.Scan(context.Background())
	if err != nil {
		logging.Error("Initial scan failed: %v", err)
	}
	startup.LogScannerStarted(items, time.Since(scanStart))
	scan.Start()

	// Initialize handlers and router
	h := handlers.New(db, svc, scan, config)
	router := mux.NewRouter()
	h.Routes(router)

	// Middleware chain: compression outermost, then logging, then metrics.
	handler := middleware.Compression(middleware.Logger(middleware.Metrics(router)))

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, scan)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func handleShutdown(srv *http.Server, scan *scanner.Scanner) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scan.Stop()
	startup.LogShutdownStepComplete("Scanner stopped")

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
