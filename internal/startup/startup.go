package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"media-gallery/internal/filesystem"
	"media-gallery/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Video thumbnail strategies accepted by VIDEO_THUMBNAILER.
const (
	VideoThumbnailerPlaceholder = "placeholder"
	VideoThumbnailerFFmpeg      = "ffmpeg"
)

// Config holds all application configuration
type Config struct {
	MediaPathTemplate     string
	ThumbnailPathTemplate string
	DatabaseDir           string
	Port                  string
	MetricsPort           string
	MetricsEnabled        bool
	ScanInterval          time.Duration
	AdminUsername         string
	AdminPassword         string
	UploadMaxFiles        int
	VideoThumbnailer      string

	// Derived
	DatabasePath string
	Roots        *filesystem.Roots
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaTemplate := getEnv("MEDIA_PATH_TEMPLATE", "/media/{username}")
	thumbTemplate := getEnv("THUMBNAIL_PATH_TEMPLATE", "/cache/thumbnails/{username}")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	scanIntervalStr := getEnv("SCAN_INTERVAL", "5m")
	adminUsername := getEnv("ADMIN_USERNAME", "admin")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	uploadMaxFiles := getEnvInt("UPLOAD_MAX_FILES", 10)
	videoThumbnailer := getEnv("VIDEO_THUMBNAILER", VideoThumbnailerPlaceholder)

	logging.Info("  MEDIA_PATH_TEMPLATE:     %s", mediaTemplate)
	logging.Info("  THUMBNAIL_PATH_TEMPLATE: %s", thumbTemplate)
	logging.Info("  DATABASE_DIR:            %s", databaseDir)
	logging.Info("  PORT:                    %s", port)
	logging.Info("  METRICS_PORT:            %s", metricsPort)
	logging.Info("  METRICS_ENABLED:         %v", metricsEnabled)
	logging.Info("  SCAN_INTERVAL:           %s", scanIntervalStr)
	logging.Info("  ADMIN_USERNAME:          %s", adminUsername)
	logging.Info("  UPLOAD_MAX_FILES:        %d", uploadMaxFiles)
	logging.Info("  VIDEO_THUMBNAILER:       %s", videoThumbnailer)
	logging.Info("  LOG_LEVEL:               %s", logging.GetLevel())

	if adminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD must be set")
	}
	if !filesystem.ValidUsername(adminUsername) {
		return nil, fmt.Errorf("invalid ADMIN_USERNAME: %q", adminUsername)
	}

	scanInterval, err := time.ParseDuration(scanIntervalStr)
	if err != nil || scanInterval <= 0 {
		logging.Warn("  Invalid SCAN_INTERVAL, using default: 5m")
		scanInterval = 5 * time.Minute
	}

	if uploadMaxFiles < 1 {
		logging.Warn("  Invalid UPLOAD_MAX_FILES, using default: 10")
		uploadMaxFiles = 10
	}

	switch videoThumbnailer {
	case VideoThumbnailerPlaceholder, VideoThumbnailerFFmpeg:
	default:
		logging.Warn("  Unknown VIDEO_THUMBNAILER %q, using %s", videoThumbnailer, VideoThumbnailerPlaceholder)
		videoThumbnailer = VideoThumbnailerPlaceholder
	}

	roots, err := filesystem.NewRoots(mediaTemplate, thumbTemplate)
	if err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	config := &Config{
		MediaPathTemplate:     mediaTemplate,
		ThumbnailPathTemplate: thumbTemplate,
		DatabaseDir:           databaseDir,
		Port:                  port,
		MetricsPort:           metricsPort,
		MetricsEnabled:        metricsEnabled,
		ScanInterval:          scanInterval,
		AdminUsername:         adminUsername,
		AdminPassword:         adminPassword,
		UploadMaxFiles:        uploadMaxFiles,
		VideoThumbnailer:      videoThumbnailer,
		DatabasePath:          filepath.Join(databaseDir, "gallery.db"),
		Roots:                 roots,
	}

	if config.VideoThumbnailer == VideoThumbnailerFFmpeg {
		if err := checkFFmpeg(); err != nil {
			logging.Warn("  FFmpeg check failed: %v", err)
			logging.Warn("  Falling back to placeholder video thumbnails")
			config.VideoThumbnailer = VideoThumbnailerPlaceholder
		} else {
			logging.Info("  [OK] FFmpeg is available")
		}
	}

	return config, nil
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogScannerInit logs scanner initialization
func LogScannerInit(interval time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCANNER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Scan interval: %v", interval)
	logging.Info("  Running initial scan...")
}

// LogScannerStarted logs the result of the blocking initial scan
func LogScannerStarted(items int, duration time.Duration) {
	logging.Info("  [OK] Initial scan complete: %d new items in %v", items, duration)
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:  %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application: http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:     http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:     DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___         ______       ____
   /  |/  /__  ____/ (_)___ _  / ____/___ _ / / /__  _______  __
  / /|_/ / _ \/ __  / / __ '/ / / __/ __ '// / / _ \/ ___/ / / /
 / /  / /  __/ /_/ / / /_/ / / /_/ / /_/ // / /  __/ /  / /_/ /
/_/  /_/\___/\__,_/_/\__,_/  \____/\__,_//_/_/\___/_/   \__, /
                                                       /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(lines[0]))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
