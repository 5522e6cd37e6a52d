package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-gallery/internal/logging"
	"media-gallery/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the catalog store: the durable record of media items,
// users, share edges, and sessions. It is shared between the scanner
// goroutine and request handlers; every exported operation is a single
// statement (or a single transaction) guarded by the mutex.
type Database struct {
	db       *sql.DB
	dbPath   string
	operator string
	mu       sync.RWMutex
}

// New opens (or creates) the catalog database at dbPath. The operator is
// the configured privileged account; it has no users row but is a valid
// share grantee and media owner. The parent directory must already exist
// and be writable.
func New(ctx context.Context, dbPath, operator string) (*Database, error) {
	logging.Info("Catalog database path: %s", dbPath)

	// WAL mode keeps reads concurrent with the scanner's inserts;
	// busy_timeout avoids "database is locked" errors under load.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:       db,
		dbPath:   dbPath,
		operator: operator,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Catalog database initialized at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- Stored user accounts. The operator account lives in configuration
	-- and never appears here.
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Media catalog. filepath is the item's identity; uniqueness holds
	-- across the whole catalog regardless of owner.
	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		filepath TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		ingested_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		size INTEGER NOT NULL DEFAULT 0,
		thumbnail_path TEXT,
		owner_username TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_media_owner ON media(owner_username);
	CREATE INDEX IF NOT EXISTS idx_media_created ON media(created_at);
	CREATE INDEX IF NOT EXISTS idx_media_owner_created ON media(owner_username, created_at);

	-- Share graph: directed owner -> grantee read permission.
	CREATE TABLE IF NOT EXISTS shares (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_username TEXT NOT NULL,
		shared_with_username TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		UNIQUE(owner_username, shared_with_username)
	);

	CREATE INDEX IF NOT EXISTS idx_shares_grantee ON shares(shared_with_username);

	-- Sessions for the HTTP layer.
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	_, err := d.db.ExecContext(ctx, schema)
	if err != nil {
		return err
	}

	return d.runMigrations(ctx)
}

// runMigrations applies schema migrations for databases created by older
// builds that stored media without an ingested_at column.
func (d *Database) runMigrations(ctx context.Context) error {
	var columnExists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('media')
		WHERE name='ingested_at'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check for ingested_at column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating database: adding ingested_at column to media table")

		_, err = d.db.ExecContext(ctx, `
			ALTER TABLE media ADD COLUMN ingested_at INTEGER NOT NULL DEFAULT 0
		`)
		if err != nil {
			return fmt.Errorf("failed to add ingested_at column: %w", err)
		}

		_, err = d.db.ExecContext(ctx, `
			UPDATE media SET ingested_at = created_at WHERE ingested_at = 0
		`)
		if err != nil {
			return fmt.Errorf("failed to initialize ingested_at values: %w", err)
		}

		logging.Info("Migration complete: ingested_at column added and initialized")
	}

	return nil
}

// Operator returns the configured operator username.
func (d *Database) Operator() string {
	return d.operator
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// UpdateDBMetrics updates database connection metrics.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
