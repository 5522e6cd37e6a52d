// Package startup handles configuration loading and the structured
// startup/shutdown log output. Configuration comes entirely from
// environment variables; LoadConfig validates the values, resolves the
// per-user path templates, and verifies the database directory is
// writable before the server commits to starting.
package startup
