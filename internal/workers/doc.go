// Package workers sizes worker pools for containerized environments.
//
// Go sets GOMAXPROCS from the container CPU limit, so pool sizes are
// derived from it rather than runtime.NumCPU, which reports the host
// machine's core count. The SCAN_WORKERS environment variable overrides
// the calculation when an operator needs to pin concurrency.
package workers
