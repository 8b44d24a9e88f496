// Package http provides the HTTP admin API implementation.
//
// The HTTP server exposes endpoints for:
//   - Event submission
//   - Sticky event inspection and removal
//   - Bus statistics and on-demand sweeps
//   - Health checks
//   - Prometheus metrics
package http
