// Package healthcheck runs the per-upstream health probe loop,
// flipping upstream health status based on periodic GET /health
// responses.
package healthcheck
