// Package httpserver wraps the standard HTTP server with address
// validation, sane timeouts and graceful shutdown.
package httpserver
