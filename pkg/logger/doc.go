// Package logger configures the application's structured slog logger
// with level parsing and environment-dependent output format.
package logger
