// Package store persists feature modes and recent performance samples
// to an embedded BoltDB database so routing decisions and telemetry
// survive a restart.
package store
