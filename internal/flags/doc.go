// Package flags tracks the routing mode of each feature. The registry
// is seeded from configuration, overlaid with persisted state at
// startup, mutated by admin calls or the rollback monitor, and written
// back to the store on every change.
package flags
