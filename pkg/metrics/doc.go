// Package metrics defines the prometheus collectors exported by the
// gateway and the /metrics HTTP handler serving them.
package metrics
