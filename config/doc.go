// Package config handles loading and parsing of configuration from
// YAML files and environment variables. It defines the application
// configuration structure including server settings, upstream URLs,
// per-feature routing modes, the A/B split policy, sampling and
// retention parameters, and rollback monitor thresholds.
package config
