// Package telemetry records per-operation performance samples for the
// two backing systems and aggregates them into windowed comparisons:
//
//   - Recorder: bounded in-memory sample buffer with best-effort
//     persistence of the most recent slice
//   - Compare: trailing-window latency/error statistics per system and
//     native-vs-legacy improvement percentages
//   - Collector: buffered channel feeding the recorder off the proxy
//     hot path
//   - Sweep: periodic eviction of samples past the retention age
//
// Every recorded sample synchronously triggers the rollback monitor's
// evaluation through the Evaluator hook.
package telemetry
