package telemetry

import (
	"time"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
)

// Stats aggregates one system's samples over a trailing window.
type Stats struct {
	TotalRequests int           `json:"total_requests"`
	MeanLatency   time.Duration `json:"mean_latency"`
	ErrorRate     float64       `json:"error_rate"`
	SuccessRate   float64       `json:"success_rate"`
}

// Improvement is the relative change of the native system against the
// legacy baseline, in percent. Positive means native is better. When
// no legacy samples fall inside the window the percentages are zero
// and InsufficientBaseline is set, so "no baseline" is distinguishable
// from "measured no improvement".
type Improvement struct {
	Latency              float64 `json:"latency_pct"`
	ErrorRate            float64 `json:"error_rate_pct"`
	InsufficientBaseline bool    `json:"insufficient_baseline"`
}

// Comparison is the result of comparing both systems over a window.
type Comparison struct {
	Feature     feature.Feature `json:"feature,omitempty"`
	Window      time.Duration   `json:"window"`
	Legacy      Stats           `json:"legacy"`
	Native      Stats           `json:"native"`
	Improvement Improvement     `json:"improvement"`
}

// DefaultCompareWindow is used when callers pass a non-positive window.
const DefaultCompareWindow = 60 * time.Minute

// Compare aggregates the buffered samples within the trailing window
// into per-system statistics. An empty feature matches all features.
// Pure over the buffer; safe to call at any frequency.
func (r *Recorder) Compare(f feature.Feature, window time.Duration) Comparison {
	if window <= 0 {
		window = DefaultCompareWindow
	}
	cutoff := time.Now().Add(-window)

	var legacy, native []Sample
	for _, s := range r.Snapshot() {
		if !s.Timestamp.After(cutoff) {
			continue
		}
		if f != "" && s.Feature != f {
			continue
		}

		switch s.System {
		case feature.SystemLegacy:
			legacy = append(legacy, s)
		case feature.SystemNative:
			native = append(native, s)
		}
	}

	cmp := Comparison{
		Feature: f,
		Window:  window,
		Legacy:  computeStats(legacy),
		Native:  computeStats(native),
	}
	cmp.Improvement = improvement(cmp.Legacy, cmp.Native)
	return cmp
}

func computeStats(samples []Sample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	var sum time.Duration
	var failures int
	for _, s := range samples {
		sum += s.Duration
		if !s.Success {
			failures++
		}
	}

	errorRate := float64(failures) / float64(len(samples))
	return Stats{
		TotalRequests: len(samples),
		MeanLatency:   sum / time.Duration(len(samples)),
		ErrorRate:     errorRate,
		SuccessRate:   1 - errorRate,
	}
}

func improvement(legacy, native Stats) Improvement {
	if legacy.TotalRequests == 0 {
		return Improvement{InsufficientBaseline: true}
	}

	var imp Improvement
	if legacy.MeanLatency > 0 {
		imp.Latency = float64(legacy.MeanLatency-native.MeanLatency) / float64(legacy.MeanLatency) * 100
	}
	if legacy.ErrorRate > 0 {
		imp.ErrorRate = (legacy.ErrorRate - native.ErrorRate) / legacy.ErrorRate * 100
	}
	return imp
}
