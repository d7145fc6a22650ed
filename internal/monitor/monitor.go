package monitor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
	"github.com/angeloszaimis/migration-gateway/pkg/metrics"
)

type State int

const (
	StateNormal     State = iota // Features follow their configured assignment
	StateRolledBack              // Every feature forced to legacy
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateRolledBack:
		return "ROLLED-BACK"
	default:
		return "UNKNOWN"
	}
}

// Thresholds configures when the native system is considered degraded.
type Thresholds struct {
	Window      time.Duration
	ErrorRate   float64
	MeanLatency time.Duration
}

// DefaultThresholds returns the stock monitoring parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Window:      10 * time.Minute,
		ErrorRate:   0.05,
		MeanLatency: 2 * time.Second,
	}
}

// Comparer aggregates samples over a trailing window. Implemented by
// the telemetry recorder.
type Comparer interface {
	Compare(f feature.Feature, window time.Duration) telemetry.Comparison
}

// Reverter forces every feature back to the legacy system. Implemented
// by the flags registry.
type Reverter interface {
	ForceAllLegacy() error
}

// RollbackMonitor watches aggregated native-system statistics and
// force-reverts all features to legacy when thresholds are breached.
// The transition to rolled-back is one way; only an operator Reset
// re-arms the monitor. Evaluation runs after every recorded sample
// with no debounce, matching the behavior this replaces.
type RollbackMonitor struct {
	mutex      sync.Mutex
	state      State
	thresholds Thresholds
	comparer   Comparer
	reverter   Reverter
	notifier   Notifier
	logger     *slog.Logger
}

func New(comparer Comparer, reverter Reverter, notifier Notifier, thresholds Thresholds, logger *slog.Logger) *RollbackMonitor {
	if thresholds.Window <= 0 {
		thresholds.Window = DefaultThresholds().Window
	}
	if thresholds.ErrorRate <= 0 {
		thresholds.ErrorRate = DefaultThresholds().ErrorRate
	}
	if thresholds.MeanLatency <= 0 {
		thresholds.MeanLatency = DefaultThresholds().MeanLatency
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}

	return &RollbackMonitor{
		thresholds: thresholds,
		comparer:   comparer,
		reverter:   reverter,
		notifier:   notifier,
		logger:     logger,
	}
}

// Evaluate compares both systems over the monitoring window and rolls
// every feature back to legacy if the native error rate or mean
// latency breaches its threshold. A no-op once rolled back.
func (m *RollbackMonitor) Evaluate() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state == StateRolledBack {
		return
	}

	cmp := m.comparer.Compare("", m.thresholds.Window)

	metrics.NativeErrorRate.Set(cmp.Native.ErrorRate)
	metrics.NativeMeanLatency.Set(cmp.Native.MeanLatency.Seconds())

	if cmp.Native.TotalRequests == 0 {
		return
	}

	var reason string
	switch {
	case cmp.Native.ErrorRate > m.thresholds.ErrorRate:
		reason = fmt.Sprintf("native error rate %.2f%% exceeds threshold %.2f%%",
			cmp.Native.ErrorRate*100, m.thresholds.ErrorRate*100)
	case cmp.Native.MeanLatency > m.thresholds.MeanLatency:
		reason = fmt.Sprintf("native mean latency %s exceeds threshold %s",
			cmp.Native.MeanLatency, m.thresholds.MeanLatency)
	default:
		return
	}

	m.logger.Error("Rolling back all features to legacy", slog.String("reason", reason))

	if err := m.reverter.ForceAllLegacy(); err != nil {
		// The in-memory modes have already flipped; only persistence
		// failed.
		m.logger.Warn("Failed to persist rollback", slog.Any("err", err))
	}

	m.state = StateRolledBack
	metrics.RollbacksTotal.Inc()
	metrics.MonitorRolledBack.Set(1)

	event := Event{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Reason:     reason,
		Comparison: cmp,
	}
	go m.notifier.Notify(event)
}

// State returns the current monitor state.
func (m *RollbackMonitor) State() State {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

// Reset re-arms a rolled-back monitor. Called by an operator after the
// native system has been fixed and modes re-edited.
func (m *RollbackMonitor) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state == StateNormal {
		return
	}

	m.state = StateNormal
	metrics.MonitorRolledBack.Set(0)
	m.logger.Info("Rollback monitor reset")
}
