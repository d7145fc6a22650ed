package telemetry

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/migration-gateway/pkg/metrics"
)

const (
	DefaultBufferSize  = 1000
	DefaultPersistSize = 100
)

// SampleStore persists the most recent samples. Implemented by the
// BoltDB store; nil disables persistence.
type SampleStore interface {
	SaveSamples(samples []Sample) error
}

// Evaluator is notified after every recorded sample. Implemented by
// the rollback monitor.
type Evaluator interface {
	Evaluate()
}

// RecorderOptions configures a Recorder. Zero sizes fall back to the
// defaults; SampleRate is taken literally (1.0 records everything).
type RecorderOptions struct {
	SampleRate  float64
	BufferSize  int
	PersistSize int
	Store       SampleStore
	RandFloat   func() float64
}

// Recorder keeps a bounded in-memory buffer of performance samples,
// persists the most recent slice on every record, and triggers the
// rollback monitor's evaluation synchronously after each record.
type Recorder struct {
	mutex       sync.Mutex
	samples     []Sample
	sampleRate  float64
	bufferSize  int
	persistSize int
	store       SampleStore
	evaluator   Evaluator
	randFloat   func() float64
	logger      *slog.Logger
}

// NewRecorder builds a recorder. The evaluator is attached later via
// SetEvaluator because the monitor needs the recorder to exist first.
func NewRecorder(opts RecorderOptions, logger *slog.Logger) *Recorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.PersistSize <= 0 {
		opts.PersistSize = DefaultPersistSize
	}
	if opts.RandFloat == nil {
		opts.RandFloat = rand.Float64
	}

	return &Recorder{
		samples:     make([]Sample, 0, opts.BufferSize),
		sampleRate:  opts.SampleRate,
		bufferSize:  opts.BufferSize,
		persistSize: opts.PersistSize,
		store:       opts.Store,
		randFloat:   opts.RandFloat,
		logger:      logger,
	}
}

// SetEvaluator attaches the component evaluated after every record.
func (r *Recorder) SetEvaluator(e Evaluator) {
	r.mutex.Lock()
	r.evaluator = e
	r.mutex.Unlock()
}

// Record applies the sampling filter, appends the sample to the
// buffer (evicting the oldest past capacity), persists the most recent
// slice best-effort, and triggers evaluation.
func (r *Recorder) Record(s Sample) {
	if r.randFloat() > r.sampleRate {
		metrics.SamplesDropped.Inc()
		return
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	outcome := "success"
	if !s.Success {
		outcome = "error"
	}
	metrics.SamplesTotal.WithLabelValues(string(s.System), string(s.Feature), outcome).Inc()

	r.mutex.Lock()
	r.samples = append(r.samples, s)
	if len(r.samples) > r.bufferSize {
		r.samples = r.samples[len(r.samples)-r.bufferSize:]
	}
	recent := r.recentLocked()
	evaluator := r.evaluator
	r.mutex.Unlock()

	if r.store != nil {
		if err := r.store.SaveSamples(recent); err != nil {
			r.logger.Warn("Failed to persist samples", slog.Any("err", err))
		}
	}

	if evaluator != nil {
		evaluator.Evaluate()
	}
}

// Restore seeds the buffer with samples persisted by a previous run.
// No sampling filter, no persistence, no evaluation.
func (r *Recorder) Restore(samples []Sample) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.samples = append(r.samples, samples...)
	if len(r.samples) > r.bufferSize {
		r.samples = r.samples[len(r.samples)-r.bufferSize:]
	}
}

// Len returns the number of buffered samples.
func (r *Recorder) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.samples)
}

// Prune drops samples older than maxAge and returns how many were
// removed.
func (r *Recorder) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	kept := r.samples[:0]
	for _, s := range r.samples {
		if s.Timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}

	pruned := len(r.samples) - len(kept)
	r.samples = kept

	if pruned > 0 {
		metrics.SamplesPruned.Add(float64(pruned))
	}
	return pruned
}

// Snapshot returns a copy of the buffer, newest last.
func (r *Recorder) Snapshot() []Sample {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// recentLocked returns the persistSize most recent samples. Callers
// must hold the mutex.
func (r *Recorder) recentLocked() []Sample {
	n := len(r.samples)
	if n > r.persistSize {
		n = r.persistSize
	}

	recent := make([]Sample, n)
	copy(recent, r.samples[len(r.samples)-n:])
	return recent
}
