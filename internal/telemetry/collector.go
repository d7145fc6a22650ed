package telemetry

import (
	"context"
	"log/slog"
)

// Collector decouples the proxy hot path from sample recording: the
// handler sends samples into a buffered channel and one goroutine
// feeds them to the recorder.
type Collector struct {
	eventCh  chan Sample
	recorder *Recorder
	logger   *slog.Logger
}

func NewCollector(bufferSize int, recorder *Recorder, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:  make(chan Sample, bufferSize),
		recorder: recorder,
		logger:   logger,
	}
}

// Emit offers a sample to the collector without blocking. Samples are
// dropped when the buffer is full.
func (c *Collector) Emit(s Sample) {
	select {
	case c.eventCh <- s:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Telemetry collector started")
	defer c.logger.Info("Telemetry collector stopped")

	for {
		select {
		case s := <-c.eventCh:
			c.recorder.Record(s)
		case <-ctx.Done():
			// Drain remaining samples before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case s := <-c.eventCh:
			c.recorder.Record(s)
		default:
			return
		}
	}
}
