package telemetry

import (
	"context"
	"log/slog"
	"time"
)

// Sweep periodically drops samples older than maxAge from the
// recorder. Runs until the context is cancelled.
func Sweep(
	ctx context.Context,
	recorder *Recorder,
	interval time.Duration,
	maxAge time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Retention sweeper stopped")
			return

		case <-ticker.C:
			if pruned := recorder.Prune(maxAge); pruned > 0 {
				logger.Info("Pruned expired samples",
					slog.Int("count", pruned),
					slog.Duration("max_age", maxAge))
			}
		}
	}
}
