package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/migration-gateway/internal/upstream"
	"github.com/angeloszaimis/migration-gateway/pkg/metrics"
)

// HealthCheck periodically probes an upstream's /health endpoint and
// updates its health status and the exported health gauge.
func HealthCheck(
	ctx context.Context,
	up *upstream.Upstream,
	interval time.Duration,
	logger *slog.Logger,
) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("system", string(up.System())),
				slog.String("upstream", up.URL().String()))
			return

		case <-ticker.C:
			healthURL := up.URL().ResolveReference(&url.URL{Path: "/health"})

			req, err := http.NewRequestWithContext(
				ctx, http.MethodGet, healthURL.String(), nil)
			if err != nil {
				continue
			}

			res, err := client.Do(req)
			if err != nil {
				setHealthy(up, false, logger)
				continue
			}
			res.Body.Close()

			setHealthy(up, res.StatusCode == http.StatusOK, logger)
		}
	}
}

func setHealthy(up *upstream.Upstream, healthy bool, logger *slog.Logger) {
	gauge := 0.0
	if healthy {
		gauge = 1.0
	}
	metrics.UpstreamHealthy.WithLabelValues(string(up.System())).Set(gauge)

	if !up.SetHealthy(healthy) {
		return
	}

	if healthy {
		logger.Info("Upstream is back up",
			slog.String("system", string(up.System())),
			slog.String("upstream", up.URL().String()))
	} else {
		logger.Warn("Upstream is down",
			slog.String("system", string(up.System())),
			slog.String("upstream", up.URL().String()))
	}
}
