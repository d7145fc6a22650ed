package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/migration-gateway/config"
	"github.com/angeloszaimis/migration-gateway/internal/assignment"
	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/flags"
	"github.com/angeloszaimis/migration-gateway/internal/gateway"
	"github.com/angeloszaimis/migration-gateway/internal/handler"
	"github.com/angeloszaimis/migration-gateway/internal/healthcheck"
	"github.com/angeloszaimis/migration-gateway/internal/monitor"
	"github.com/angeloszaimis/migration-gateway/internal/store"
	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
	"github.com/angeloszaimis/migration-gateway/internal/upstream"
	"github.com/angeloszaimis/migration-gateway/pkg/logger"
)

const collectorBufferSize = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := openStore(cfg, log)
	if st != nil {
		defer st.Close()
	}

	registry := buildRegistry(cfg, st, log)
	recorder := buildRecorder(cfg, st, log)

	mon := monitor.New(recorder, registry, buildNotifier(cfg, log), monitorThresholds(cfg), log)
	recorder.SetEvaluator(mon)

	resolver := assignment.NewResolver(registry, assignment.Policy{
		Enabled:         cfg.ABTest.Enabled,
		SplitPercentage: cfg.ABTest.SplitPercentage,
		SplitByUser:     cfg.ABTest.SplitByUser,
		AdminOverride:   feature.System(cfg.ABTest.AdminOverride),
	})

	upstreams, err := initializeUpstreams(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize upstreams", slog.Any("err", err))
		os.Exit(1)
	}

	gw := gateway.New(resolver, upstreams)

	collector := telemetry.NewCollector(collectorBufferSize, recorder, log)
	collector.Start(ctx)

	sweepInterval, _ := time.ParseDuration(cfg.Retention.SweepInterval)
	maxAge, _ := time.ParseDuration(cfg.Retention.MaxAge)
	go telemetry.Sweep(ctx, recorder, sweepInterval, maxAge, log)

	gatewayHandler := handler.NewGatewayHandler(log, gw, collector)
	adminHandler := handler.NewAdminHandler(log, registry, recorder, mon, gw)

	srv, err := httpServer(cfg, gatewayHandler, adminHandler)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Migration gateway starting",
		slog.String("address", cfg.Server.Address),
		slog.String("legacy", cfg.Upstreams.LegacyURL),
		slog.String("native", cfg.Upstreams.NativeURL))

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting gateway", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// openStore opens the BoltDB store. A failure is logged, not fatal:
// the gateway runs with in-memory state only.
func openStore(cfg *config.Config, log *slog.Logger) *store.Store {
	if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
		log.Warn("Failed to create data directory, running without persistence",
			slog.String("path", cfg.Store.Path),
			slog.Any("err", err))
		return nil
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Warn("Failed to open store, running without persistence",
			slog.String("path", cfg.Store.Path),
			slog.Any("err", err))
		return nil
	}

	return st
}

func buildRegistry(cfg *config.Config, st *store.Store, log *slog.Logger) *flags.Registry {
	var modeStore flags.ModeStore
	if st != nil {
		modeStore = st
	}

	registry := flags.NewRegistry(cfg.FeatureDefaults(), modeStore)

	if st != nil {
		persisted, err := st.LoadModes()
		if err != nil {
			log.Warn("Ignoring malformed persisted feature modes", slog.Any("err", err))
		} else if persisted != nil {
			registry.Restore(persisted)
			log.Info("Restored persisted feature modes")
		}
	}

	return registry
}

func buildRecorder(cfg *config.Config, st *store.Store, log *slog.Logger) *telemetry.Recorder {
	var sampleStore telemetry.SampleStore
	if st != nil {
		sampleStore = st
	}

	recorder := telemetry.NewRecorder(telemetry.RecorderOptions{
		SampleRate:  cfg.Sampling.Rate,
		BufferSize:  cfg.Retention.BufferSize,
		PersistSize: cfg.Retention.PersistSize,
		Store:       sampleStore,
	}, log)

	if st != nil {
		samples, err := st.LoadSamples()
		if err != nil {
			log.Warn("Ignoring malformed persisted samples", slog.Any("err", err))
		} else if len(samples) > 0 {
			recorder.Restore(samples)
			log.Info("Restored persisted samples", slog.Int("count", len(samples)))
		}
	}

	return recorder
}

func buildNotifier(cfg *config.Config, log *slog.Logger) monitor.Notifier {
	if cfg.Monitor.WebhookURL == "" {
		return monitor.NopNotifier{}
	}
	return monitor.NewWebhookNotifier(cfg.Monitor.WebhookURL, log)
}

func monitorThresholds(cfg *config.Config) monitor.Thresholds {
	window, _ := time.ParseDuration(cfg.Monitor.Window)
	latency, _ := time.ParseDuration(cfg.Monitor.LatencyThreshold)

	return monitor.Thresholds{
		Window:      window,
		ErrorRate:   cfg.Monitor.ErrorRateThreshold,
		MeanLatency: latency,
	}
}

func initializeUpstreams(ctx context.Context, cfg *config.Config, log *slog.Logger) (map[feature.System]*upstream.Upstream, error) {
	interval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		return nil, err
	}

	urls := map[feature.System]string{
		feature.SystemLegacy: cfg.Upstreams.LegacyURL,
		feature.SystemNative: cfg.Upstreams.NativeURL,
	}
	if cfg.Upstreams.CognitoURL != "" {
		urls[feature.SystemCognito] = cfg.Upstreams.CognitoURL
	}

	upstreams := make(map[feature.System]*upstream.Upstream, len(urls))
	for sys, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			log.Error("Failed to parse upstream URL",
				slog.String("system", string(sys)),
				slog.String("url", raw),
				slog.Any("err", err))
			return nil, err
		}

		up := upstream.New(sys, u)
		upstreams[sys] = up
		go healthcheck.HealthCheck(ctx, up, interval, log)
	}

	return upstreams, nil
}
