package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Routing metrics
	AssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_assignments_total",
			Help: "Assignment resolutions by feature and resolved system",
		},
		[]string{"feature", "system"},
	)

	ProxiedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_proxied_requests_total",
			Help: "Requests proxied to an upstream by feature and system",
		},
		[]string{"feature", "system"},
	)

	// Telemetry metrics
	SamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_samples_total",
			Help: "Performance samples recorded by system, feature and outcome",
		},
		[]string{"system", "feature", "outcome"},
	)

	SamplesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_samples_dropped_total",
			Help: "Samples discarded by the sampling filter",
		},
	)

	SamplesPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_samples_pruned_total",
			Help: "Samples evicted by the retention sweeper",
		},
	)

	// Monitor metrics
	NativeErrorRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_native_error_rate",
			Help: "Native system error rate over the monitoring window",
		},
	)

	NativeMeanLatency = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_native_mean_latency_seconds",
			Help: "Native system mean latency over the monitoring window",
		},
	)

	RollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_rollbacks_total",
			Help: "Automatic rollbacks to the legacy system",
		},
	)

	MonitorRolledBack = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_monitor_rolled_back",
			Help: "Whether the rollback monitor is in the rolled-back state (1 = rolled back)",
		},
	)

	// Upstream metrics
	UpstreamHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_upstream_healthy",
			Help: "Upstream health by system (1 = healthy)",
		},
		[]string{"system"},
	)
)

func init() {
	prometheus.MustRegister(
		AssignmentsTotal,
		ProxiedRequestsTotal,
		SamplesTotal,
		SamplesDropped,
		SamplesPruned,
		NativeErrorRate,
		NativeMeanLatency,
		RollbacksTotal,
		MonitorRolledBack,
		UpstreamHealthy,
	)
}

// Handler returns the HTTP handler exposing the prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
