package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/gateway"
	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
	"github.com/angeloszaimis/migration-gateway/pkg/metrics"
)

// UserIDHeader carries the caller's user identifier, when known.
const UserIDHeader = "X-User-ID"

// ServedByHeader reports which system actually served the request.
const ServedByHeader = "X-Served-By"

// GatewayHandler proxies feature traffic to the system chosen by the
// assignment resolver and emits a performance sample per request.
type GatewayHandler struct {
	logger    *slog.Logger
	gateway   *gateway.Gateway
	collector *telemetry.Collector
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func NewGatewayHandler(logger *slog.Logger, gw *gateway.Gateway, collector *telemetry.Collector) *GatewayHandler {
	return &GatewayHandler{
		logger:    logger,
		gateway:   gw,
		collector: collector,
	}
}

func (h *GatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f, ok := FeatureForPath(r.URL.Path)
	if !ok {
		http.Error(w, "unknown feature path", http.StatusNotFound)
		return
	}

	userID := r.Header.Get(UserIDHeader)

	h.logger.Info("Received request",
		slog.String("feature", string(f)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("user", userID))

	up, sys, err := h.gateway.Route(f, userID)
	if err != nil {
		h.logger.Warn("No healthy upstream available",
			slog.String("feature", string(f)),
			slog.Any("err", err))
		http.Error(w, "no healthy upstream available", http.StatusServiceUnavailable)
		return
	}
	defer up.DecrementConn()

	metrics.ProxiedRequestsTotal.WithLabelValues(string(f), string(sys)).Inc()

	h.logger.Info("Forwarding to upstream",
		slog.String("feature", string(f)),
		slog.String("system", string(sys)),
		slog.String("upstream", up.URL().String()))

	w.Header().Set(ServedByHeader, string(sys))

	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	start := time.Now()
	up.ReverseProxy().ServeHTTP(wrapped, r)
	duration := time.Since(start)

	up.RecordResponse(duration)
	h.emitSample(f, sys, r, userID, duration, wrapped.statusCode)
}

func (h *GatewayHandler) emitSample(
	f feature.Feature,
	sys feature.System,
	r *http.Request,
	userID string,
	duration time.Duration,
	statusCode int,
) {
	if h.collector == nil {
		return
	}

	// Samples only know the two backing systems; the cognito path is
	// the AWS-side implementation and counts as native.
	recordedAs := sys
	if recordedAs == feature.SystemCognito {
		recordedAs = feature.SystemNative
	}

	success := statusCode < http.StatusInternalServerError
	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("upstream returned %d", statusCode)
	}

	h.collector.Emit(telemetry.Sample{
		System:    recordedAs,
		Feature:   f,
		Operation: r.Method + " " + r.URL.Path,
		Duration:  duration,
		Success:   success,
		Error:     errMsg,
		Timestamp: time.Now(),
		UserID:    userID,
	})
}

// FeatureForPath maps the first path segment to a feature.
func FeatureForPath(path string) (feature.Feature, bool) {
	segment := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(segment, '/'); i >= 0 {
		segment = segment[:i]
	}

	switch segment {
	case "auth":
		return feature.Authentication, true
	case "applications":
		return feature.Applications, true
	case "documents":
		return feature.Documents, true
	case "realtime":
		return feature.Realtime, true
	case "analytics":
		return feature.Analytics, true
	default:
		return "", false
	}
}
