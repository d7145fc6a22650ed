package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/flags"
	"github.com/angeloszaimis/migration-gateway/internal/gateway"
	"github.com/angeloszaimis/migration-gateway/internal/monitor"
	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
)

// AdminHandler exposes the operator API: current status, windowed
// comparisons, feature mode edits, and rollback reset.
type AdminHandler struct {
	logger   *slog.Logger
	registry *flags.Registry
	recorder *telemetry.Recorder
	monitor  *monitor.RollbackMonitor
	gateway  *gateway.Gateway
}

func NewAdminHandler(
	logger *slog.Logger,
	registry *flags.Registry,
	recorder *telemetry.Recorder,
	mon *monitor.RollbackMonitor,
	gw *gateway.Gateway,
) *AdminHandler {
	return &AdminHandler{
		logger:   logger,
		registry: registry,
		recorder: recorder,
		monitor:  mon,
		gateway:  gw,
	}
}

type upstreamStatus struct {
	System            string `json:"system"`
	URL               string `json:"url"`
	Healthy           bool   `json:"healthy"`
	ActiveConnections int    `json:"active_connections"`
	EWMAMillis        int64  `json:"ewma_ms"`
}

type statusResponse struct {
	MonitorState    string                            `json:"monitor_state"`
	Features        map[feature.Feature]feature.Mode  `json:"features"`
	SamplesBuffered int                               `json:"samples_buffered"`
	Upstreams       map[feature.System]upstreamStatus `json:"upstreams"`
}

// Status reports feature modes, monitor state and upstream health.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		MonitorState:    h.monitor.State().String(),
		Features:        h.registry.Snapshot(),
		SamplesBuffered: h.recorder.Len(),
		Upstreams:       make(map[feature.System]upstreamStatus),
	}

	for sys, up := range h.gateway.Upstreams() {
		resp.Upstreams[sys] = upstreamStatus{
			System:            string(sys),
			URL:               up.URL().String(),
			Healthy:           up.IsHealthy(),
			ActiveConnections: up.ActiveConnections(),
			EWMAMillis:        up.EWMATime().Milliseconds(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Compare returns windowed legacy-vs-native statistics. Query
// parameters: feature (optional), window_minutes (default 60).
func (h *AdminHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var f feature.Feature
	if name := r.URL.Query().Get("feature"); name != "" {
		f = feature.Feature(name)
		if !f.Valid() {
			http.Error(w, "unknown feature", http.StatusBadRequest)
			return
		}
	}

	window := telemetry.DefaultCompareWindow
	if raw := r.URL.Query().Get("window_minutes"); raw != "" {
		minutes, err := time.ParseDuration(raw + "m")
		if err != nil || minutes <= 0 {
			http.Error(w, "invalid window_minutes", http.StatusBadRequest)
			return
		}
		window = minutes
	}

	writeJSON(w, http.StatusOK, h.recorder.Compare(f, window))
}

type setModeRequest struct {
	Mode feature.Mode `json:"mode"`
}

// SetFeatureMode changes one feature's routing mode.
func (h *AdminHandler) SetFeatureMode(w http.ResponseWriter, r *http.Request) {
	f := feature.Feature(r.PathValue("name"))
	if !f.Valid() {
		http.Error(w, "unknown feature", http.StatusNotFound)
		return
	}

	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !req.Mode.ValidFor(f) {
		http.Error(w, "mode not valid for feature", http.StatusBadRequest)
		return
	}

	if err := h.registry.SetMode(f, req.Mode); err != nil {
		h.logger.Error("Failed to set feature mode",
			slog.String("feature", string(f)),
			slog.Any("err", err))
		http.Error(w, "failed to persist mode", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Feature mode changed",
		slog.String("feature", string(f)),
		slog.String("mode", string(req.Mode)))

	writeJSON(w, http.StatusOK, map[string]feature.Mode{string(f): req.Mode})
}

// ResetRollback re-arms the rollback monitor after an operator has
// re-edited feature modes.
func (h *AdminHandler) ResetRollback(w http.ResponseWriter, r *http.Request) {
	h.monitor.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
