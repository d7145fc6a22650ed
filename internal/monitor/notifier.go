package monitor

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
)

// Event describes one rollback for external monitoring.
type Event struct {
	ID         string               `json:"id"`
	Timestamp  time.Time            `json:"timestamp"`
	Reason     string               `json:"reason"`
	Comparison telemetry.Comparison `json:"comparison"`
}

// Notifier delivers rollback events to an external sink.
type Notifier interface {
	Notify(event Event)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

// WebhookNotifier posts rollback events as JSON to a monitoring
// endpoint. Delivery is best-effort; a failed post is logged and not
// retried.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (n *WebhookNotifier) Notify(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("Failed to encode rollback event", slog.Any("err", err))
		return
	}

	res, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("Failed to deliver rollback notification",
			slog.String("url", n.url),
			slog.Any("err", err))
		return
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		n.logger.Warn("Rollback notification rejected",
			slog.String("url", n.url),
			slog.Int("status", res.StatusCode))
		return
	}

	n.logger.Info("Rollback notification delivered",
		slog.String("event_id", event.ID))
}
