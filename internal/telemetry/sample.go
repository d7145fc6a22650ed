package telemetry

import (
	"time"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
)

// Sample is one recorded operation against a backing system. System is
// always legacy or native; operations served by the cognito path are
// recorded under native since that is the AWS-side implementation.
type Sample struct {
	ID        string          `json:"id"`
	System    feature.System  `json:"system"`
	Feature   feature.Feature `json:"feature"`
	Operation string          `json:"operation"`
	Duration  time.Duration   `json:"duration"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"user_id,omitempty"`
}
