// internal/workers/notification/notify-admin/models.go
package notifyadmin

import (
	"context"

	"pharmacy-agent/internal/models"
)

// Delivery outcomes
const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

type Input struct {
	EventType string                 `json:"eventType"`
	Data      map[string]interface{} `json:"data"`
}

type Output struct {
	EventID string            `json:"eventId"`
	Status  string            `json:"status"`
	Sinks   map[string]string `json:"sinks,omitempty"`
}

// Sink delivers one admin event to an external channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, event models.AdminEvent) error
}
