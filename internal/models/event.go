// internal/models/event.go
package models

import "time"

// Admin event types
const (
	EventOrderCreated         = "order_created"
	EventLowStock             = "low_stock"
	EventPrescriptionUploaded = "prescription_uploaded"
)

// EventSource identifies this agent in admin notifications.
const EventSource = "pharmacy_ai_agent"

// AdminEvent is the envelope delivered to every notification sink.
type AdminEvent struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}
