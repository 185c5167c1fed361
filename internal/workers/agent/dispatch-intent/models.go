// internal/workers/agent/dispatch-intent/models.go
package dispatchintent

import "pharmacy-agent/internal/models"

type Input struct {
	Request models.StructuredRequest `json:"request"`
	RawText string                   `json:"rawText,omitempty"`
}

type Output struct {
	Result *models.ToolResult `json:"result"`
}

// Notifier delivers admin events without blocking the caller.
type Notifier interface {
	Notify(eventType string, data map[string]interface{})
}
