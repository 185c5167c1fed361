// internal/workers/agent/extract-intent/models.go
package extractintent

import "pharmacy-agent/internal/models"

// Producers of a structured request.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Reasons the rule-based parser was used instead of the model.
const (
	ReasonNone            = ""
	ReasonModelDisabled   = "model_disabled"
	ReasonModelTimeout    = "model_timeout"
	ReasonModelError      = "model_error"
	ReasonEmptyOutput     = "empty_output"
	ReasonMalformedJSON   = "malformed_json"
	ReasonSchemaViolation = "schema_violation"
)

type Input struct {
	Text       string `json:"text"`
	CustomerID string `json:"customerId,omitempty"`
}

type Output struct {
	Request        models.StructuredRequest `json:"request"`
	Source         string                   `json:"source"`
	FallbackReason string                   `json:"fallbackReason,omitempty"`
}
