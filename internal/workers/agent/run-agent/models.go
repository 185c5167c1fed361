// internal/workers/agent/run-agent/models.go
package runagent

import (
	"context"

	dispatchintent "pharmacy-agent/internal/workers/agent/dispatch-intent"
	extractintent "pharmacy-agent/internal/workers/agent/extract-intent"
	renderresponse "pharmacy-agent/internal/workers/agent/render-response"
)

// StatusSuccess is the only status a turn reports; failures are conversational.
const StatusSuccess = "success"

// ExtractionFailedMessage is returned when the request could not be understood at all.
const ExtractionFailedMessage = "Sorry, I didn't catch that. Please tell me what you need, for example \"Is Paracetamol available?\" or \"Order 2 Ibuprofen\"."

// IntentCommand labels turns answered by a literal command.
const IntentCommand = "command"

type Input struct {
	Text       string `json:"text"`
	CustomerID string `json:"customerId,omitempty"`
}

type Output struct {
	Status   string `json:"status"`
	Response string `json:"response"`
	Intent   string `json:"intent,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

type Extractor interface {
	Execute(ctx context.Context, input *extractintent.Input) (*extractintent.Output, error)
}

type Dispatcher interface {
	Execute(ctx context.Context, input *dispatchintent.Input) (*dispatchintent.Output, error)
}

type Renderer interface {
	Execute(ctx context.Context, input *renderresponse.Input) (*renderresponse.Output, error)
}
