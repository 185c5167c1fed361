// internal/workers/agent/run-agent/handler.go
package runagent

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "pharmacy-agent/internal/common/errors"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/common/metrics"
	"pharmacy-agent/internal/common/observability"
	"pharmacy-agent/internal/models"
	dispatchintent "pharmacy-agent/internal/workers/agent/dispatch-intent"
	extractintent "pharmacy-agent/internal/workers/agent/extract-intent"
	renderresponse "pharmacy-agent/internal/workers/agent/render-response"
)

const (
	TaskType = "run-agent"
)

var (
	errNoOutput = errors.New("stage returned no output")
)

// Handler runs one chat turn through extraction, dispatch and rendering.
// Each stage is isolated: a failing stage is logged and replaced by its
// fallback, and Execute always answers with StatusSuccess.
type Handler struct {
	extractor  Extractor
	dispatcher Dispatcher
	renderer   Renderer
	errors     *apperrors.ErrorHandler
	obs        *observability.Observability
	logger     logger.Logger
}

// NewHandler wires the pipeline. obs may be nil.
func NewHandler(extractor Extractor, dispatcher Dispatcher, renderer Renderer, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		extractor:  extractor,
		dispatcher: dispatcher,
		renderer:   renderer,
		errors:     apperrors.NewErrorHandler(scoped),
		obs:        obs,
		logger:     scoped,
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	start := time.Now()
	out := &Output{Status: StatusSuccess}
	defer func() {
		elapsed := time.Since(start)
		metrics.StageDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
		metrics.StageCompleted.WithLabelValues(TaskType).Inc()
		h.obs.RecordTurn(ctx, out.Intent, out.Degraded, elapsed)
	}()

	if input == nil {
		out.Response = renderresponse.UnprocessableMessage
		out.Degraded = true
		return out
	}

	text := strings.TrimSpace(input.Text)

	var req models.StructuredRequest
	if _, ok := dispatchintent.MatchCommand(text); ok {
		req = models.StructuredRequest{Intent: models.IntentSmalltalk, CustomerID: input.CustomerID}
		out.Intent = IntentCommand
	} else {
		extracted, err := h.extract(ctx, &extractintent.Input{Text: text, CustomerID: input.CustomerID})
		if err != nil {
			out.Response = ExtractionFailedMessage
			out.Degraded = true
			return out
		}
		req = extracted.Request
		out.Intent = string(req.Intent)
		out.Degraded = extracted.Source == extractintent.SourceFallback
	}

	result, err := h.dispatch(ctx, &dispatchintent.Input{Request: req, RawText: text})
	if err != nil {
		result = &models.ToolResult{}
		out.Degraded = true
	}

	response, err := h.render(ctx, &renderresponse.Input{Result: result})
	if err != nil {
		response = renderresponse.HelpMessage
		out.Degraded = true
	}
	out.Response = response

	h.logger.Info("Turn completed", map[string]interface{}{
		"intent":     out.Intent,
		"customerId": req.CustomerID,
		"status":     result.Status,
		"degraded":   out.Degraded,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return out
}

func (h *Handler) extract(ctx context.Context, input *extractintent.Input) (out *extractintent.Output, err error) {
	defer h.failed(extractintent.TaskType, &err)
	defer h.errors.Recover(extractintent.TaskType, &err)

	out, err = h.extractor.Execute(ctx, input)
	if err == nil && out == nil {
		err = errNoOutput
	}
	return out, err
}

func (h *Handler) dispatch(ctx context.Context, input *dispatchintent.Input) (result *models.ToolResult, err error) {
	defer h.failed(dispatchintent.TaskType, &err)
	defer h.errors.Recover(dispatchintent.TaskType, &err)

	out, err := h.dispatcher.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Result == nil {
		return nil, errNoOutput
	}
	return out.Result, nil
}

func (h *Handler) render(ctx context.Context, input *renderresponse.Input) (text string, err error) {
	defer h.failed(renderresponse.TaskType, &err)
	defer h.errors.Recover(renderresponse.TaskType, &err)

	out, err := h.renderer.Execute(ctx, input)
	if err != nil {
		return "", err
	}
	if out == nil || out.Text == "" {
		return "", errNoOutput
	}
	return out.Text, nil
}

func (h *Handler) failed(stage string, errp *error) {
	if *errp != nil {
		metrics.StageFailed.WithLabelValues(stage, string(apperrors.CodeOf(*errp))).Inc()
	}
}

// Execute runs one chat turn. It never returns an error for a non-nil ctx.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input), nil
}
