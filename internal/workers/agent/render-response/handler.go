// internal/workers/agent/render-response/handler.go
package renderresponse

import (
	"context"
	"errors"
	"time"

	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/common/metrics"
	"pharmacy-agent/internal/models"
)

const (
	TaskType = "render-response"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

type Input struct {
	Result *models.ToolResult `json:"result"`
}

type Output struct {
	Text string `json:"text"`
}

type Handler struct {
	logger logger.Logger
}

func NewHandler(log logger.Logger) *Handler {
	return &Handler{
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrInvalidInput
	}

	start := time.Now()
	text := Render(input.Result)

	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()

	h.logger.Debug("Response rendered", map[string]interface{}{
		"resultKind": input.Result.Kind(),
		"text":       text,
	})
	return &Output{Text: text}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
