// internal/workers/agent/extract-intent/handler.go
package extractintent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"pharmacy-agent/internal/common/cache"
	"pharmacy-agent/internal/common/llm"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/common/metrics"
	"pharmacy-agent/internal/common/validation"
	sanitize "pharmacy-agent/internal/workers/agent/sanitize-fields"
)

const (
	TaskType = "extract-intent"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

// Handler turns free text into a StructuredRequest. Model failures of any
// kind fall back to ParseFallback; the handler only errors on a nil input.
type Handler struct {
	config    *Config
	llm       llm.Completer
	validator *validation.Validator
	session   *cache.Session
	logger    logger.Logger
}

// NewHandler builds an extractor. completer and session may be nil: without a
// completer every turn uses the rule-based parser, without a session there is
// no follow-up context.
func NewHandler(config *Config, completer llm.Completer, validator *validation.Validator, session *cache.Session, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		llm:       completer,
		validator: validator,
		session:   session,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	text := strings.TrimSpace(input.Text)
	customerID := sanitize.SanitizeText(input.CustomerID)
	lastMedicine := h.lastMedicine(ctx, customerID)

	raw, reason := h.fromModel(ctx, text, lastMedicine)
	source := SourceLLM
	if raw == nil {
		source = SourceFallback
		raw = ParseFallback(text)
	}

	req := Normalize(raw, customerID, lastMedicine, text)
	if req.CustomerID == "" {
		req.CustomerID = h.config.DefaultCustomerID
	}

	h.rememberMedicine(ctx, req.CustomerID, req.MedicineName)

	metrics.ExtractionSource.WithLabelValues(source, reason).Inc()
	metrics.RequestsByIntent.WithLabelValues(string(req.Intent)).Inc()
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()

	h.logger.Info("Request extracted", map[string]interface{}{
		"intent":         string(req.Intent),
		"medicine":       req.MedicineName,
		"customerId":     req.CustomerID,
		"source":         source,
		"fallbackReason": reason,
	})
	h.logger.Debug("Extraction input", map[string]interface{}{"text": text})

	return &Output{Request: req, Source: source, FallbackReason: reason}, nil
}

// fromModel returns the decoded model fields, or nil and the reason they are
// unusable.
func (h *Handler) fromModel(ctx context.Context, text, lastMedicine string) (map[string]interface{}, string) {
	if h.llm == nil {
		return nil, ReasonModelDisabled
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	out, err := h.llm.Complete(ctx, systemPrompt, userPrompt(text, lastMedicine))
	if err != nil {
		reason := ReasonModelError
		switch {
		case errors.Is(err, llm.ErrTimeout):
			reason = ReasonModelTimeout
		case errors.Is(err, llm.ErrEmptyCompletion):
			reason = ReasonEmptyOutput
		}
		h.fallback(reason, err.Error())
		return nil, reason
	}

	body := jsonObject(out)
	if body == "" {
		h.fallback(ReasonEmptyOutput, "no JSON object in completion")
		return nil, ReasonEmptyOutput
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		h.fallback(ReasonMalformedJSON, err.Error())
		return nil, ReasonMalformedJSON
	}

	if h.validator != nil {
		result, err := h.validator.Validate(raw)
		if err != nil {
			h.fallback(ReasonSchemaViolation, err.Error())
			return nil, ReasonSchemaViolation
		}
		if !result.Valid {
			h.fallback(ReasonSchemaViolation, strings.Join(result.Summary(), "; "))
			return nil, ReasonSchemaViolation
		}
	}

	return raw, ReasonNone
}

func (h *Handler) fallback(reason, detail string) {
	metrics.StageFailed.WithLabelValues(TaskType, reason).Inc()
	h.logger.Warn("Model extraction unusable, using rule-based parser", map[string]interface{}{
		"reason": reason,
		"error":  detail,
	})
}

func (h *Handler) lastMedicine(ctx context.Context, customerID string) string {
	if h.session == nil {
		return ""
	}
	if customerID == "" {
		customerID = h.config.DefaultCustomerID
	}
	name, err := h.session.LastMedicine(ctx, customerID)
	if err != nil {
		h.logger.Warn("Failed to read conversation context", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return name
}

func (h *Handler) rememberMedicine(ctx context.Context, customerID, medicine string) {
	if h.session == nil || medicine == "" {
		return
	}
	if err := h.session.SaveLastMedicine(ctx, customerID, medicine); err != nil {
		h.logger.Warn("Failed to store conversation context", map[string]interface{}{"error": err.Error()})
	}
}

// jsonObject returns the outermost {...} span of s, which tolerates
// code fences and chatter around the object.
func jsonObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
