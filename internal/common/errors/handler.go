// internal/common/errors/handler.go
package errors

import (
	"fmt"
	"time"
)

// ErrorHandler normalizes and logs failures of a single pipeline stage.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleStageError logs err against the stage and returns its normalized form.
func (h *ErrorHandler) HandleStageError(stage string, err error) *StandardError {
	if err == nil {
		return nil
	}
	stdErr := h.normalizeError(stage, err)
	h.logError(stage, stdErr)
	return stdErr
}

// Recover turns a panic inside a stage, or the error the stage returned, into
// a logged StandardError stored in *errp. It must be called directly via defer.
func (h *ErrorHandler) Recover(stage string, errp *error) {
	if r := recover(); r != nil {
		panicErr, ok := r.(error)
		if !ok {
			panicErr = fmt.Errorf("panic: %v", r)
		}
		*errp = panicErr
	}
	if *errp == nil {
		return
	}
	*errp = h.HandleStageError(stage, *errp)
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(stage string, err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Stage failed",
		Details:   fmt.Sprintf("stage: %s, error: %v", stage, err),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(stage string, stdErr *StandardError) {
	h.logger.Error("Stage failed", map[string]interface{}{
		"stage":         stage,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
}
