// Package errors provides the error taxonomy shared by the agent stages and
// the backend collaborators.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is the machine-readable code carried in a ToolResult.
type ErrorCode string

// Input validation
const (
	ErrCodeMissingMedicine ErrorCode = "missing_medicine"
	ErrCodeInvalidQuantity ErrorCode = "invalid_quantity"
	ErrCodeValidation      ErrorCode = "validation_error"
)

// Business rule rejections
const (
	ErrCodePrescriptionRequired ErrorCode = "prescription_required"
	ErrCodeInsufficientStock    ErrorCode = "insufficient_stock"
	ErrCodeNotFound             ErrorCode = "not_found"
	ErrCodeOrderNotFound        ErrorCode = "order_not_found"
	ErrCodeInvalidOperation     ErrorCode = "invalid_operation"
	ErrCodeMonthlyLimitExceeded ErrorCode = "monthly_limit_exceeded"
)

// Collaborator failures
const (
	ErrCodeBackendTimeout     ErrorCode = "backend_timeout"
	ErrCodeBackendUnreachable ErrorCode = "backend_unreachable"
	ErrCodeInvalidResponse    ErrorCode = "invalid_response"
	ErrCodeUnexpected         ErrorCode = "unexpected_error"
)

// Internal
const (
	ErrCodeInternal ErrorCode = "internal_error"
)

// Categories returned by GetErrorCategory.
const (
	CategoryInput        = "INPUT"
	CategoryBusiness     = "BUSINESS"
	CategoryCollaborator = "COLLABORATOR"
	CategoryInternal     = "INTERNAL"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewMissingMedicineError is returned when an intent needs a medicine name and has none.
func NewMissingMedicineError(intent string) *StandardError {
	return newError(ErrCodeMissingMedicine, "Medicine name is required", fmt.Sprintf("intent: %s", intent), nil)
}

// NewInvalidQuantityError rejects non-positive order quantities.
func NewInvalidQuantityError(quantity int) *StandardError {
	return newError(ErrCodeInvalidQuantity, "Quantity must be greater than zero", fmt.Sprintf("quantity: %d", quantity), nil)
}

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidation, "Validation failed", details, nil)
}

func NewNotFoundError(name string) *StandardError {
	return newError(ErrCodeNotFound, "Medicine not found", fmt.Sprintf("name: %s", name), nil)
}

func NewOrderNotFoundError(orderID int64) *StandardError {
	return newError(ErrCodeOrderNotFound, fmt.Sprintf("Order %d not found", orderID), "", nil)
}

func NewInvalidOperationError(message string) *StandardError {
	return newError(ErrCodeInvalidOperation, message, "", nil)
}

// NewBackendTimeoutError wraps a collaborator call that ran past its deadline.
func NewBackendTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeBackendTimeout, "Backend request timed out", fmt.Sprintf("operation: %s, error: %v", operation, err), err)
}

// NewBackendUnreachableError wraps connection failures and open circuits.
func NewBackendUnreachableError(operation string, err error) *StandardError {
	return newError(ErrCodeBackendUnreachable, "Backend is unreachable", fmt.Sprintf("operation: %s, error: %v", operation, err), err)
}

// NewInvalidResponseError wraps an undecodable or non-2xx collaborator reply.
func NewInvalidResponseError(operation string, err error) *StandardError {
	return newError(ErrCodeInvalidResponse, "Backend returned an invalid response", fmt.Sprintf("operation: %s, error: %v", operation, err), err)
}

func NewUnexpectedError(operation string, err error) *StandardError {
	return newError(ErrCodeUnexpected, "Unexpected backend error", fmt.Sprintf("operation: %s, error: %v", operation, err), err)
}

func NewInternalError(stage string, err error) *StandardError {
	return newError(ErrCodeInternal, "Internal error", fmt.Sprintf("stage: %s, error: %v", stage, err), err)
}

// ==========================
// 3. Classification
// ==========================

// Classify maps an arbitrary collaborator error onto the taxonomy. Errors that
// already carry a code keep it.
func Classify(operation string, err error) *StandardError {
	if err == nil {
		return nil
	}

	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var netErr net.Error
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewBackendTimeoutError(operation, err)
	case stderrors.As(err, &netErr) && netErr.Timeout():
		return NewBackendTimeoutError(operation, err)
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return NewBackendUnreachableError(operation, err)
	case stderrors.Is(err, syscall.ECONNREFUSED), stderrors.Is(err, syscall.ECONNRESET):
		return NewBackendUnreachableError(operation, err)
	}

	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return NewBackendUnreachableError(operation, err)
	}
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return NewBackendUnreachableError(operation, err)
	}

	return NewUnexpectedError(operation, err)
}

// CodeOf returns the code carried by err, or internal_error.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// ==========================
// 4. Utility Functions
// ==========================

// IsCollaboratorErrorCode reports whether the code denotes a backend failure
// that should be rendered as a generic apology.
func IsCollaboratorErrorCode(code ErrorCode) bool {
	return GetErrorCategory(code) == CategoryCollaborator
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeMissingMedicine, ErrCodeInvalidQuantity, ErrCodeValidation:
		return CategoryInput
	case ErrCodePrescriptionRequired, ErrCodeInsufficientStock, ErrCodeNotFound,
		ErrCodeOrderNotFound, ErrCodeInvalidOperation, ErrCodeMonthlyLimitExceeded:
		return CategoryBusiness
	case ErrCodeBackendTimeout, ErrCodeBackendUnreachable, ErrCodeInvalidResponse, ErrCodeUnexpected:
		return CategoryCollaborator
	}
	if strings.HasPrefix(string(code), "backend_") {
		return CategoryCollaborator
	}
	return CategoryInternal
}
