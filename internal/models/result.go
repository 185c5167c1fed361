// internal/models/result.go
package models

import (
	"time"

	apperrors "pharmacy-agent/internal/common/errors"
)

// Result statuses
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusSmalltalk   = "smalltalk"
	StatusVerified    = "verified"
	StatusNotVerified = "not_verified"
	StatusExpired     = "expired"
	StatusPending     = "pending"
	StatusRejected    = "rejected"
	StatusNotFound    = "not_found"
	StatusCancelled   = "cancelled"
)

// ToolResult is the tagged outcome of a backend operation or of the dispatcher.
// Data holds exactly one of the Payload variants below, or nil.
type ToolResult struct {
	Status   string              `json:"status"`
	Code     apperrors.ErrorCode `json:"code,omitempty"`
	Message  string              `json:"message,omitempty"`
	Response string              `json:"response,omitempty"`
	Data     Payload             `json:"data,omitempty"`
}

// Payload is implemented only by the result variants in this package.
type Payload interface {
	payloadKind() string
}

// InventoryResult lists medicines matching a name lookup or search.
type InventoryResult struct {
	Query string     `json:"query"`
	Items []Medicine `json:"items"`
}

// HistoryResult lists a customer's orders, most recent first.
type HistoryResult struct {
	CustomerID string           `json:"customer_id"`
	Orders     []OrderRecord    `json:"orders"`
	RefillDue  []RefillReminder `json:"refill_due,omitempty"`
}

type RefillReminder struct {
	Medicine string    `json:"medicine"`
	DueOn    time.Time `json:"due_on"`
}

// OrderConfirmation is returned by a successful order creation.
type OrderConfirmation struct {
	OrderID        int64   `json:"order_id"`
	MedicineID     int64   `json:"medicine_id"`
	Medicine       string  `json:"medicine"`
	Quantity       int     `json:"quantity"`
	TotalPrice     float64 `json:"total_price"`
	// RemainingStock is nil when the backend did not report it.
	RemainingStock *int `json:"remaining_stock,omitempty"`
}

// PrescriptionResult carries a prescription lookup or verification.
// ValidUntil is zero when no prescription is on file.
type PrescriptionResult struct {
	CustomerID string    `json:"customer_id"`
	MedicineID int64     `json:"medicine_id"`
	Medicine   string    `json:"medicine"`
	ValidUntil time.Time `json:"valid_until,omitempty"`
}

type OrderStatusResult struct {
	Order OrderRecord `json:"order"`
}

type StockUpdateResult struct {
	Medicine string `json:"medicine"`
	Delta    int    `json:"delta"`
	NewStock int    `json:"new_stock"`
}

// StockShortage accompanies insufficient_stock.
type StockShortage struct {
	Medicine  string `json:"medicine"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// MonthlyLimit accompanies monthly_limit_exceeded.
type MonthlyLimit struct {
	Medicine  string `json:"medicine"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Requested int    `json:"requested"`
}

type GenericMessage struct {
	Text string `json:"text"`
}

func (InventoryResult) payloadKind() string    { return "inventory" }
func (HistoryResult) payloadKind() string      { return "history" }
func (OrderConfirmation) payloadKind() string  { return "order_confirmation" }
func (PrescriptionResult) payloadKind() string { return "prescription" }
func (OrderStatusResult) payloadKind() string  { return "order_status" }
func (StockUpdateResult) payloadKind() string  { return "stock_update" }
func (StockShortage) payloadKind() string      { return "stock_shortage" }
func (MonthlyLimit) payloadKind() string       { return "monthly_limit" }
func (GenericMessage) payloadKind() string     { return "message" }

// Kind names the variant held by Data, or "" when empty.
func (r *ToolResult) Kind() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.payloadKind()
}

// IsSuccess reports whether the result carries the success tag.
func (r *ToolResult) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}

// ==========================
// Constructors
// ==========================

func Success(data Payload) *ToolResult {
	return &ToolResult{Status: StatusSuccess, Data: data}
}

func SuccessMessage(message string) *ToolResult {
	return &ToolResult{Status: StatusSuccess, Message: message, Data: GenericMessage{Text: message}}
}

func Smalltalk() *ToolResult {
	return &ToolResult{Status: StatusSmalltalk}
}

func WithStatus(status string, data Payload) *ToolResult {
	return &ToolResult{Status: status, Data: data}
}

// Failure builds an error result with a machine code and optional message.
func Failure(code apperrors.ErrorCode, message string) *ToolResult {
	return &ToolResult{Status: StatusError, Code: code, Message: message}
}

// FailureWith attaches a payload describing the rejection.
func FailureWith(code apperrors.ErrorCode, message string, data Payload) *ToolResult {
	return &ToolResult{Status: StatusError, Code: code, Message: message, Data: data}
}

// FromError converts a collaborator failure into an error result.
func FromError(err *apperrors.StandardError) *ToolResult {
	if err == nil {
		return Failure(apperrors.ErrCodeInternal, "")
	}
	return Failure(err.Code, err.Message)
}
