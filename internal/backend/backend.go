// Package backend defines the pharmacy operations the agent consumes.
//
// Business outcomes (not found, prescription required, insufficient stock)
// are returned as error-tagged ToolResults. A non-nil error means the
// collaborator itself failed and is always a *errors.StandardError in the
// collaborator category.
package backend

import (
	"context"

	"pharmacy-agent/internal/models"
)

// Operation names used for metrics and error details.
const (
	OpCheckInventory          = "check_inventory"
	OpSearchMedicines         = "search_medicines"
	OpCreateOrder             = "create_order"
	OpCheckPrescriptionStatus = "check_prescription_status"
	OpVerifyPrescription      = "verify_prescription"
	OpUploadPrescription      = "upload_prescription"
	OpGetCustomerHistory      = "get_customer_history"
	OpUpdateStock             = "update_stock"
	OpCancelOrder             = "cancel_order"
	OpGetOrderStatus          = "get_order_status"
)

type Operations interface {
	// CheckInventory does a partial, case-insensitive name lookup. No match
	// yields error/not_found.
	CheckInventory(ctx context.Context, name string) (*models.ToolResult, error)
	// SearchMedicines is like CheckInventory but an empty listing is a success.
	SearchMedicines(ctx context.Context, query string) (*models.ToolResult, error)
	// CreateOrder decrements stock and records the order atomically.
	CreateOrder(ctx context.Context, customerID string, medicineID int64, quantity int) (*models.ToolResult, error)
	CheckPrescriptionStatus(ctx context.Context, customerID string, medicineID int64) (*models.ToolResult, error)
	// VerifyPrescription grants a 30-day validity window from now.
	VerifyPrescription(ctx context.Context, customerID string, medicineID int64) (*models.ToolResult, error)
	UploadPrescription(ctx context.Context, customerID, medicineName string) (*models.ToolResult, error)
	// GetCustomerHistory lists orders most recent first.
	GetCustomerHistory(ctx context.Context, customerID string) (*models.ToolResult, error)
	UpdateStock(ctx context.Context, medicineName string, delta int) (*models.ToolResult, error)
	CancelOrder(ctx context.Context, orderID int64) (*models.ToolResult, error)
	GetOrderStatus(ctx context.Context, orderID int64) (*models.ToolResult, error)
}
