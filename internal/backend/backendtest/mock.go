// Package backendtest provides a testify mock of backend.Operations.
package backendtest

import (
	"context"

	"pharmacy-agent/internal/backend"
	"pharmacy-agent/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockOperations struct {
	mock.Mock
}

var _ backend.Operations = (*MockOperations)(nil)

func result(args mock.Arguments) (*models.ToolResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ToolResult), args.Error(1)
}

func (m *MockOperations) CheckInventory(ctx context.Context, name string) (*models.ToolResult, error) {
	return result(m.Called(ctx, name))
}

func (m *MockOperations) SearchMedicines(ctx context.Context, query string) (*models.ToolResult, error) {
	return result(m.Called(ctx, query))
}

func (m *MockOperations) CreateOrder(ctx context.Context, customerID string, medicineID int64, quantity int) (*models.ToolResult, error) {
	return result(m.Called(ctx, customerID, medicineID, quantity))
}

func (m *MockOperations) CheckPrescriptionStatus(ctx context.Context, customerID string, medicineID int64) (*models.ToolResult, error) {
	return result(m.Called(ctx, customerID, medicineID))
}

func (m *MockOperations) VerifyPrescription(ctx context.Context, customerID string, medicineID int64) (*models.ToolResult, error) {
	return result(m.Called(ctx, customerID, medicineID))
}

func (m *MockOperations) UploadPrescription(ctx context.Context, customerID, medicineName string) (*models.ToolResult, error) {
	return result(m.Called(ctx, customerID, medicineName))
}

func (m *MockOperations) GetCustomerHistory(ctx context.Context, customerID string) (*models.ToolResult, error) {
	return result(m.Called(ctx, customerID))
}

func (m *MockOperations) UpdateStock(ctx context.Context, medicineName string, delta int) (*models.ToolResult, error) {
	return result(m.Called(ctx, medicineName, delta))
}

func (m *MockOperations) CancelOrder(ctx context.Context, orderID int64) (*models.ToolResult, error) {
	return result(m.Called(ctx, orderID))
}

func (m *MockOperations) GetOrderStatus(ctx context.Context, orderID int64) (*models.ToolResult, error) {
	return result(m.Called(ctx, orderID))
}

// Inventory builds a successful single-item inventory result.
func Inventory(med models.Medicine) *models.ToolResult {
	return models.Success(models.InventoryResult{Query: med.Name, Items: []models.Medicine{med}})
}
