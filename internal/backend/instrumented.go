// internal/backend/instrumented.go
package backend

import (
	"context"
	"time"

	"pharmacy-agent/internal/common/metrics"
	"pharmacy-agent/internal/models"
)

// Instrumented records the duration and outcome of every call to next.
type Instrumented struct {
	next Operations
}

func NewInstrumented(next Operations) *Instrumented {
	return &Instrumented{next: next}
}

func observe(op string, start time.Time, res *models.ToolResult, err error) {
	status := "failed"
	if err == nil && res != nil {
		status = res.Status
	}
	metrics.BackendDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func (i *Instrumented) CheckInventory(ctx context.Context, name string) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpCheckInventory, start, res, err) }(time.Now())
	return i.next.CheckInventory(ctx, name)
}

func (i *Instrumented) SearchMedicines(ctx context.Context, query string) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpSearchMedicines, start, res, err) }(time.Now())
	return i.next.SearchMedicines(ctx, query)
}

func (i *Instrumented) CreateOrder(ctx context.Context, customerID string, medicineID int64, quantity int) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpCreateOrder, start, res, err) }(time.Now())
	return i.next.CreateOrder(ctx, customerID, medicineID, quantity)
}

func (i *Instrumented) CheckPrescriptionStatus(ctx context.Context, customerID string, medicineID int64) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpCheckPrescriptionStatus, start, res, err) }(time.Now())
	return i.next.CheckPrescriptionStatus(ctx, customerID, medicineID)
}

func (i *Instrumented) VerifyPrescription(ctx context.Context, customerID string, medicineID int64) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpVerifyPrescription, start, res, err) }(time.Now())
	return i.next.VerifyPrescription(ctx, customerID, medicineID)
}

func (i *Instrumented) UploadPrescription(ctx context.Context, customerID, medicineName string) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpUploadPrescription, start, res, err) }(time.Now())
	return i.next.UploadPrescription(ctx, customerID, medicineName)
}

func (i *Instrumented) GetCustomerHistory(ctx context.Context, customerID string) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpGetCustomerHistory, start, res, err) }(time.Now())
	return i.next.GetCustomerHistory(ctx, customerID)
}

func (i *Instrumented) UpdateStock(ctx context.Context, medicineName string, delta int) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpUpdateStock, start, res, err) }(time.Now())
	return i.next.UpdateStock(ctx, medicineName, delta)
}

func (i *Instrumented) CancelOrder(ctx context.Context, orderID int64) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpCancelOrder, start, res, err) }(time.Now())
	return i.next.CancelOrder(ctx, orderID)
}

func (i *Instrumented) GetOrderStatus(ctx context.Context, orderID int64) (res *models.ToolResult, err error) {
	defer func(start time.Time) { observe(OpGetOrderStatus, start, res, err) }(time.Now())
	return i.next.GetOrderStatus(ctx, orderID)
}
