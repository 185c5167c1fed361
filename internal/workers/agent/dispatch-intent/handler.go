// internal/workers/agent/dispatch-intent/handler.go
package dispatchintent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacy-agent/internal/backend"
	"pharmacy-agent/internal/common/cache"
	apperrors "pharmacy-agent/internal/common/errors"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/common/metrics"
	"pharmacy-agent/internal/models"
	"pharmacy-agent/internal/rules"
)

const (
	TaskType = "dispatch-intent"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

const prescriptionRequiredMessage = "A valid prescription is required for this medicine."

// Handler routes a StructuredRequest to backend operations and applies the
// ordering rules. Business rejections and collaborator failures both come
// back as error-tagged ToolResults.
type Handler struct {
	config   *Config
	backend  backend.Operations
	session  *cache.Session
	rules    *rules.Book
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
}

// NewHandler wires a dispatcher. session, book and notifier may be nil.
func NewHandler(config *Config, ops backend.Operations, session *cache.Session, book *rules.Book, notifier Notifier, log logger.Logger) *Handler {
	if book == nil {
		book = rules.Empty()
	}
	return &Handler{
		config:   config,
		backend:  ops,
		session:  session,
		rules:    book,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:      time.Now,
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

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	req := input.Request
	if req.CustomerID == "" {
		req.CustomerID = h.config.DefaultCustomerID
	}

	var result *models.ToolResult
	if cmd, ok := MatchCommand(input.RawText); ok {
		result = h.runCommand(ctx, cmd)
	} else {
		result = h.route(ctx, req)
	}

	metrics.DispatchOutcomes.WithLabelValues(result.Status, string(result.Code)).Inc()
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()

	h.logger.Info("Request dispatched", map[string]interface{}{
		"intent":     string(req.Intent),
		"customerId": req.CustomerID,
		"status":     result.Status,
		"code":       string(result.Code),
		"resultKind": result.Kind(),
	})

	return &Output{Result: result}, nil
}

// ==========================
// Literal commands
// ==========================

func (h *Handler) runCommand(ctx context.Context, cmd Command) *models.ToolResult {
	if cmd.Problem != "" {
		return models.Failure(apperrors.ErrCodeValidation, cmd.Problem)
	}

	switch cmd.Kind {
	case CommandCancelOrder:
		res, err := h.backend.CancelOrder(ctx, cmd.OrderID)
		return h.outcome(backend.OpCancelOrder, res, err)
	case CommandOrderStatus:
		res, err := h.backend.GetOrderStatus(ctx, cmd.OrderID)
		return h.outcome(backend.OpGetOrderStatus, res, err)
	case CommandSearch:
		res, err := h.backend.SearchMedicines(ctx, cmd.Query)
		return h.outcome(backend.OpSearchMedicines, res, err)
	}
	return models.Smalltalk()
}

// ==========================
// Intent routing
// ==========================

func (h *Handler) route(ctx context.Context, req models.StructuredRequest) *models.ToolResult {
	switch req.Intent {
	case models.IntentInventory:
		if !req.HasMedicine() {
			return models.FromError(apperrors.NewMissingMedicineError(string(req.Intent)))
		}
		res, err := h.backend.CheckInventory(ctx, req.MedicineName)
		return h.outcome(backend.OpCheckInventory, res, err)

	case models.IntentOrder:
		return h.order(ctx, req)

	case models.IntentUploadPrescription:
		return h.uploadPrescription(ctx, req)

	case models.IntentUpdateStock:
		if !req.HasMedicine() {
			return models.FromError(apperrors.NewMissingMedicineError(string(req.Intent)))
		}
		if req.Delta == nil {
			return models.FromError(apperrors.NewValidationError("a stock adjustment amount is required"))
		}
		res, err := h.backend.UpdateStock(ctx, req.MedicineName, *req.Delta)
		return h.outcome(backend.OpUpdateStock, res, err)

	case models.IntentHistory:
		return h.history(ctx, req.CustomerID)
	}

	return models.Smalltalk()
}

// order resolves the medicine, then checks the prescription, then the
// monthly limit, and only then creates the order.
func (h *Handler) order(ctx context.Context, req models.StructuredRequest) *models.ToolResult {
	if !req.HasMedicine() {
		return models.FromError(apperrors.NewMissingMedicineError(string(req.Intent)))
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		return models.FromError(apperrors.NewInvalidQuantityError(quantity))
	}

	med, rejected := h.resolveMedicine(ctx, req.MedicineName)
	if rejected != nil {
		return rejected
	}

	if med.PrescriptionRequired || h.rules.RequiresPrescription(med.Name) {
		valid, failure := h.prescriptionValid(ctx, req.CustomerID, med)
		if failure != nil {
			return failure
		}
		if !valid {
			return models.Failure(apperrors.ErrCodePrescriptionRequired, prescriptionRequiredMessage)
		}
	}

	if rule, ok := h.rules.Lookup(med.Name); ok && rule.MaxMonthlyQuantity > 0 {
		history, failure := h.orderHistory(ctx, req.CustomerID)
		if failure != nil {
			return failure
		}
		if limit := h.rules.CheckMonthlyLimit(med.Name, quantity, history); limit != nil {
			return models.FailureWith(apperrors.ErrCodeMonthlyLimitExceeded,
				fmt.Sprintf("Monthly limit for %s is %d units; you have ordered %d this month.", med.Name, limit.Limit, limit.Used),
				*limit)
		}
	}

	res, err := h.backend.CreateOrder(ctx, req.CustomerID, med.ID, quantity)
	result := h.outcome(backend.OpCreateOrder, res, err)
	if !result.IsSuccess() {
		return result
	}

	if conf, ok := result.Data.(models.OrderConfirmation); ok {
		h.notify(models.EventOrderCreated, map[string]interface{}{
			"order_id":    conf.OrderID,
			"customer_id": req.CustomerID,
			"medicine":    conf.Medicine,
			"quantity":    conf.Quantity,
			"total_price": conf.TotalPrice,
		})
		if conf.RemainingStock != nil && *conf.RemainingStock < h.config.LowStockThreshold {
			h.notify(models.EventLowStock, map[string]interface{}{
				"medicine_id":     med.ID,
				"medicine":        med.Name,
				"remaining_stock": *conf.RemainingStock,
				"threshold":       h.config.LowStockThreshold,
			})
		}
	}
	return result
}

func (h *Handler) uploadPrescription(ctx context.Context, req models.StructuredRequest) *models.ToolResult {
	if !req.HasMedicine() {
		return models.FromError(apperrors.NewMissingMedicineError(string(req.Intent)))
	}

	med, rejected := h.resolveMedicine(ctx, req.MedicineName)
	if rejected != nil {
		return rejected
	}

	res, err := h.backend.UploadPrescription(ctx, req.CustomerID, med.Name)
	result := h.outcome(backend.OpUploadPrescription, res, err)
	if result.Status != models.StatusVerified {
		return result
	}

	if p, ok := result.Data.(models.PrescriptionResult); ok {
		h.rememberPrescription(ctx, req.CustomerID, med.ID, p.ValidUntil)
		h.notify(models.EventPrescriptionUploaded, map[string]interface{}{
			"customer_id": req.CustomerID,
			"medicine":    med.Name,
			"valid_until": p.ValidUntil.UTC().Format(time.RFC3339),
		})
	}
	return result
}

func (h *Handler) history(ctx context.Context, customerID string) *models.ToolResult {
	res, err := h.backend.GetCustomerHistory(ctx, customerID)
	result := h.outcome(backend.OpGetCustomerHistory, res, err)

	if hist, ok := result.Data.(models.HistoryResult); ok && result.IsSuccess() {
		hist.RefillDue = h.rules.RefillDue(hist.Orders)
		result = &models.ToolResult{
			Status:   result.Status,
			Code:     result.Code,
			Message:  result.Message,
			Response: result.Response,
			Data:     hist,
		}
	}
	return result
}

// ==========================
// Helpers
// ==========================

// resolveMedicine returns the first inventory match, or the result to hand
// back when there is none.
func (h *Handler) resolveMedicine(ctx context.Context, name string) (models.Medicine, *models.ToolResult) {
	res, err := h.backend.CheckInventory(ctx, name)
	result := h.outcome(backend.OpCheckInventory, res, err)
	if !result.IsSuccess() {
		return models.Medicine{}, result
	}

	inv, ok := result.Data.(models.InventoryResult)
	if !ok || len(inv.Items) == 0 {
		return models.Medicine{}, models.FromError(apperrors.NewNotFoundError(name))
	}
	return inv.Items[0], nil
}

// prescriptionValid consults the verification cache and then the store. A
// cached verification is trusted only when the inventory flag is set, since
// order creation re-checks those prescriptions itself.
func (h *Handler) prescriptionValid(ctx context.Context, customerID string, med models.Medicine) (bool, *models.ToolResult) {
	if med.PrescriptionRequired && h.session != nil {
		until, found, err := h.session.PrescriptionVerifiedUntil(ctx, customerID, med.ID)
		if err != nil {
			h.logger.Warn("Prescription cache unavailable", map[string]interface{}{"error": err.Error()})
		} else if found && h.now().Before(until) {
			return true, nil
		}
	}

	res, err := h.backend.CheckPrescriptionStatus(ctx, customerID, med.ID)
	result := h.outcome(backend.OpCheckPrescriptionStatus, res, err)
	if result.Status == models.StatusError && apperrors.IsCollaboratorErrorCode(result.Code) {
		return false, result
	}
	if result.Status != models.StatusVerified {
		return false, nil
	}

	if p, ok := result.Data.(models.PrescriptionResult); ok {
		h.rememberPrescription(ctx, customerID, med.ID, p.ValidUntil)
	}
	return true, nil
}

func (h *Handler) orderHistory(ctx context.Context, customerID string) ([]models.OrderRecord, *models.ToolResult) {
	res, err := h.backend.GetCustomerHistory(ctx, customerID)
	result := h.outcome(backend.OpGetCustomerHistory, res, err)
	if !result.IsSuccess() {
		return nil, result
	}
	hist, _ := result.Data.(models.HistoryResult)
	return hist.Orders, nil
}

func (h *Handler) rememberPrescription(ctx context.Context, customerID string, medicineID int64, until time.Time) {
	if h.session == nil || until.IsZero() {
		return
	}
	if err := h.session.MarkPrescriptionVerified(ctx, customerID, medicineID, until); err != nil {
		h.logger.Warn("Failed to cache prescription", map[string]interface{}{"error": err.Error()})
	}
}

// outcome folds a collaborator error into an error-tagged result.
func (h *Handler) outcome(op string, res *models.ToolResult, err error) *models.ToolResult {
	if err == nil && res != nil {
		return res
	}
	if err == nil {
		err = errors.New("empty result")
	}

	stdErr := apperrors.Classify(op, err)
	metrics.StageFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.logger.Error("Backend operation failed", map[string]interface{}{
		"operation": op,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	})
	return models.FromError(stdErr)
}

func (h *Handler) notify(eventType string, data map[string]interface{}) {
	if h.notifier == nil {
		return
	}
	h.notifier.Notify(eventType, data)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
