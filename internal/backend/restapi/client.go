// internal/backend/restapi/client.go
package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"pharmacy-agent/internal/backend"
	apperrors "pharmacy-agent/internal/common/errors"
	httpclient "pharmacy-agent/internal/common/http"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/models"

	"github.com/go-resty/resty/v2"
)

var errMissingStatus = errors.New("response has no status field")

// Client implements backend.Operations against the pharmacy REST backend.
type Client struct {
	http   *httpclient.Client
	logger logger.Logger
}

var _ backend.Operations = (*Client)(nil)

func New(h *httpclient.Client, log logger.Logger) *Client {
	return &Client{
		http:   h,
		logger: log.WithFields(map[string]interface{}{"component": "restapi"}),
	}
}

// envelope is the wire shape of every backend reply.
type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type createOrderRequest struct {
	CustomerID string `json:"customer_id"`
	MedicineID int64  `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
}

type prescriptionRequest struct {
	CustomerID string `json:"customer_id"`
	MedicineID int64  `json:"medicine_id,omitempty"`
	Medicine   string `json:"medicine,omitempty"`
}

type updateStockRequest struct {
	Medicine string `json:"medicine"`
	Delta    int    `json:"delta"`
}

type cancelOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

// ==========================
// Operations
// ==========================

func (c *Client) CheckInventory(ctx context.Context, name string) (*models.ToolResult, error) {
	resp, err := c.call(ctx, backend.OpCheckInventory, http.MethodGet, "/inventory/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	return decode[models.InventoryResult](backend.OpCheckInventory, resp)
}

func (c *Client) SearchMedicines(ctx context.Context, query string) (*models.ToolResult, error) {
	path := "/search?" + url.Values{"query": {query}}.Encode()
	resp, err := c.call(ctx, backend.OpSearchMedicines, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[models.InventoryResult](backend.OpSearchMedicines, resp)
}

func (c *Client) CreateOrder(ctx context.Context, customerID string, medicineID int64, quantity int) (*models.ToolResult, error) {
	body := createOrderRequest{CustomerID: customerID, MedicineID: medicineID, Quantity: quantity}
	resp, err := c.call(ctx, backend.OpCreateOrder, http.MethodPost, "/create-order", body)
	if err != nil {
		return nil, err
	}
	return decode[models.OrderConfirmation](backend.OpCreateOrder, resp)
}

func (c *Client) CheckPrescriptionStatus(ctx context.Context, customerID string, medicineID int64) (*models.ToolResult, error) {
	path := "/prescription-status/" + url.PathEscape(customerID) + "/" + strconv.FormatInt(medicineID, 10)
	resp, err := c.call(ctx, backend.OpCheckPrescriptionStatus, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[models.PrescriptionResult](backend.OpCheckPrescriptionStatus, resp)
}

func (c *Client) VerifyPrescription(ctx context.Context, customerID string, medicineID int64) (*models.ToolResult, error) {
	body := prescriptionRequest{CustomerID: customerID, MedicineID: medicineID}
	resp, err := c.call(ctx, backend.OpVerifyPrescription, http.MethodPost, "/verify-prescription", body)
	if err != nil {
		return nil, err
	}
	return decode[models.PrescriptionResult](backend.OpVerifyPrescription, resp)
}

func (c *Client) UploadPrescription(ctx context.Context, customerID, medicineName string) (*models.ToolResult, error) {
	body := prescriptionRequest{CustomerID: customerID, Medicine: medicineName}
	resp, err := c.call(ctx, backend.OpUploadPrescription, http.MethodPost, "/upload-prescription", body)
	if err != nil {
		return nil, err
	}
	return decode[models.PrescriptionResult](backend.OpUploadPrescription, resp)
}

func (c *Client) GetCustomerHistory(ctx context.Context, customerID string) (*models.ToolResult, error) {
	resp, err := c.call(ctx, backend.OpGetCustomerHistory, http.MethodGet, "/customer-history/"+url.PathEscape(customerID), nil)
	if err != nil {
		return nil, err
	}
	return decode[models.HistoryResult](backend.OpGetCustomerHistory, resp)
}

func (c *Client) UpdateStock(ctx context.Context, medicineName string, delta int) (*models.ToolResult, error) {
	body := updateStockRequest{Medicine: medicineName, Delta: delta}
	resp, err := c.call(ctx, backend.OpUpdateStock, http.MethodPost, "/update-stock", body)
	if err != nil {
		return nil, err
	}
	return decode[models.StockUpdateResult](backend.OpUpdateStock, resp)
}

func (c *Client) CancelOrder(ctx context.Context, orderID int64) (*models.ToolResult, error) {
	resp, err := c.call(ctx, backend.OpCancelOrder, http.MethodPost, "/cancel-order", cancelOrderRequest{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return decode[models.OrderStatusResult](backend.OpCancelOrder, resp)
}

func (c *Client) GetOrderStatus(ctx context.Context, orderID int64) (*models.ToolResult, error) {
	resp, err := c.call(ctx, backend.OpGetOrderStatus, http.MethodGet, "/order-status/"+strconv.FormatInt(orderID, 10), nil)
	if err != nil {
		return nil, err
	}
	return decode[models.OrderStatusResult](backend.OpGetOrderStatus, resp)
}

// ==========================
// Transport
// ==========================

func (c *Client) call(ctx context.Context, op, method, path string, body interface{}) (*resty.Response, error) {
	resp, err := c.http.Do(ctx, method, path, body)
	if err == nil {
		return resp, nil
	}

	var stdErr *apperrors.StandardError
	if errors.Is(err, httpclient.ErrServerStatus) {
		stdErr = apperrors.NewUnexpectedError(op, err)
	} else {
		stdErr = apperrors.Classify(op, err)
	}

	c.logger.Error("Backend call failed", map[string]interface{}{
		"operation": op,
		"errorCode": string(stdErr.Code),
		"error":     err.Error(),
	})
	return nil, stdErr
}

// decode parses the envelope, placing data into T for non-error statuses.
// Error replies may carry a stock shortage description.
func decode[T models.Payload](op string, resp *resty.Response) (*models.ToolResult, error) {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, apperrors.NewInvalidResponseError(op, err)
	}
	if env.Status == "" {
		return nil, apperrors.NewInvalidResponseError(op, errMissingStatus)
	}

	res := &models.ToolResult{
		Status:  env.Status,
		Code:    apperrors.ErrorCode(env.Code),
		Message: env.Message,
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return res, nil
	}

	if env.Status == models.StatusError {
		switch res.Code {
		case apperrors.ErrCodeInsufficientStock, apperrors.ErrCodeInvalidOperation:
			var shortage models.StockShortage
			if err := json.Unmarshal(env.Data, &shortage); err == nil {
				res.Data = shortage
			}
		}
		return res, nil
	}

	var payload T
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, apperrors.NewInvalidResponseError(op, err)
	}
	res.Data = payload
	return res, nil
}
