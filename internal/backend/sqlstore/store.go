// internal/backend/sqlstore/store.go
package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"pharmacy-agent/internal/backend"
	"pharmacy-agent/internal/common/database"
	apperrors "pharmacy-agent/internal/common/errors"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/models"
)

const medicineColumns = `id, name, price, stock, prescription_required`

const orderColumns = `id, customer_id, medicine_id, medicine_name, quantity, total_price, status, purchase_date`

// Exact (case-insensitive) matches sort ahead of partial ones.
const medicineLookup = `SELECT ` + medicineColumns + ` FROM medicines
	WHERE LOWER(name) LIKE LOWER($1) ESCAPE '\'
	ORDER BY CASE WHEN LOWER(name) = LOWER($2) THEN 0 ELSE 1 END, name`

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store implements backend.Operations on PostgreSQL or SQLite.
type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

var _ backend.Operations = (*Store)(nil)

func New(client *database.SQLClient, log logger.Logger) *Store {
	return &Store{
		db:     client.DB,
		logger: log.WithFields(map[string]interface{}{"component": "sqlstore", "dialect": string(client.Dialect)}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ==========================
// Inventory
// ==========================

func (s *Store) CheckInventory(ctx context.Context, name string) (*models.ToolResult, error) {
	items, err := s.findMedicines(ctx, s.db, name)
	if err != nil {
		return nil, s.fail(backend.OpCheckInventory, err)
	}
	if len(items) == 0 {
		return models.Failure(apperrors.ErrCodeNotFound, "Medicine not found"), nil
	}
	return models.Success(models.InventoryResult{Query: name, Items: items}), nil
}

func (s *Store) SearchMedicines(ctx context.Context, query string) (*models.ToolResult, error) {
	items, err := s.findMedicines(ctx, s.db, query)
	if err != nil {
		return nil, s.fail(backend.OpSearchMedicines, err)
	}
	if items == nil {
		items = []models.Medicine{}
	}
	return models.Success(models.InventoryResult{Query: query, Items: items}), nil
}

func (s *Store) UpdateStock(ctx context.Context, medicineName string, delta int) (*models.ToolResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.fail(backend.OpUpdateStock, err)
	}
	defer tx.Rollback()

	items, err := s.findMedicines(ctx, tx, medicineName)
	if err != nil {
		return nil, s.fail(backend.OpUpdateStock, err)
	}
	if len(items) == 0 {
		return models.Failure(apperrors.ErrCodeNotFound, "Medicine not found"), nil
	}

	med := items[0]
	newStock := med.Stock + delta
	if newStock < 0 {
		return models.FailureWith(apperrors.ErrCodeInvalidOperation,
			fmt.Sprintf("Stock for %s cannot go below zero", med.Name),
			models.StockShortage{Medicine: med.Name, Requested: -delta, Available: med.Stock}), nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE medicines SET stock = $1 WHERE id = $2`, newStock, med.ID); err != nil {
		return nil, s.fail(backend.OpUpdateStock, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.fail(backend.OpUpdateStock, err)
	}

	s.logger.Info("Stock updated", map[string]interface{}{
		"medicine": med.Name,
		"delta":    delta,
		"newStock": newStock,
	})
	return models.Success(models.StockUpdateResult{Medicine: med.Name, Delta: delta, NewStock: newStock}), nil
}

// ==========================
// Orders
// ==========================

func (s *Store) CreateOrder(ctx context.Context, customerID string, medicineID int64, quantity int) (*models.ToolResult, error) {
	if quantity <= 0 {
		return models.Failure(apperrors.ErrCodeInvalidQuantity, "Quantity must be greater than zero"), nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.fail(backend.OpCreateOrder, err)
	}
	defer tx.Rollback()

	med, err := scanMedicine(tx.QueryRowContext(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, medicineID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.Failure(apperrors.ErrCodeNotFound, "Medicine not found"), nil
	}
	if err != nil {
		return nil, s.fail(backend.OpCreateOrder, err)
	}

	now := s.now()
	if med.PrescriptionRequired {
		validUntil, err := s.prescriptionExpiry(ctx, tx, customerID, medicineID)
		if err != nil {
			return nil, s.fail(backend.OpCreateOrder, err)
		}
		if validUntil.IsZero() || !now.Before(validUntil) {
			return models.Failure(apperrors.ErrCodePrescriptionRequired,
				"A valid prescription is required for this medicine."), nil
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE medicines SET stock = stock - $1 WHERE id = $2 AND stock >= $3`,
		quantity, medicineID, quantity)
	if err != nil {
		return nil, s.fail(backend.OpCreateOrder, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, s.fail(backend.OpCreateOrder, err)
	}
	if affected == 0 {
		return models.FailureWith(apperrors.ErrCodeInsufficientStock, "Insufficient stock available",
			models.StockShortage{Medicine: med.Name, Requested: quantity, Available: med.Stock}), nil
	}

	total := math.Round(med.Price*float64(quantity)*100) / 100

	var orderID int64
	err = tx.QueryRowContext(ctx, `INSERT INTO orders
		(customer_id, medicine_id, medicine_name, quantity, total_price, status, purchase_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		customerID, medicineID, med.Name, quantity, total, models.OrderStatusPlaced, now,
	).Scan(&orderID)
	if err != nil {
		return nil, s.fail(backend.OpCreateOrder, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.fail(backend.OpCreateOrder, err)
	}

	s.logger.Info("Order created", map[string]interface{}{
		"orderId":    orderID,
		"customerId": customerID,
		"medicine":   med.Name,
		"quantity":   quantity,
	})

	return models.Success(models.OrderConfirmation{
		OrderID:        orderID,
		MedicineID:     medicineID,
		Medicine:       med.Name,
		Quantity:       quantity,
		TotalPrice:     total,
		RemainingStock: models.IntPtr(med.Stock - quantity),
	}), nil
}

func (s *Store) GetCustomerHistory(ctx context.Context, customerID string) (*models.ToolResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1
		ORDER BY purchase_date DESC, id DESC`, customerID)
	if err != nil {
		return nil, s.fail(backend.OpGetCustomerHistory, err)
	}
	defer rows.Close()

	orders := []models.OrderRecord{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, s.fail(backend.OpGetCustomerHistory, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(backend.OpGetCustomerHistory, err)
	}

	return models.Success(models.HistoryResult{CustomerID: customerID, Orders: orders}), nil
}

func (s *Store) GetOrderStatus(ctx context.Context, orderID int64) (*models.ToolResult, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.FromError(apperrors.NewOrderNotFoundError(orderID)), nil
	}
	if err != nil {
		return nil, s.fail(backend.OpGetOrderStatus, err)
	}
	return models.Success(models.OrderStatusResult{Order: order}), nil
}

// CancelOrder marks the order cancelled and puts its quantity back in stock.
func (s *Store) CancelOrder(ctx context.Context, orderID int64) (*models.ToolResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.fail(backend.OpCancelOrder, err)
	}
	defer tx.Rollback()

	order, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.FromError(apperrors.NewOrderNotFoundError(orderID)), nil
	}
	if err != nil {
		return nil, s.fail(backend.OpCancelOrder, err)
	}
	if order.Status == models.OrderStatusCancelled {
		return models.Failure(apperrors.ErrCodeInvalidOperation,
			fmt.Sprintf("Order %d is already cancelled", orderID)), nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`,
		models.OrderStatusCancelled, orderID); err != nil {
		return nil, s.fail(backend.OpCancelOrder, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE medicines SET stock = stock + $1 WHERE id = $2`,
		order.Quantity, order.MedicineID); err != nil {
		return nil, s.fail(backend.OpCancelOrder, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.fail(backend.OpCancelOrder, err)
	}

	order.Status = models.OrderStatusCancelled
	s.logger.Info("Order cancelled", map[string]interface{}{"orderId": orderID})

	res := models.WithStatus(models.StatusCancelled, models.OrderStatusResult{Order: order})
	res.Message = fmt.Sprintf("Order %d has been cancelled.", orderID)
	return res, nil
}

// ==========================
// Prescriptions
// ==========================

func (s *Store) CheckPrescriptionStatus(ctx context.Context, customerID string, medicineID int64) (*models.ToolResult, error) {
	var (
		name      string
		expiresAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `SELECT m.name, p.expires_at
		FROM medicines m
		LEFT JOIN prescriptions p ON p.medicine_id = m.id AND p.customer_id = $1
		WHERE m.id = $2`, customerID, medicineID).Scan(&name, &expiresAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.Failure(apperrors.ErrCodeNotFound, "Medicine not found"), nil
	}
	if err != nil {
		return nil, s.fail(backend.OpCheckPrescriptionStatus, err)
	}

	payload := models.PrescriptionResult{CustomerID: customerID, MedicineID: medicineID, Medicine: name}
	switch {
	case !expiresAt.Valid:
		return models.WithStatus(models.StatusNotVerified, payload), nil
	case !s.now().Before(expiresAt.Time):
		payload.ValidUntil = expiresAt.Time.UTC()
		return models.WithStatus(models.StatusExpired, payload), nil
	default:
		payload.ValidUntil = expiresAt.Time.UTC()
		return models.WithStatus(models.StatusVerified, payload), nil
	}
}

func (s *Store) VerifyPrescription(ctx context.Context, customerID string, medicineID int64) (*models.ToolResult, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM medicines WHERE id = $1`, medicineID).Scan(&name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.Failure(apperrors.ErrCodeNotFound, "Medicine not found"), nil
	}
	if err != nil {
		return nil, s.fail(backend.OpVerifyPrescription, err)
	}
	return s.verify(ctx, backend.OpVerifyPrescription, customerID, models.Medicine{ID: medicineID, Name: name})
}

// UploadPrescription resolves the medicine by name and records a verified
// prescription for it.
func (s *Store) UploadPrescription(ctx context.Context, customerID, medicineName string) (*models.ToolResult, error) {
	items, err := s.findMedicines(ctx, s.db, medicineName)
	if err != nil {
		return nil, s.fail(backend.OpUploadPrescription, err)
	}
	if len(items) == 0 {
		return models.Failure(apperrors.ErrCodeNotFound, "Medicine not found"), nil
	}
	return s.verify(ctx, backend.OpUploadPrescription, customerID, items[0])
}

func (s *Store) verify(ctx context.Context, op, customerID string, med models.Medicine) (*models.ToolResult, error) {
	now := s.now()
	validUntil := now.Add(models.PrescriptionValidity)

	_, err := s.db.ExecContext(ctx, `INSERT INTO prescriptions (customer_id, medicine_id, verified_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, medicine_id)
		DO UPDATE SET verified_at = excluded.verified_at, expires_at = excluded.expires_at`,
		customerID, med.ID, now, validUntil)
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Info("Prescription verified", map[string]interface{}{
		"customerId": customerID,
		"medicine":   med.Name,
		"validUntil": validUntil,
	})

	return models.WithStatus(models.StatusVerified, models.PrescriptionResult{
		CustomerID: customerID,
		MedicineID: med.ID,
		Medicine:   med.Name,
		ValidUntil: validUntil,
	}), nil
}

func (s *Store) prescriptionExpiry(ctx context.Context, q queryer, customerID string, medicineID int64) (time.Time, error) {
	var expiresAt time.Time
	err := q.QueryRowContext(ctx,
		`SELECT expires_at FROM prescriptions WHERE customer_id = $1 AND medicine_id = $2`,
		customerID, medicineID).Scan(&expiresAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	return expiresAt, err
}

// ==========================
// Helpers
// ==========================

// likeEscaper makes user text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) findMedicines(ctx context.Context, q queryer, name string) ([]models.Medicine, error) {
	rows, err := q.QueryContext(ctx, medicineLookup, "%"+likeEscaper.Replace(name)+"%", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// fail classifies a database error and logs it.
func (s *Store) fail(op string, err error) error {
	stdErr := apperrors.Classify(op, err)
	s.logger.Error("Query failed", map[string]interface{}{
		"operation": op,
		"errorCode": string(stdErr.Code),
		"error":     err.Error(),
	})
	return stdErr
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row scanner) (models.Medicine, error) {
	var m models.Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Stock, &m.PrescriptionRequired)
	return m, err
}

func scanOrder(row scanner) (models.OrderRecord, error) {
	var o models.OrderRecord
	err := row.Scan(&o.OrderID, &o.CustomerID, &o.MedicineID, &o.Medicine,
		&o.Quantity, &o.TotalPrice, &o.Status, &o.PurchaseDate)
	o.PurchaseDate = o.PurchaseDate.UTC()
	return o, err
}
