package sqlstore

import (
	"context"
	"testing"
	"time"

	"pharmacy-agent/internal/common/config"
	"pharmacy-agent/internal/common/database"
	apperrors "pharmacy-agent/internal/common/errors"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	client, err := database.NewSQLite(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, client))
	require.NoError(t, database.Seed(ctx, client, database.DemoCatalogue))

	s := New(client, logger.NewTestLogger(t))
	s.now = func() time.Time { return testNow }
	return s
}

func medicineID(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	res, err := s.CheckInventory(context.Background(), name)
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	return res.Data.(models.InventoryResult).Items[0].ID
}

// ==========================
// Inventory
// ==========================

func TestCheckInventory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.CheckInventory(ctx, "PARA")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	inv := res.Data.(models.InventoryResult)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Paracetamol", inv.Items[0].Name)
	assert.Equal(t, 2.50, inv.Items[0].Price)
	assert.Equal(t, 120, inv.Items[0].Stock)
	assert.False(t, inv.Items[0].PrescriptionRequired)

	res, err = s.CheckInventory(ctx, "unobtainium")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, apperrors.ErrCodeNotFound, res.Code)
}

func TestCheckInventory_ExactMatchFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, database.Seed(ctx, database.NewSQLClient(s.db, database.DialectSQLite), []database.SeedMedicine{
		{Name: "Ibuprofen Forte", Price: 4.00, Stock: 5},
	}))

	res, err := s.CheckInventory(ctx, "ibuprofen")
	require.NoError(t, err)
	inv := res.Data.(models.InventoryResult)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Ibuprofen", inv.Items[0].Name)
}

func TestSearchMedicines_EmptyIsSuccess(t *testing.T) {
	s := newTestStore(t)

	res, err := s.SearchMedicines(context.Background(), "zzz")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.Empty(t, res.Data.(models.InventoryResult).Items)

	res, err = s.SearchMedicines(context.Background(), "in")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(res.Data.(models.InventoryResult).Items), 3)
}

func TestCheckInventory_WildcardsMatchLiterally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"%", "_", "%%", "___", `\`, "Para%"} {
		t.Run(name, func(t *testing.T) {
			res, err := s.CheckInventory(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, apperrors.ErrCodeNotFound, res.Code)

			res, err = s.SearchMedicines(ctx, name)
			require.NoError(t, err)
			assert.Empty(t, res.Data.(models.InventoryResult).Items)
		})
	}

	require.NoError(t, database.Seed(ctx, database.NewSQLClient(s.db, database.DialectSQLite), []database.SeedMedicine{
		{Name: "Zinc_50%", Price: 3.00, Stock: 9},
		{Name: "ZincX50X", Price: 3.00, Stock: 9},
	}))

	res, err := s.CheckInventory(ctx, "zinc_50%")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	inv := res.Data.(models.InventoryResult)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Zinc_50%", inv.Items[0].Name)
}

func TestUpdateStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.UpdateStock(ctx, "Cetirizine", 8)
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.Equal(t, 20, res.Data.(models.StockUpdateResult).NewStock)

	res, err = s.UpdateStock(ctx, "Cetirizine", -21)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidOperation, res.Code)

	res, err = s.UpdateStock(ctx, "nothing", 1)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, res.Code)
}

// ==========================
// Orders
// ==========================

func TestCreateOrder_Success(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := medicineID(t, s, "Ibuprofen")

	res, err := s.CreateOrder(ctx, "PAT001", id, 3)
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	conf := res.Data.(models.OrderConfirmation)
	assert.Positive(t, conf.OrderID)
	assert.Equal(t, "Ibuprofen", conf.Medicine)
	assert.Equal(t, 3, conf.Quantity)
	assert.InDelta(t, 9.60, conf.TotalPrice, 0.001)
	assert.Equal(t, models.IntPtr(77), conf.RemainingStock)

	inv, err := s.CheckInventory(ctx, "Ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, 77, inv.Data.(models.InventoryResult).Items[0].Stock)

	status, err := s.GetOrderStatus(ctx, conf.OrderID)
	require.NoError(t, err)
	require.True(t, status.IsSuccess())
	order := status.Data.(models.OrderStatusResult).Order
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.True(t, order.PurchaseDate.Equal(testNow))
}

func TestCreateOrder_Rejections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		medicine   string
		medicineID int64
		quantity   int
		wantCode   apperrors.ErrorCode
	}{
		{name: "unknown medicine", medicineID: 9999, quantity: 1, wantCode: apperrors.ErrCodeNotFound},
		{name: "prescription missing", medicine: "Ramipril", quantity: 1, wantCode: apperrors.ErrCodePrescriptionRequired},
		{name: "insufficient stock", medicine: "Cetirizine", quantity: 13, wantCode: apperrors.ErrCodeInsufficientStock},
		{name: "zero quantity", medicine: "Paracetamol", quantity: 0, wantCode: apperrors.ErrCodeInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.medicineID
			if tt.medicine != "" {
				id = medicineID(t, s, tt.medicine)
			}
			res, err := s.CreateOrder(ctx, "PAT001", id, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, models.StatusError, res.Status)
			assert.Equal(t, tt.wantCode, res.Code)
		})
	}

	res, err := s.CreateOrder(ctx, "PAT001", medicineID(t, s, "Cetirizine"), 13)
	require.NoError(t, err)
	shortage := res.Data.(models.StockShortage)
	assert.Equal(t, 12, shortage.Available)
	assert.Equal(t, 13, shortage.Requested)

	history, err := s.GetCustomerHistory(ctx, "PAT001")
	require.NoError(t, err)
	assert.Empty(t, history.Data.(models.HistoryResult).Orders)
}

func TestCreateOrder_WithVerifiedPrescription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := medicineID(t, s, "Ramipril")

	verified, err := s.VerifyPrescription(ctx, "PAT001", id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, verified.Status)
	assert.True(t, verified.Data.(models.PrescriptionResult).ValidUntil.Equal(testNow.Add(models.PrescriptionValidity)))

	res, err := s.CreateOrder(ctx, "PAT001", id, 2)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())

	// Another customer's prescription does not count.
	res, err = s.CreateOrder(ctx, "PAT002", id, 2)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodePrescriptionRequired, res.Code)
}

func TestCustomerHistory_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, "PAT001", medicineID(t, s, "Paracetamol"), 1)
	require.NoError(t, err)
	s.now = func() time.Time { return testNow.Add(48 * time.Hour) }
	_, err = s.CreateOrder(ctx, "PAT001", medicineID(t, s, "Ibuprofen"), 2)
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, "PAT002", medicineID(t, s, "Ibuprofen"), 1)
	require.NoError(t, err)

	res, err := s.GetCustomerHistory(ctx, "PAT001")
	require.NoError(t, err)
	orders := res.Data.(models.HistoryResult).Orders
	require.Len(t, orders, 2)
	assert.Equal(t, "Ibuprofen", orders[0].Medicine)
	assert.Equal(t, "Paracetamol", orders[1].Medicine)
}

func TestCancelOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateOrder(ctx, "PAT001", medicineID(t, s, "Cetirizine"), 5)
	require.NoError(t, err)
	orderID := created.Data.(models.OrderConfirmation).OrderID

	res, err := s.CancelOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, res.Status)
	assert.Equal(t, models.OrderStatusCancelled, res.Data.(models.OrderStatusResult).Order.Status)

	inv, err := s.CheckInventory(ctx, "Cetirizine")
	require.NoError(t, err)
	assert.Equal(t, 12, inv.Data.(models.InventoryResult).Items[0].Stock)

	res, err = s.CancelOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidOperation, res.Code)

	res, err = s.CancelOrder(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, res.Code)

	res, err = s.GetOrderStatus(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, res.Code)
}

// ==========================
// Prescriptions
// ==========================

func TestPrescriptionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := medicineID(t, s, "Metformin")

	res, err := s.CheckPrescriptionStatus(ctx, "PAT001", id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotVerified, res.Status)

	res, err = s.UploadPrescription(ctx, "PAT001", "metformin")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, res.Status)
	assert.Equal(t, id, res.Data.(models.PrescriptionResult).MedicineID)

	res, err = s.CheckPrescriptionStatus(ctx, "PAT001", id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, res.Status)

	s.now = func() time.Time { return testNow.Add(models.PrescriptionValidity + time.Hour) }

	res, err = s.CheckPrescriptionStatus(ctx, "PAT001", id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, res.Status)

	order, err := s.CreateOrder(ctx, "PAT001", id, 1)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodePrescriptionRequired, order.Code)

	// Re-verifying renews the window.
	res, err = s.VerifyPrescription(ctx, "PAT001", id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, res.Status)
	order, err = s.CreateOrder(ctx, "PAT001", id, 1)
	require.NoError(t, err)
	assert.True(t, order.IsSuccess())
}

func TestPrescription_UnknownMedicine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.UploadPrescription(ctx, "PAT001", "nothing")
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, res.Code)

	res, err = s.VerifyPrescription(ctx, "PAT001", 777)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, res.Code)

	res, err = s.CheckPrescriptionStatus(ctx, "PAT001", 777)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, res.Code)
}

// ==========================
// Failure classification
// ==========================

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := New(database.NewSQLClient(db, database.DialectPostgres), logger.NewNoOpLogger())
	s.now = func() time.Time { return testNow }
	return s, mock
}

func TestStore_ClassifiesDatabaseErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode apperrors.ErrorCode
	}{
		{"deadline", context.DeadlineExceeded, apperrors.ErrCodeBackendTimeout},
		{"other", assert.AnError, apperrors.ErrCodeUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery("SELECT (.+) FROM medicines").WillReturnError(tt.err)

			res, err := s.CheckInventory(context.Background(), "para")
			assert.Nil(t, res)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateOrder_RollsBackOnShortage(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM medicines WHERE id").
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "prescription_required"}).
			AddRow(6, "Cetirizine", 4.10, 2, false))
	mock.ExpectExec("UPDATE medicines SET stock = stock - ").
		WithArgs(5, int64(6), 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	res, err := s.CreateOrder(context.Background(), "PAT001", 6, 5)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeInsufficientStock, res.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_InsertFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM medicines WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "prescription_required"}).
			AddRow(1, "Paracetamol", 2.50, 10, false))
	mock.ExpectExec("UPDATE medicines").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO orders").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	res, err := s.CreateOrder(context.Background(), "PAT001", 1, 2)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnexpected, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
