// internal/models/pharmacy.go
package models

import "time"

type Medicine struct {
	ID                   int64   `json:"id"`
	Name                 string  `json:"name"`
	Price                float64 `json:"price"`
	Stock                int     `json:"stock"`
	PrescriptionRequired bool    `json:"prescription_required"`
}

// Order statuses
const (
	OrderStatusPlaced    = "placed"
	OrderStatusCancelled = "cancelled"
)

type OrderRecord struct {
	OrderID      int64     `json:"order_id"`
	CustomerID   string    `json:"customer_id"`
	MedicineID   int64     `json:"medicine_id"`
	Medicine     string    `json:"medicine"`
	Quantity     int       `json:"quantity"`
	TotalPrice   float64   `json:"total_price"`
	Status       string    `json:"status"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// PrescriptionValidity is the window granted by a verification.
const PrescriptionValidity = 30 * 24 * time.Hour

type Prescription struct {
	CustomerID string    `json:"customer_id"`
	MedicineID int64     `json:"medicine_id"`
	VerifiedAt time.Time `json:"verified_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
