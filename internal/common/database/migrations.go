// internal/common/database/migrations.go
package database

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		price DOUBLE PRECISION NOT NULL,
		stock INTEGER NOT NULL CHECK (stock >= 0),
		prescription_required BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		customer_id TEXT NOT NULL,
		medicine_id BIGINT NOT NULL REFERENCES medicines(id),
		medicine_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		total_price DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL DEFAULT 'placed',
		purchase_date TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id, purchase_date DESC)`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
		customer_id TEXT NOT NULL,
		medicine_id BIGINT NOT NULL REFERENCES medicines(id),
		verified_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (customer_id, medicine_id)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		price REAL NOT NULL,
		stock INTEGER NOT NULL CHECK (stock >= 0),
		prescription_required BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id TEXT NOT NULL,
		medicine_id INTEGER NOT NULL REFERENCES medicines(id),
		medicine_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		total_price REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'placed',
		purchase_date DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id, purchase_date DESC)`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
		customer_id TEXT NOT NULL,
		medicine_id INTEGER NOT NULL REFERENCES medicines(id),
		verified_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		PRIMARY KEY (customer_id, medicine_id)
	)`,
}

// SeedMedicine is a row of the demo catalogue.
type SeedMedicine struct {
	Name                 string
	Price                float64
	Stock                int
	PrescriptionRequired bool
}

// DemoCatalogue is inserted by Seed.
var DemoCatalogue = []SeedMedicine{
	{Name: "Paracetamol", Price: 2.50, Stock: 120},
	{Name: "Ibuprofen", Price: 3.20, Stock: 80},
	{Name: "Ramipril", Price: 8.90, Stock: 40, PrescriptionRequired: true},
	{Name: "Metformin", Price: 5.40, Stock: 60, PrescriptionRequired: true},
	{Name: "Amoxicillin", Price: 6.75, Stock: 30, PrescriptionRequired: true},
	{Name: "Cetirizine", Price: 4.10, Stock: 12},
}

// Migrate creates the pharmacy tables for the client's dialect.
func Migrate(ctx context.Context, c *SQLClient) error {
	statements := postgresSchema
	if c.Dialect == DialectSQLite {
		statements = sqliteSchema
	}

	for i, stmt := range statements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Seed inserts the given medicines, leaving existing names untouched.
func Seed(ctx context.Context, c *SQLClient, medicines []SeedMedicine) error {
	const query = `INSERT INTO medicines (name, price, stock, prescription_required)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING`

	for _, m := range medicines {
		if _, err := c.DB.ExecContext(ctx, query, m.Name, m.Price, m.Stock, m.PrescriptionRequired); err != nil {
			return fmt.Errorf("failed to seed %s: %w", m.Name, err)
		}
	}
	return nil
}
