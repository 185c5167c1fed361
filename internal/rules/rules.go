// Package rules holds per-medicine dispensing rules: prescription
// requirements, refill intervals and monthly quantity limits.
package rules

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pharmacy-agent/internal/models"
)

var ErrInvalidRules = errors.New("INVALID_RULES")

var requiredColumns = []string{"medicine", "prescription_required", "refill_days", "max_monthly_quantity"}

// Rule is one row of the rules table. Zero RefillDays or MaxMonthlyQuantity
// disables the respective check.
type Rule struct {
	Medicine             string
	PrescriptionRequired bool
	RefillDays           int
	MaxMonthlyQuantity   int
}

// Book indexes rules by lower-cased medicine name.
type Book struct {
	rules map[string]Rule
	now   func() time.Time
}

// Empty returns a Book with no rules; every check passes.
func Empty() *Book {
	return &Book{rules: map[string]Rule{}, now: time.Now}
}

// Load reads a rules CSV from disk.
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a rules CSV with a header row. Rows with unparsable numbers are
// rejected as a whole.
func Parse(r io.Reader) (*Book, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidRules, err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidRules, col)
		}
	}

	book := Empty()
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRules, line, err)
		}

		name := strings.ToLower(strings.TrimSpace(record[index["medicine"]]))
		if name == "" {
			continue
		}

		refill, err := atoiOrZero(record[index["refill_days"]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d refill_days: %v", ErrInvalidRules, line, err)
		}
		limit, err := atoiOrZero(record[index["max_monthly_quantity"]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d max_monthly_quantity: %v", ErrInvalidRules, line, err)
		}

		book.rules[name] = Rule{
			Medicine:             name,
			PrescriptionRequired: strings.EqualFold(strings.TrimSpace(record[index["prescription_required"]]), "true"),
			RefillDays:           refill,
			MaxMonthlyQuantity:   limit,
		}
	}
	return book, nil
}

func atoiOrZero(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// Len returns the number of rules.
func (b *Book) Len() int {
	return len(b.rules)
}

// Lookup finds the rule for a medicine name, case-insensitively.
func (b *Book) Lookup(medicine string) (Rule, bool) {
	r, ok := b.rules[strings.ToLower(strings.TrimSpace(medicine))]
	return r, ok
}

// RequiresPrescription reports whether the rules mark medicine prescription-only.
func (b *Book) RequiresPrescription(medicine string) bool {
	r, ok := b.Lookup(medicine)
	return ok && r.PrescriptionRequired
}

// CheckMonthlyLimit returns a non-nil MonthlyLimit when ordering requested more
// units of medicine this calendar month would exceed its limit.
func (b *Book) CheckMonthlyLimit(medicine string, requested int, history []models.OrderRecord) *models.MonthlyLimit {
	r, ok := b.Lookup(medicine)
	if !ok || r.MaxMonthlyQuantity <= 0 || requested <= 0 {
		return nil
	}

	now := b.now().UTC()
	used := 0
	for _, o := range history {
		if o.Status == models.OrderStatusCancelled {
			continue
		}
		if !strings.Contains(strings.ToLower(o.Medicine), r.Medicine) {
			continue
		}
		d := o.PurchaseDate.UTC()
		if d.Year() == now.Year() && d.Month() == now.Month() {
			used += o.Quantity
		}
	}

	if used+requested > r.MaxMonthlyQuantity {
		return &models.MonthlyLimit{
			Medicine:  medicine,
			Limit:     r.MaxMonthlyQuantity,
			Used:      used,
			Requested: requested,
		}
	}
	return nil
}

// RefillDue lists medicines whose most recent order is older than the refill
// interval. history must be ordered most recent first.
func (b *Book) RefillDue(history []models.OrderRecord) []models.RefillReminder {
	now := b.now()
	seen := make(map[string]bool)
	var due []models.RefillReminder

	for _, o := range history {
		key := strings.ToLower(strings.TrimSpace(o.Medicine))
		if seen[key] || o.Status == models.OrderStatusCancelled {
			continue
		}
		seen[key] = true

		r, ok := b.rules[key]
		if !ok || r.RefillDays <= 0 {
			continue
		}
		dueOn := o.PurchaseDate.AddDate(0, 0, r.RefillDays)
		if !now.Before(dueOn) {
			due = append(due, models.RefillReminder{Medicine: o.Medicine, DueOn: dueOn})
		}
	}
	return due
}
