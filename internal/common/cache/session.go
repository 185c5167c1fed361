// internal/common/cache/session.go
package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	lastMedicineKey = "last_medicine:%s"
	prescriptionKey = "rx_verified:%s:%d"
)

// Session exposes the two per-customer lookups the agent keeps: the last
// medicine mentioned and store-confirmed prescription verifications. Neither
// is authoritative.
type Session struct {
	cache Cache
	now   func() time.Time
}

func NewSession(c Cache) *Session {
	return &Session{cache: c, now: time.Now}
}

// LastMedicine returns "" when nothing is remembered for the customer.
func (s *Session) LastMedicine(ctx context.Context, customerID string) (string, error) {
	val, _, err := s.cache.Get(ctx, fmt.Sprintf(lastMedicineKey, customerID))
	return val, err
}

func (s *Session) SaveLastMedicine(ctx context.Context, customerID, medicine string) error {
	if medicine == "" {
		return nil
	}
	return s.cache.Set(ctx, fmt.Sprintf(lastMedicineKey, customerID), medicine, 0)
}

// MarkPrescriptionVerified remembers a verification until it expires.
func (s *Session) MarkPrescriptionVerified(ctx context.Context, customerID string, medicineID int64, validUntil time.Time) error {
	ttl := validUntil.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, fmt.Sprintf(prescriptionKey, customerID, medicineID), validUntil.UTC().Format(time.RFC3339), ttl)
}

// PrescriptionVerifiedUntil returns the remembered expiry, if still valid.
func (s *Session) PrescriptionVerifiedUntil(ctx context.Context, customerID string, medicineID int64) (time.Time, bool, error) {
	val, ok, err := s.cache.Get(ctx, fmt.Sprintf(prescriptionKey, customerID, medicineID))
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	until, err := time.Parse(time.RFC3339, val)
	if err != nil || !s.now().Before(until) {
		return time.Time{}, false, nil
	}
	return until, true, nil
}

// Clear forgets everything for every customer.
func (s *Session) Clear(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
