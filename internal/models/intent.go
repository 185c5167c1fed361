// internal/models/intent.go
package models

// Intent is the closed set of actions a chat turn can request.
type Intent string

const (
	IntentOrder              Intent = "order"
	IntentInventory          Intent = "inventory"
	IntentHistory            Intent = "history"
	IntentUpdateStock        Intent = "update_stock"
	IntentUploadPrescription Intent = "upload_prescription"
	IntentSmalltalk          Intent = "smalltalk"
)

// AllIntents lists every recognised intent.
var AllIntents = []Intent{
	IntentOrder,
	IntentInventory,
	IntentHistory,
	IntentUpdateStock,
	IntentUploadPrescription,
	IntentSmalltalk,
}

// IsValid reports whether i is part of the enumeration.
func (i Intent) IsValid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// StructuredRequest is the normalized command built once per chat turn.
// MedicineName is empty when absent. Quantity and Delta are nil when absent.
type StructuredRequest struct {
	Intent       Intent `json:"intent"`
	MedicineName string `json:"medicine_name,omitempty"`
	Quantity     *int   `json:"quantity,omitempty"`
	Delta        *int   `json:"delta,omitempty"`
	CustomerID   string `json:"customer_id"`
}

// HasMedicine reports whether a medicine name was extracted.
func (r StructuredRequest) HasMedicine() bool {
	return r.MedicineName != ""
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
