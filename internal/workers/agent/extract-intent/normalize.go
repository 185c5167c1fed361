// internal/workers/agent/extract-intent/normalize.go
package extractintent

import (
	"pharmacy-agent/internal/models"
	sanitize "pharmacy-agent/internal/workers/agent/sanitize-fields"
)

// Normalize turns raw extraction fields into a StructuredRequest. customerID
// is the caller's identity and wins over a model-supplied one; lastMedicine
// fills the medicine of a follow-up such as "order 2 more of it".
func Normalize(raw map[string]interface{}, customerID, lastMedicine, text string) models.StructuredRequest {
	req := models.StructuredRequest{
		Intent:       sanitize.SanitizeIntent(raw["intent"]),
		MedicineName: sanitize.SanitizeText(raw["medicine_name"]),
		Delta:        sanitize.SanitizeDelta(raw["delta"]),
		CustomerID:   customerID,
	}
	if v, ok := raw["quantity"]; ok && v != nil {
		req.Quantity = models.IntPtr(sanitize.SanitizeQuantity(v))
	}
	if req.CustomerID == "" {
		req.CustomerID = sanitize.SanitizeText(raw["customer_id"])
	}

	if !req.HasMedicine() && lastMedicine != "" && needsMedicine(req.Intent) && refersBack(text) {
		req.MedicineName = lastMedicine
	}

	return Downgrade(req)
}

// Downgrade re-routes an intent lacking its required fields to smalltalk and
// strips parameters from history requests.
func Downgrade(req models.StructuredRequest) models.StructuredRequest {
	switch req.Intent {
	case models.IntentOrder, models.IntentInventory, models.IntentUploadPrescription:
		if !req.HasMedicine() {
			req.Intent = models.IntentSmalltalk
		}
	case models.IntentUpdateStock:
		if !req.HasMedicine() || req.Delta == nil {
			req.Intent = models.IntentSmalltalk
		}
	case models.IntentHistory:
		req.MedicineName = ""
		req.Quantity = nil
		req.Delta = nil
	}
	return req
}

func needsMedicine(intent models.Intent) bool {
	switch intent {
	case models.IntentOrder, models.IntentInventory, models.IntentUploadPrescription, models.IntentUpdateStock:
		return true
	}
	return false
}
