package extractintent

import (
	"testing"

	"pharmacy-agent/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Rule-based parser
// ==========================

func TestParseFallback(t *testing.T) {
	tests := []struct {
		text         string
		wantIntent   models.Intent
		wantMedicine string
		wantQuantity *int
		wantDelta    *int
	}{
		{"Order 2 Ramipril", models.IntentOrder, "Ramipril", models.IntPtr(2), nil},
		{"Order 0 Paracetamol", models.IntentOrder, "Paracetamol", models.IntPtr(1), nil},
		{"order -3 ibuprofen", models.IntentOrder, "ibuprofen", models.IntPtr(1), nil},
		{"I'd like to buy 500 units of Cetirizine please", models.IntentOrder, "Cetirizine", models.IntPtr(100), nil},
		{"order Metformin", models.IntentOrder, "Metformin", nil, nil},
		{"Is Xyzabc available?", models.IntentInventory, "Xyzabc", nil, nil},
		{"Do you have ibuprofen?", models.IntentInventory, "ibuprofen", nil, nil},
		{"What is the price of Amoxicillin", models.IntentInventory, "Amoxicillin", nil, nil},
		{"show my order history", models.IntentHistory, "", nil, nil},
		{"I want to upload my prescription for Ramipril", models.IntentUploadPrescription, "Ramipril", nil, nil},
		{"I have a prescription for metformin.", models.IntentUploadPrescription, "metformin", nil, nil},
		{"restock Paracetamol by 50", models.IntentUpdateStock, "Paracetamol", nil, models.IntPtr(50)},
		{"remove 5 units of Ibuprofen from stock", models.IntentUpdateStock, "Ibuprofen", nil, models.IntPtr(-5)},
		{"restock Paracetamol by 5000", models.IntentSmalltalk, "Paracetamol", nil, nil},
		{"order", models.IntentSmalltalk, "", nil, nil},
		{"upload prescription", models.IntentSmalltalk, "", nil, nil},
		{"Hello", models.IntentSmalltalk, "", nil, nil},
		{"", models.IntentSmalltalk, "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			req := Normalize(ParseFallback(tt.text), "PAT001", "", tt.text)
			assert.Equal(t, tt.wantIntent, req.Intent)
			assert.Equal(t, tt.wantMedicine, req.MedicineName)
			assert.Equal(t, tt.wantQuantity, req.Quantity)
			assert.Equal(t, tt.wantDelta, req.Delta)
		})
	}
}

func TestParseFallback_Idempotent(t *testing.T) {
	inputs := []string{"Order 2 Ramipril", "Is Xyzabc available?", "my orders", "restock Paracetamol by 5", "hi"}
	for _, text := range inputs {
		first := Normalize(ParseFallback(text), "PAT001", "", text)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Normalize(ParseFallback(text), "PAT001", "", text))
		}
	}
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Ramipril", cleanName("  units of Ramipril please?"))
	assert.Equal(t, "", cleanName("more of it"))
	assert.Equal(t, "Vitamin C", cleanName("some Vitamin C."))
}

// ==========================
// Normalization
// ==========================

func TestDowngrade(t *testing.T) {
	tests := []struct {
		name string
		in   models.StructuredRequest
		want models.Intent
	}{
		{"order without medicine", models.StructuredRequest{Intent: models.IntentOrder, Quantity: models.IntPtr(2)}, models.IntentSmalltalk},
		{"inventory without medicine", models.StructuredRequest{Intent: models.IntentInventory}, models.IntentSmalltalk},
		{"upload without medicine", models.StructuredRequest{Intent: models.IntentUploadPrescription}, models.IntentSmalltalk},
		{"update without delta", models.StructuredRequest{Intent: models.IntentUpdateStock, MedicineName: "Paracetamol"}, models.IntentSmalltalk},
		{"update complete", models.StructuredRequest{Intent: models.IntentUpdateStock, MedicineName: "Paracetamol", Delta: models.IntPtr(3)}, models.IntentUpdateStock},
		{"order complete", models.StructuredRequest{Intent: models.IntentOrder, MedicineName: "Paracetamol"}, models.IntentOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Downgrade(tt.in).Intent)
		})
	}
}

func TestDowngrade_HistoryDropsParameters(t *testing.T) {
	got := Downgrade(models.StructuredRequest{
		Intent:       models.IntentHistory,
		MedicineName: "Ramipril",
		Quantity:     models.IntPtr(2),
		Delta:        models.IntPtr(4),
	})
	assert.Equal(t, models.IntentHistory, got.Intent)
	assert.Empty(t, got.MedicineName)
	assert.Nil(t, got.Quantity)
	assert.Nil(t, got.Delta)
}

func TestNormalize_ModelFields(t *testing.T) {
	raw := map[string]interface{}{
		"intent":        " UPDATE_STOCK ",
		"medicine_name": "Ibuprofen",
		"delta":         -25.0,
		"quantity":      nil,
	}
	req := Normalize(raw, "PAT001", "", "")
	assert.Equal(t, models.IntentUpdateStock, req.Intent)
	assert.Equal(t, -25, *req.Delta)
	assert.Nil(t, req.Quantity)
}
