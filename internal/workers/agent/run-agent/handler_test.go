package runagent

import (
	"context"
	"errors"
	"testing"

	"pharmacy-agent/internal/backend"
	"pharmacy-agent/internal/backend/sqlstore"
	"pharmacy-agent/internal/common/cache"
	"pharmacy-agent/internal/common/config"
	"pharmacy-agent/internal/common/database"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/common/validation"
	"pharmacy-agent/internal/models"
	dispatchintent "pharmacy-agent/internal/workers/agent/dispatch-intent"
	extractintent "pharmacy-agent/internal/workers/agent/extract-intent"
	renderresponse "pharmacy-agent/internal/workers/agent/render-response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

type stubExtractor struct {
	calls int
	fn    func(*extractintent.Input) (*extractintent.Output, error)
}

func (s *stubExtractor) Execute(_ context.Context, in *extractintent.Input) (*extractintent.Output, error) {
	s.calls++
	return s.fn(in)
}

type stubDispatcher struct {
	calls int
	last  *dispatchintent.Input
	fn    func(*dispatchintent.Input) (*dispatchintent.Output, error)
}

func (s *stubDispatcher) Execute(_ context.Context, in *dispatchintent.Input) (*dispatchintent.Output, error) {
	s.calls++
	s.last = in
	return s.fn(in)
}

type stubRenderer struct {
	fn func(*renderresponse.Input) (*renderresponse.Output, error)
}

func (s *stubRenderer) Execute(_ context.Context, in *renderresponse.Input) (*renderresponse.Output, error) {
	return s.fn(in)
}

type failingCompleter struct{}

func (failingCompleter) Complete(context.Context, string, string) (string, error) {
	return "", errors.New("connection reset by peer")
}

func extractAs(req models.StructuredRequest) *stubExtractor {
	return &stubExtractor{fn: func(*extractintent.Input) (*extractintent.Output, error) {
		return &extractintent.Output{Request: req, Source: extractintent.SourceLLM}, nil
	}}
}

func dispatchAs(result *models.ToolResult) *stubDispatcher {
	return &stubDispatcher{fn: func(*dispatchintent.Input) (*dispatchintent.Output, error) {
		return &dispatchintent.Output{Result: result}, nil
	}}
}

func realRenderer(t *testing.T) Renderer {
	return renderresponse.NewHandler(logger.NewTestLogger(t))
}

func run(t *testing.T, h *Handler, text string) *Output {
	t.Helper()
	out, err := h.Execute(context.Background(), &Input{Text: text, CustomerID: "PAT001"})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, out.Status)
	require.NotEmpty(t, out.Response)
	return out
}

// ==========================
// Stage isolation
// ==========================

func TestExecute_HappyPath(t *testing.T) {
	extractor := extractAs(models.StructuredRequest{Intent: models.IntentSmalltalk, CustomerID: "PAT001"})
	dispatcher := dispatchAs(models.Smalltalk())
	h := NewHandler(extractor, dispatcher, realRenderer(t), nil, logger.NewTestLogger(t))

	out := run(t, h, "  hi there ")

	assert.Equal(t, renderresponse.Greeting, out.Response)
	assert.Equal(t, string(models.IntentSmalltalk), out.Intent)
	assert.False(t, out.Degraded)
	assert.Equal(t, "hi there", dispatcher.last.RawText)
}

func TestExecute_ExtractionFailure(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*extractintent.Input) (*extractintent.Output, error)
	}{
		{"error", func(*extractintent.Input) (*extractintent.Output, error) { return nil, errors.New("boom") }},
		{"nil output", func(*extractintent.Input) (*extractintent.Output, error) { return nil, nil }},
		{"panic", func(*extractintent.Input) (*extractintent.Output, error) { panic("unexpected shape") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := dispatchAs(models.Smalltalk())
			h := NewHandler(&stubExtractor{fn: tt.fn}, dispatcher, realRenderer(t), nil, logger.NewTestLogger(t))

			out := run(t, h, "order something")

			assert.Equal(t, ExtractionFailedMessage, out.Response)
			assert.True(t, out.Degraded)
			assert.Zero(t, dispatcher.calls, "dispatch must be skipped")
		})
	}
}

func TestExecute_DispatchFailureRendersEmptyResult(t *testing.T) {
	extractor := extractAs(models.StructuredRequest{Intent: models.IntentHistory, CustomerID: "PAT001"})
	dispatcher := &stubDispatcher{fn: func(*dispatchintent.Input) (*dispatchintent.Output, error) {
		panic(errors.New("nil map"))
	}}

	var rendered *models.ToolResult
	renderer := &stubRenderer{fn: func(in *renderresponse.Input) (*renderresponse.Output, error) {
		rendered = in.Result
		return &renderresponse.Output{Text: renderresponse.Render(in.Result)}, nil
	}}
	h := NewHandler(extractor, dispatcher, renderer, nil, logger.NewTestLogger(t))

	out := run(t, h, "my orders")

	require.NotNil(t, rendered)
	assert.Equal(t, models.ToolResult{}, *rendered)
	assert.Equal(t, renderresponse.HelpMessage, out.Response)
	assert.True(t, out.Degraded)
}

func TestExecute_RenderFailure(t *testing.T) {
	extractor := extractAs(models.StructuredRequest{Intent: models.IntentSmalltalk})
	dispatcher := dispatchAs(models.Smalltalk())

	for name, fn := range map[string]func(*renderresponse.Input) (*renderresponse.Output, error){
		"error": func(*renderresponse.Input) (*renderresponse.Output, error) { return nil, errors.New("template") },
		"empty": func(*renderresponse.Input) (*renderresponse.Output, error) { return &renderresponse.Output{}, nil },
		"panic": func(*renderresponse.Input) (*renderresponse.Output, error) { panic("index out of range") },
	} {
		t.Run(name, func(t *testing.T) {
			h := NewHandler(extractor, dispatcher, &stubRenderer{fn: fn}, nil, logger.NewTestLogger(t))
			out := run(t, h, "hello")
			assert.Equal(t, renderresponse.HelpMessage, out.Response)
			assert.True(t, out.Degraded)
		})
	}
}

func TestExecute_LiteralCommandSkipsExtraction(t *testing.T) {
	extractor := extractAs(models.StructuredRequest{Intent: models.IntentOrder})
	dispatcher := dispatchAs(models.SuccessMessage("Order 7 has been cancelled."))
	h := NewHandler(extractor, dispatcher, realRenderer(t), nil, logger.NewTestLogger(t))

	out := run(t, h, "cancel order 7")

	assert.Zero(t, extractor.calls)
	assert.Equal(t, IntentCommand, out.Intent)
	assert.Equal(t, "cancel order 7", dispatcher.last.RawText)
	assert.Equal(t, "PAT001", dispatcher.last.Request.CustomerID)
	assert.Equal(t, "Order 7 has been cancelled.", out.Response)
}

func TestExecute_NilInput(t *testing.T) {
	h := NewHandler(extractAs(models.StructuredRequest{}), dispatchAs(models.Smalltalk()), realRenderer(t), nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, renderresponse.UnprocessableMessage, out.Response)
}

// ==========================
// End to end against the SQLite store
// ==========================

func newPipeline(t *testing.T) (*Handler, backend.Operations) {
	t.Helper()
	log := logger.NewTestLogger(t)

	client, err := database.NewSQLite(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, client))
	require.NoError(t, database.Seed(ctx, client, database.DemoCatalogue))

	store := sqlstore.New(client, log)
	session := cache.NewSession(cache.NewMemory())
	validator, err := validation.Extraction()
	require.NoError(t, err)

	extractor := extractintent.NewHandler(
		&extractintent.Config{DefaultCustomerID: "PAT001"},
		failingCompleter{}, validator, session, log)
	dispatcher := dispatchintent.NewHandler(
		&dispatchintent.Config{DefaultCustomerID: "PAT001", LowStockThreshold: 10},
		store, session, nil, nil, log)

	return NewHandler(extractor, dispatcher, renderresponse.NewHandler(log), nil, log), store
}

func TestPipeline_PrescriptionGate(t *testing.T) {
	h, store := newPipeline(t)

	out := run(t, h, "Order 1 Ramipril")
	assert.Equal(t, renderresponse.PrescriptionRequired, out.Response)

	res, err := store.CheckInventory(context.Background(), "Ramipril")
	require.NoError(t, err)
	assert.Equal(t, 40, res.Data.(models.InventoryResult).Items[0].Stock)

	out = run(t, h, "I want to upload my prescription for Ramipril")
	assert.Contains(t, out.Response, "Your prescription for Ramipril has been verified.")

	out = run(t, h, "Order 1 Ramipril")
	assert.Equal(t,
		"Your order has been successfully placed.\nOrder ID: 1\nMedicine: Ramipril\nQuantity: 1\nTotal Price: €8.90",
		out.Response)
}

func TestPipeline_WildcardNamesMatchNothing(t *testing.T) {
	h, _ := newPipeline(t)

	for _, text := range []string{"Order 1 %", "Is _ available?"} {
		out := run(t, h, text)
		assert.NotContains(t, out.Response, "Amoxicillin", text)
		assert.NotContains(t, out.Response, "Order ID", text)
	}
}

func TestPipeline_OrderDecrementsStock(t *testing.T) {
	h, store := newPipeline(t)

	out := run(t, h, "Order 1 Paracetamol")
	assert.Contains(t, out.Response, "Medicine: Paracetamol\nQuantity: 1\nTotal Price: €2.50")

	res, err := store.CheckInventory(context.Background(), "Paracetamol")
	require.NoError(t, err)
	assert.Equal(t, 119, res.Data.(models.InventoryResult).Items[0].Stock)

	out = run(t, h, "show my order history")
	assert.Contains(t, out.Response, renderresponse.HistoryHeader)
	assert.Contains(t, out.Response, "- Paracetamol | Quantity: 1")
}

func TestPipeline_ZeroQuantityIsClamped(t *testing.T) {
	h, _ := newPipeline(t)

	out := run(t, h, "Order 0 Paracetamol")
	assert.Contains(t, out.Response, "Quantity: 1\nTotal Price: €2.50")
}

func TestPipeline_UnknownMedicine(t *testing.T) {
	h, _ := newPipeline(t)

	out := run(t, h, "Is Xyzabc available?")
	assert.Equal(t, "Medicine not found.", out.Response)
}

func TestPipeline_CancelCommand(t *testing.T) {
	h, _ := newPipeline(t)

	out := run(t, h, "cancel order 7")
	assert.Equal(t, IntentCommand, out.Intent)
	assert.Equal(t, "Order 7 not found", out.Response)

	run(t, h, "Order 3 Ibuprofen")
	out = run(t, h, "cancel order 1")
	assert.Equal(t, "Order 1 has been cancelled.", out.Response)
}

func TestPipeline_ModelOutageStillGreets(t *testing.T) {
	h, _ := newPipeline(t)

	out := run(t, h, "Hello")
	assert.Equal(t, renderresponse.Greeting, out.Response)
	assert.True(t, out.Degraded, "fallback parser was used")
}
