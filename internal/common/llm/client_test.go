package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmacy-agent/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": content},
			},
		},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, timeoutMS int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(config.LLMConfig{
		Provider: "openai",
		BaseURL:  server.URL + "/v1",
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
		Timeout:  timeoutMS,
	})
	require.NoError(t, err)
	return c
}

func TestClient_Complete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.Equal(t, 0.0, req["temperature"])

		messages := req["messages"].([]interface{})
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		assert.Equal(t, "Order 2 Paracetamol", messages[1].(map[string]interface{})["content"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`  {"intent":"order","medicine_name":"Paracetamol","quantity":2}  `)))
	}, 2000)

	out, err := c.Complete(context.Background(), "system prompt", "Order 2 Paracetamol")
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"order","medicine_name":"Paracetamol","quantity":2}`, out)
}

func TestClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout int
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
			timeout: 2000,
			wantErr: ErrCompletionFailed,
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(completionBody("")))
			},
			timeout: 2000,
			wantErr: ErrEmptyCompletion,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
			},
			timeout: 50,
			wantErr: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler, tt.timeout)
			_, err := c.Complete(context.Background(), "system", "hello")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNewClient_Providers(t *testing.T) {
	_, err := NewClient(config.LLMConfig{Provider: "azure", Model: "deployment"})
	assert.ErrorIs(t, err, ErrCompletionFailed)

	_, err = NewClient(config.LLMConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, ErrCompletionFailed)

	c, err := NewClient(config.LLMConfig{
		Provider:   "azure",
		Endpoint:   "https://example.openai.azure.com",
		APIVersion: "2024-06-01",
		APIKey:     "k",
		Model:      "deployment",
		Timeout:    1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "deployment", c.model)
}
