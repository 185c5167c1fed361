package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"AZURE_OPENAI_API_KEY", "OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT",
		"AZURE_OPENAI_API_VERSION", "AZURE_OPENAI_DEPLOYMENT", "ADMIN_WEBHOOK_URL",
	} {
		t.Setenv(name, "")
	}
}

// ==========================
// Defaults
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	clearLLMEnv(t)
	path := writeConfig(t, "app:\n  name: test-agent\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", cfg.App.Name)
	assert.Equal(t, "PAT001", cfg.Agent.DefaultCustomerID)
	assert.Equal(t, DriverSQLite, cfg.Backend.Driver)
	assert.Equal(t, CacheMemory, cfg.Cache.Driver)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Agent.LowStockThreshold)
	assert.Equal(t, "pharmacy.events", cfg.Notifications.NATS.Subject)
	assert.Equal(t, 5*time.Second, GetDuration(cfg.Backend.Timeout))
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("TEST_PHARMACY_KEY", "sk-test")
	path := writeConfig(t, "llm:\n  api_key: ${TEST_PHARMACY_KEY}\n  base_url: ${TEST_PHARMACY_UNSET}\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Empty(t, cfg.LLM.BaseURL)
}

func TestLoadFromFile_AzureEnvOverrides(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "pharmacy-gpt")
	t.Setenv("AZURE_OPENAI_API_VERSION", "2024-10-21")
	path := writeConfig(t, "llm:\n  provider: azure\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.openai.azure.com", cfg.LLM.Endpoint)
	assert.Equal(t, "pharmacy-gpt", cfg.LLM.Model)
	assert.Equal(t, "2024-10-21", cfg.LLM.APIVersion)
}

// ==========================
// Validation
// ==========================

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "postgres without host",
			body:    "backend:\n  driver: postgres\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "http driver without base url",
			body:    "backend:\n  driver: http\n",
			wantErr: "backend.base_url is required",
		},
		{
			name:    "unknown backend driver",
			body:    "backend:\n  driver: mongo\n",
			wantErr: "unsupported backend.driver",
		},
		{
			name:    "redis cache without address",
			body:    "cache:\n  driver: redis\n",
			wantErr: "database.redis.address is required",
		},
		{
			name:    "azure without endpoint",
			body:    "llm:\n  provider: azure\n  model: gpt\n",
			wantErr: "llm.endpoint is required",
		},
		{
			name:    "webhook enabled without url",
			body:    "notifications:\n  webhook:\n    enabled: true\n",
			wantErr: "notifications.webhook.url is required",
		},
		{
			name:    "email enabled without recipients",
			body:    "notifications:\n  email:\n    enabled: true\n    from_email: bot@example.com\n",
			wantErr: "notifications.email.from_email and notifications.email.to are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLLMEnv(t)
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
