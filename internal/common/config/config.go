// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Agent         AgentConfig        `mapstructure:"agent"`
	LLM           LLMConfig          `mapstructure:"llm"`
	Backend       BackendConfig      `mapstructure:"backend"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Rules         RulesConfig        `mapstructure:"rules"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

// --- Core App Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// AgentConfig holds the pipeline settings shared by every stage.
type AgentConfig struct {
	DefaultCustomerID string `mapstructure:"default_customer_id"`
	ExtractTimeout    int    `mapstructure:"extract_timeout"`  // milliseconds
	DispatchTimeout   int    `mapstructure:"dispatch_timeout"` // milliseconds
	LowStockThreshold int    `mapstructure:"low_stock_threshold"`
}

// LLMConfig configures the chat completion service used for intent extraction.
type LLMConfig struct {
	Provider   string `mapstructure:"provider"` // "openai" or "azure"
	BaseURL    string `mapstructure:"base_url"`
	Endpoint   string `mapstructure:"endpoint"` // Azure resource endpoint
	APIVersion string `mapstructure:"api_version"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"` // model name, or deployment name on Azure
	Timeout    int    `mapstructure:"timeout"`
}

// BackendConfig selects and configures the backend operations collaborator.
type BackendConfig struct {
	Driver  string `mapstructure:"driver"` // "postgres", "sqlite" or "http"
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
	Breaker struct {
		MaxRequests  uint32  `mapstructure:"max_requests"`
		Interval     int     `mapstructure:"interval"` // milliseconds
		Timeout      int     `mapstructure:"timeout"`  // milliseconds
		MinRequests  uint32  `mapstructure:"min_requests"`
		FailureRatio float64 `mapstructure:"failure_ratio"`
	} `mapstructure:"breaker"`
	Seed bool `mapstructure:"seed"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
	Index     string   `mapstructure:"index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig selects the conversation cache implementation.
type CacheConfig struct {
	Driver    string `mapstructure:"driver"` // "memory" or "redis"
	KeyPrefix string `mapstructure:"key_prefix"`
}

// NotificationConfig holds settings for the admin notification sinks.
type NotificationConfig struct {
	Timeout int `mapstructure:"timeout"` // milliseconds
	Webhook struct {
		Enabled bool   `mapstructure:"enabled"`
		URL     string `mapstructure:"url"`
	} `mapstructure:"webhook"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	Email struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		To        []string `mapstructure:"to"`
	} `mapstructure:"email"`
	NATS struct {
		Enabled bool   `mapstructure:"enabled"`
		URL     string `mapstructure:"url"`
		Subject string `mapstructure:"subject"`
	} `mapstructure:"nats"`
}

// RulesConfig points at the per-medicine rules table.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
