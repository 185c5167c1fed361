// internal/workers/agent/dispatch-intent/config.go
package dispatchintent

import (
	"time"

	"pharmacy-agent/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	DefaultCustomerID string
	LowStockThreshold int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:           config.GetDuration(cfg.Agent.DispatchTimeout),
		DefaultCustomerID: cfg.Agent.DefaultCustomerID,
		LowStockThreshold: cfg.Agent.LowStockThreshold,
	}
}
