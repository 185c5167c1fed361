// internal/workers/agent/extract-intent/config.go
package extractintent

import (
	"time"

	"pharmacy-agent/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	DefaultCustomerID string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:           config.GetDuration(cfg.Agent.ExtractTimeout),
		DefaultCustomerID: cfg.Agent.DefaultCustomerID,
	}
}
