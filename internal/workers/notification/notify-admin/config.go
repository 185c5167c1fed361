// internal/workers/notification/notify-admin/config.go
package notifyadmin

import (
	"time"

	"pharmacy-agent/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	EmailSubject string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:      config.GetDuration(cfg.Notifications.Timeout),
		EmailSubject: "[pharmacy-agent] %s",
	}
}
