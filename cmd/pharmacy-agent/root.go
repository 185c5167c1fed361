// cmd/pharmacy-agent/root.go
package main

import (
	"github.com/spf13/cobra"

	"pharmacy-agent/internal/common/config"
	"pharmacy-agent/internal/common/logger"
)

var (
	configFlag   string
	customerFlag string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pharmacy-agent",
		Short: "Natural-language pharmacy assistant",
		Long: `pharmacy-agent answers questions about medicine availability, places
orders, records prescriptions and lists order history.

Backends:
  sqlite    - embedded database (default, seeded with a demo catalogue)
  postgres  - PostgreSQL
  http      - remote pharmacy REST API`,
		SilenceUsage: true,
		RunE:         runChat,
	}

	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config.yaml (defaults to configs/config.yaml)")
	root.PersistentFlags().StringVar(&customerFlag, "customer", "", "Customer ID for this session (defaults to agent.default_customer_id)")

	root.AddCommand(newChatCmd(), newAskCmd(), newServeCmd(), newMigrateCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	if configFlag != "" {
		return config.LoadFromFile(configFlag)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
}
