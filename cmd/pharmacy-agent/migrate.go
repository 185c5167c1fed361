// cmd/pharmacy-agent/migrate.go
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var (
		seed    bool
		reindex bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the pharmacy tables and optionally seed and index the catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			if cfg.Backend.Driver == "http" {
				return errors.New("migrate needs a sql backend driver")
			}
			// buildApp migrates; seeding follows the flag rather than the config.
			cfg.Backend.Seed = seed

			a, err := buildApp(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer a.Close()

			var count int
			if err := a.sql.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM medicines").Scan(&count); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s), %d medicines in catalogue.\n", a.sql.Dialect, count)

			if reindex {
				if a.searcher == nil {
					return errors.New("reindex requires database.elasticsearch.enabled")
				}
				n, err := a.searcher.Reindex(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d medicines.\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", true, "Insert the demo catalogue")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "Rebuild the Elasticsearch medicine index")
	return cmd
}
