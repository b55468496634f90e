package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/db"
)

var migrateTruncate bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := setup("migrate")
		if err != nil {
			return err
		}
		defer db.Close(env.db)

		ctx := context.Background()
		if err := db.Migrate(ctx, env.db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if migrateTruncate {
			if err := db.Truncate(ctx, env.db); err != nil {
				return fmt.Errorf("truncate: %w", err)
			}
			env.logger.Warn("tables_truncated")
		}
		env.logger.Info("migrate_success")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateTruncate, "truncate", false, "Empty every table after migrating")
	rootCmd.AddCommand(migrateCmd)
}
