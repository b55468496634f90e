package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push every product into the search index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := setup("reindex")
		if err != nil {
			return err
		}
		defer db.Close(env.db)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		idx := env.searchIndex(ctx)
		if idx == nil {
			return errors.New("ES_URL is not set or Elasticsearch is unreachable")
		}
		svc := &service.CatalogService{Repo: &repo.GormRepo{DB: env.db}, Index: idx, Events: events.Nop{}}
		n, err := svc.Reindex(ctx)
		if err != nil {
			return fmt.Errorf("reindex stopped after %d products: %w", n, err)
		}
		env.logger.Info("reindex_success", "products", n)
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d products\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
