package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/search"
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Server-rendered web shop",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// env is what every subcommand needs before doing its own work.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	db     *gorm.DB
}

func setup(command string) (*env, error) {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", "storefront", "command", command)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: gdb}, nil
}

// searchIndex returns nil when Elasticsearch is not configured or unreachable.
func (e *env) searchIndex(ctx context.Context) *search.ESIndex {
	if e.cfg.ESURL == "" {
		return nil
	}
	client, err := search.NewClient(ctx, e.cfg.ESURL, e.cfg.ESUser, e.cfg.ESPassword)
	if err != nil {
		e.logger.Warn("search_unavailable", "reason", "falling back to database search", "error", err)
		return nil
	}
	return &search.ESIndex{ES: client, Index: e.cfg.ESIndex}
}
