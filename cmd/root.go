package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Amrutha-01/swaply-backend/internal/config"
	"github.com/Amrutha-01/swaply-backend/internal/extract"
	"github.com/Amrutha-01/swaply-backend/internal/store"
	"github.com/Amrutha-01/swaply-backend/pkg/anthropic"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "swaply",
	Short: "Coupon extraction and trading backend",
	Long:  "Extracts coupons from uploaded documents via Claude, matches them to user preferences, and serves the coupon trading API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the configured database backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newPipeline builds the extraction pipeline from configuration.
func newPipeline() (*extract.Pipeline, error) {
	if cfg.Anthropic.Key == "" {
		return nil, fmt.Errorf("anthropic key not configured (set SWAPLY_ANTHROPIC_KEY)")
	}
	client := anthropic.NewClient(cfg.Anthropic.Key)
	return extract.NewPipeline(client, cfg.Anthropic, cfg.Extract.RequestsPerMin), nil
}
