// Package main serves the rating calculator as MCP tools over stdio.
// Reference data and history live in SQLite files under the data directory.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/api"
	"github.com/pdr-rating-server/internal/cache"
	"github.com/pdr-rating-server/internal/config"
	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/history"
	"github.com/pdr-rating-server/internal/logging"
	"github.com/pdr-rating-server/internal/mcp"
	"github.com/pdr-rating-server/internal/refdata"
	"github.com/pdr-rating-server/internal/service"
	"github.com/pdr-rating-server/internal/setup"
)

func main() {
	cfg := config.LoadLiteConfig()

	// stdout carries the protocol
	logger, err := logging.New(domain.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI(cfg, os.Stderr, logger).Run(ctx, os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("MCP server failed")
	}
	logger.Info("PDR rating MCP server stopped")
}

func run(ctx context.Context, cfg *config.LiteConfig, logger *logrus.Logger) error {
	logger.WithField("data_dir", cfg.DataDir).Info("Starting PDR rating MCP server")

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	sqlite, err := refdata.NewSQLiteStore(cfg.ReferenceDBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to open reference database: %w", err)
	}
	store := refdata.NewCachedStore(sqlite, cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL), logger)
	defer store.Close()

	calculator := service.NewCalculator(store, domain.RatingConfig{
		OccupationMatch:     cfg.OccupationMatch,
		AgeAdjustmentSource: cfg.AgeAdjustmentSource,
	}, logger)

	var opts []mcp.Option
	if cfg.HistoryEnable {
		hist, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer hist.Close()
		opts = append(opts, mcp.WithHistory(hist))
	}

	return mcp.NewServer(calculator, api.Version, logger, opts...).Run(ctx)
}
