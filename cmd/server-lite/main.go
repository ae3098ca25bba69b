// Package main provides the lightweight entry point for the PDR rating server.
// This version requires no external databases - uses in-memory caching and SQLite.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/api"
	"github.com/pdr-rating-server/internal/cache"
	"github.com/pdr-rating-server/internal/config"
	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/history"
	"github.com/pdr-rating-server/internal/logging"
	"github.com/pdr-rating-server/internal/metrics"
	"github.com/pdr-rating-server/internal/refdata"
	"github.com/pdr-rating-server/internal/service"
	"github.com/pdr-rating-server/internal/setup"
)

func main() {
	cfg := config.LoadLiteConfig()

	logger, err := logging.New(domain.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI(cfg, os.Stdout, logger).Run(ctx, os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("PDR rating server (lite) stopped")
}

func run(ctx context.Context, cfg *config.LiteConfig, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"port":     cfg.HTTPPort,
	}).Info("Starting PDR rating server (lite)")

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	m := metrics.New()

	sqlite, err := refdata.NewSQLiteStore(cfg.ReferenceDBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to open reference database: %w", err)
	}
	store := refdata.NewCachedStore(sqlite, cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL), logger, refdata.WithMetrics(m))
	defer store.Close()

	rating := domain.RatingConfig{
		OccupationMatch:     cfg.OccupationMatch,
		AgeAdjustmentSource: cfg.AgeAdjustmentSource,
	}
	calculator := service.NewCalculator(store, rating, logger, service.WithCalculatorMetrics(m))

	opts := []api.Option{api.WithMetrics(m)}
	if cfg.HistoryEnable {
		hist, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer hist.Close()
		opts = append(opts, api.WithHistory(hist))
	}

	serverConfig := domain.ServerConfig{
		Host:         "127.0.0.1",
		Port:         cfg.HTTPPort,
		CORSOrigins:  []string{"*"},
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	server := api.NewServer(api.Config{Server: serverConfig}, calculator, logger, opts...)
	return server.Start(ctx)
}
