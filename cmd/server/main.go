package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/api"
	"github.com/pdr-rating-server/internal/cache"
	"github.com/pdr-rating-server/internal/config"
	"github.com/pdr-rating-server/internal/database"
	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/history"
	"github.com/pdr-rating-server/internal/logging"
	"github.com/pdr-rating-server/internal/metrics"
	"github.com/pdr-rating-server/internal/refdata"
	"github.com/pdr-rating-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting PDR rating server")

	m := metrics.New()

	dbConfig := database.FromDomain(cfg.Database)
	if err := database.Migrate(ctx, dbConfig.URL(), cfg.Database.MigrationsPath, logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := referenceStore(ctx, cfg, db, m, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	calculator := service.NewCalculator(store, cfg.Rating, logger, service.WithCalculatorMetrics(m))

	opts := []api.Option{api.WithMetrics(m)}
	if cfg.History.Enabled {
		hist, err := history.NewPostgresStoreFromURL(dbConfig.URL())
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer hist.Close()
		opts = append(opts, api.WithHistory(hist))
	}

	server := api.NewServer(api.Config{Server: cfg.Server, RateLimit: cfg.RateLimit}, calculator, logger, opts...)
	return server.Start(ctx)
}

// referenceStore layers the breaker and the cache tiers over the Postgres tables
func referenceStore(ctx context.Context, cfg *domain.Config, db *database.DB, m *metrics.Metrics, logger *logrus.Logger) (refdata.Store, error) {
	var store refdata.Store = refdata.NewPostgresStore(db.Pool, logger)

	if cfg.Breaker.Enabled {
		store = refdata.NewResilientStore(store, refdata.ResilienceConfigFrom(cfg.Breaker, cfg.Rating.LookupTimeout), m, logger)
	}

	cacheOpts := []refdata.CachedStoreOption{refdata.WithMetrics(m), refdata.WithRemoteTTL(cfg.Cache.DefaultTTL)}
	if cfg.Cache.RedisURL != "" {
		remote, err := cache.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		cacheOpts = append(cacheOpts, refdata.WithRemoteCache(remote))
		logger.Info("Redis reference cache enabled")
	}

	memory := cache.NewMemoryCache(cfg.Cache.MemorySize, cfg.Cache.MemoryTTL)
	return refdata.NewCachedStore(store, memory, logger, cacheOpts...), nil
}
