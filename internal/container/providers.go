package container

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/catalog"
	"github.com/kartal788/dftest/internal/cleanup"
	domaincleanup "github.com/kartal788/dftest/internal/domain/cleanup"
	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/handler"
	"github.com/kartal788/dftest/internal/infrastructure/adapters/external/tmdb"
	"github.com/kartal788/dftest/internal/infrastructure/cache"
	"github.com/kartal788/dftest/internal/infrastructure/events"
	"github.com/kartal788/dftest/internal/infrastructure/filehost"
	gormrepo "github.com/kartal788/dftest/internal/infrastructure/persistence/gorm"
	"github.com/kartal788/dftest/internal/infrastructure/persistence/mongodb"
	"github.com/kartal788/dftest/internal/ingest"
	"github.com/kartal788/dftest/internal/metadata"
	"github.com/kartal788/dftest/internal/metrics"
	"github.com/kartal788/dftest/internal/scheduler"
	"github.com/kartal788/dftest/internal/shard"
	"github.com/kartal788/dftest/internal/store"
	"github.com/kartal788/dftest/internal/stream"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/interfaces"
	"github.com/kartal788/dftest/pkg/utils"
)

const closeTimeout = 10 * time.Second

func provideMongoPool(ctx context.Context, cfg *config.CatalogConfig, logger *zap.Logger) (*mongodb.Pool, func(), error) {
	pool, err := mongodb.Connect(ctx, cfg.Mongo, logger)
	if err != nil {
		return nil, nil, err
	}
	return pool, func() {
		cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = pool.Close(cctx)
	}, nil
}

func provideShards(pool *mongodb.Pool) []media.ShardStore {
	return pool.Shards()
}

func provideRouter(ctx context.Context, pool *mongodb.Pool, cfg *config.CatalogConfig, logger *zap.Logger) (*shard.Router, error) {
	router := shard.NewRouter(pool.State(), cfg.Mongo.StorageShardCount(), logger)
	if err := router.Load(ctx); err != nil {
		return nil, err
	}
	return router, nil
}

func provideLedger(cfg *config.CatalogConfig, logger *zap.Logger) (*gormrepo.CleanupJobRepository, func(), error) {
	db, cleanupDB, err := gormrepo.NewDB(cfg.Ledger, logger)
	if err != nil {
		return nil, nil, err
	}
	return gormrepo.NewCleanupJobRepository(db), cleanupDB, nil
}

func provideEventBus(cfg *config.CatalogConfig, logger *zap.Logger) (interfaces.EventBus, func(), error) {
	return events.NewEventBus(cfg.Events, logger)
}

func provideMetrics() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

func provideCleanupService(repo domaincleanup.Repository, bus interfaces.EventBus, cfg *config.CatalogConfig, logger *zap.Logger) *cleanup.Service {
	return cleanup.NewService(repo, bus, cfg.Cleanup, logger)
}

func provideDeleter(ctx context.Context, cfg *config.CatalogConfig, logger *zap.Logger) (cleanup.Deleter, error) {
	switch cfg.FileHost.Backend {
	case "s3":
		return filehost.NewS3Deleter(ctx, cfg.FileHost.S3, logger)
	case "http":
		return filehost.NewHTTPDeleter(cfg.FileHost.HTTP, cfg.FileHost.Timeout, logger), nil
	case "", "none":
		return filehost.NopDeleter{Logger: logger.Named("filehost")}, nil
	}
	return nil, fmt.Errorf("unsupported filehost backend: %q", cfg.FileHost.Backend)
}

func provideWorker(
	repo domaincleanup.Repository,
	deleter cleanup.Deleter,
	bus interfaces.EventBus,
	m *metrics.Metrics,
	cfg *config.CatalogConfig,
	logger *zap.Logger,
) (*cleanup.Worker, error) {
	w := cleanup.NewWorker(repo, deleter, bus, m, cfg.Cleanup, logger)
	if err := w.Subscribe(bus); err != nil {
		return nil, fmt.Errorf("subscribe cleanup worker: %w", err)
	}
	return w, nil
}

func provideStore(
	shards []media.ShardStore,
	router *shard.Router,
	sched media.CleanupScheduler,
	bus interfaces.EventBus,
	logger *zap.Logger,
) *store.Store {
	return store.New(shards, router, sched, bus, logger)
}

func provideCache(cfg *config.CatalogConfig) (interfaces.Cache, func()) {
	if cfg.Metadata.CacheBackend == "redis" {
		client := cache.NewRedisClient(cfg.Redis)
		c := cache.NewRedisCache(client, config.CatalogServiceName+":")
		return c, func() { _ = c.Close() }
	}
	c := utils.NewInMemoryCache(time.Minute)
	return c, c.Close
}

func provideMetadataResolver(cfg *config.CatalogConfig, c interfaces.Cache, logger *zap.Logger) metadata.Resolver {
	m := cfg.Metadata
	client := tmdb.NewClient(m.TMDBBaseURL, m.TMDBAPIKey, m.Language, m.RatePerSecond, m.Timeout, logger)
	return metadata.NewCachedResolver(client, c, m.CacheTTL, logger)
}

func provideProber(cfg *config.CatalogConfig, logger *zap.Logger) *filehost.Prober {
	return filehost.NewProber(cfg.Ingest.ProbeTimeout, logger)
}

func provideIngest(
	prober ingest.Prober,
	resolver metadata.Resolver,
	s *store.Store,
	m *metrics.Metrics,
	cfg *config.CatalogConfig,
	logger *zap.Logger,
) *ingest.Service {
	return ingest.NewService(prober, resolver, s, m, cfg.Ingest, logger)
}

func provideQuery(s *store.Store, cfg *config.CatalogConfig, logger *zap.Logger) *catalog.Query {
	return catalog.NewQuery(s.Shards(), cfg.Mongo.QueryTimeout, logger)
}

func provideStreams(s *store.Store, cfg *config.CatalogConfig, logger *zap.Logger) *stream.Resolver {
	return stream.NewResolver(cfg.Addon.BaseURL, s, logger)
}

func provideHandler(
	cfg *config.CatalogConfig,
	q *catalog.Query,
	s *store.Store,
	streams *stream.Resolver,
	m *metrics.Metrics,
	logger *zap.Logger,
) *handler.Handler {
	return handler.New(cfg.Addon, q, s, streams, s, m, logger)
}

func provideScheduler(s *store.Store, w *cleanup.Worker, cfg *config.CatalogConfig, logger *zap.Logger) (*scheduler.Scheduler, func(), error) {
	sched, err := scheduler.New(logger)
	if err != nil {
		return nil, nil, err
	}
	if err := scheduler.RegisterMaintenance(sched, s, w, cfg.Scheduler); err != nil {
		_ = sched.Stop()
		return nil, nil, err
	}
	return sched, func() { _ = sched.Stop() }, nil
}
