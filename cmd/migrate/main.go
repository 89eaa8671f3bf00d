package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	gormrepo "github.com/kartal788/dftest/internal/infrastructure/persistence/gorm"
	"github.com/kartal788/dftest/internal/infrastructure/persistence/mongodb"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/logger"
)

func main() {
	var (
		skipLedger = flag.Bool("skip-ledger", false, "Do not migrate the cleanup job ledger")
		skipMongo  = flag.Bool("skip-mongo", false, "Do not create shard indexes")
		timeout    = flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	)
	flag.Parse()

	cfg := config.GetDefaultCatalogConfig()
	if err := config.LoadServiceConfig(config.CatalogServiceName, cfg, config.CatalogListKeys...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(config.CatalogServiceName+"-migrate", cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if !*skipLedger {
		if err := migrateLedger(cfg.Ledger, log); err != nil {
			log.Fatal("ledger migration failed", zap.Error(err))
		}
	}
	if !*skipMongo {
		if err := migrateShards(ctx, cfg.Mongo, log); err != nil {
			log.Fatal("shard index migration failed", zap.Error(err))
		}
	}
	log.Info("migrations completed")
}

// migrateLedger opens the ledger, which runs AutoMigrate on open.
func migrateLedger(cfg config.LedgerConfig, log *zap.Logger) error {
	_, cleanup, err := gormrepo.NewDB(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()
	log.Info("ledger schema is up to date", zap.String("driver", cfg.Driver))
	return nil
}

func migrateShards(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) error {
	pool, err := mongodb.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close(context.Background())

	if err := pool.EnsureIndexes(ctx); err != nil {
		return err
	}

	// The state document is created at shard 1 when missing.
	if _, found, err := pool.State().Get(ctx); err != nil {
		return err
	} else if !found {
		if err := pool.State().Set(ctx, 1); err != nil {
			return err
		}
		log.Info("initialized shard state", zap.Int("active_shard", 1))
	}
	return nil
}
