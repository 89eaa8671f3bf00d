package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/container"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/logger"
)

func main() {
	cfg := config.GetDefaultCatalogConfig()
	if err := config.LoadServiceConfig(config.CatalogServiceName, cfg, config.CatalogListKeys...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(config.CatalogServiceName, cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("catalog server failed", zap.Error(err))
	}
}

func run(cfg *config.CatalogConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initTimeout := cfg.Mongo.ConnectTimeout * time.Duration(len(cfg.Mongo.URIs)+1)
	if initTimeout <= 0 {
		initTimeout = time.Minute
	}
	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	c, cleanup, err := container.InitializeCatalog(initCtx, cfg, log)
	cancel()
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	if err := c.Bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	defer func() {
		if err := c.Bus.Stop(); err != nil {
			log.Warn("event bus stop failed", zap.Error(err))
		}
	}()

	if cfg.Scheduler.Enabled {
		c.Scheduler.Start()
	}

	srv := &http.Server{
		Addr:              config.GetListenAddress(&cfg.Service),
		Handler:           c.Handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server",
			zap.String("addr", srv.Addr),
			zap.Int("shards", len(c.Store.Shards())),
			zap.Int("active_shard", c.Store.Router().ActiveShard()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
