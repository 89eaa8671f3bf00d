package main

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/container"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/logger"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	once      sync.Once
	container *container.CatalogContainer
	cleanup   func()
	err       error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag}
}

// ensureContainer loads config and connects to every shard once per process.
func (c *commandContext) ensureContainer(ctx context.Context) (*container.CatalogContainer, error) {
	c.once.Do(func() {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			os.Setenv("CONFIG_PATH", path)
		}

		cfg := config.GetDefaultCatalogConfig()
		// Operator output goes to stdout; keep logs on stderr and quiet.
		cfg.Logger.OutputPath = "stderr"
		cfg.Logger.Level = "warn"
		cfg.Scheduler.Enabled = false
		if err := config.LoadServiceConfig(config.CatalogServiceName, cfg, config.CatalogListKeys...); err != nil {
			c.err = err
			return
		}

		log, err := logger.New(config.CatalogServiceName+"ctl", cfg.Logger)
		if err != nil {
			c.err = err
			return
		}

		c.container, c.cleanup, c.err = container.InitializeCatalog(ctx, cfg, log)
	})
	return c.container, c.err
}

func (c *commandContext) withContainer(cmd *cobra.Command, fn func(context.Context, *container.CatalogContainer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cc, err := c.ensureContainer(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, cc)
}

func (c *commandContext) close() {
	if c.cleanup == nil {
		return
	}
	if c.container != nil {
		if err := c.container.Bus.Stop(); err != nil {
			c.container.Logger.Warn("event bus stop failed", zap.Error(err))
		}
	}
	c.cleanup()
	c.cleanup = nil
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}
