package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartal788/dftest/pkg/config"
)

func validConfig() *config.CatalogConfig {
	cfg := config.GetDefaultCatalogConfig()
	cfg.Mongo.URIs = []string{"mongodb://tracking", "mongodb://storage-1"}
	return cfg
}

func TestCatalogConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.CatalogConfig)
		wantErr string
	}{
		{"defaults with two uris", func(*config.CatalogConfig) {}, ""},
		{"single uri", func(c *config.CatalogConfig) { c.Mongo.URIs = c.Mongo.URIs[:1] }, "at least 2 mongo uris"},
		{"unknown broker", func(c *config.CatalogConfig) { c.Events.Broker = "rabbit" }, "unsupported event broker"},
		{"kafka without brokers", func(c *config.CatalogConfig) { c.Events.Broker = "kafka" }, "kafka broker list"},
		{"unknown ledger driver", func(c *config.CatalogConfig) { c.Ledger.Driver = "mysql" }, "unsupported ledger driver"},
		{"zero concurrency", func(c *config.CatalogConfig) { c.Ingest.Concurrency = 0 }, "ingest concurrency"},
		{"bad port", func(c *config.CatalogConfig) { c.Service.Port = 70000 }, "invalid service port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKeyToPath(t *testing.T) {
	assert.Equal(t, "cleanup.max_attempts", config.EnvKeyToPath("CATALOG_", "CATALOG_CLEANUP__MAX_ATTEMPTS"))
	assert.Equal(t, "mongo.uris", config.EnvKeyToPath("CATALOG_", "CATALOG_MONGO__URIS"))
}

func TestLoadServiceConfig_FromEnv(t *testing.T) {
	t.Setenv("CATALOG_MONGO__URIS", "mongodb://tracking, mongodb://s1,mongodb://s2")
	t.Setenv("CATALOG_CLEANUP__MAX_ATTEMPTS", "7")
	t.Setenv("CATALOG_INGEST__PROBE_TIMEOUT", "20s")
	t.Setenv("CATALOG_ADDON__BASE_URL", "https://arsiv.example")

	cfg, err := loadCatalog()
	require.NoError(t, err)

	assert.Equal(t, []string{"mongodb://tracking", "mongodb://s1", "mongodb://s2"}, cfg.Mongo.URIs)
	assert.Equal(t, 2, cfg.Mongo.StorageShardCount())
	assert.Equal(t, 7, cfg.Cleanup.MaxAttempts)
	assert.Equal(t, 20*time.Second, cfg.Ingest.ProbeTimeout)
	assert.Equal(t, "https://arsiv.example", cfg.Addon.BaseURL)
	assert.Equal(t, config.DefaultPageSize, cfg.Addon.PageSize)
}

func TestLoadServiceConfig_LegacyDatabaseVariable(t *testing.T) {
	t.Setenv("DATABASE", "mongodb://tracking,mongodb://s1")

	cfg, err := loadCatalog()
	require.NoError(t, err)
	assert.Len(t, cfg.Mongo.URIs, 2)
}

func loadCatalog() (*config.CatalogConfig, error) {
	cfg := config.GetDefaultCatalogConfig()
	err := config.LoadServiceConfig(config.CatalogServiceName, cfg, config.CatalogListKeys...)
	return cfg, err
}
