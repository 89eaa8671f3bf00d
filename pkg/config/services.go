package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kartal788/dftest/pkg/logger"
)

// CatalogServiceName is used for the env prefix (CATALOG_) and config file names.
const CatalogServiceName = "catalog"

// CatalogListKeys are the keys whose env values are comma-separated.
var CatalogListKeys = []string{"mongo.uris", "events.kafka.brokers"}

// CatalogConfig is the configuration for the catalog server and its operator CLI.
type CatalogConfig struct {
	Service   ServiceConfig   `koanf:"service"`
	Logger    logger.Config   `koanf:"logger"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Redis     RedisConfig     `koanf:"redis"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Ledger    LedgerConfig    `koanf:"ledger"`
	Events    EventsConfig    `koanf:"events"`
	FileHost  FileHostConfig  `koanf:"filehost"`
	Metadata  MetadataConfig  `koanf:"metadata"`
	Addon     AddonConfig     `koanf:"addon"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Cleanup   CleanupConfig   `koanf:"cleanup"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// MongoConfig lists the shard clusters. URIs[0] is the tracking database,
// URIs[1:] are the storage shards.
type MongoConfig struct {
	URIs           []string      `koanf:"uris"`
	Database       string        `koanf:"database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	QueryTimeout   time.Duration `koanf:"query_timeout"`
}

// LedgerConfig is the relational store for cleanup jobs.
type LedgerConfig struct {
	Driver       string        `koanf:"driver"` // sqlite or postgres
	DSN          string        `koanf:"dsn"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	MaxIdleConns int           `koanf:"max_idle_conns"`
	MaxLifetime  time.Duration `koanf:"max_lifetime"`
	Debug        bool          `koanf:"debug"`
}

// EventsConfig selects the event transport.
type EventsConfig struct {
	Broker string      `koanf:"broker"` // memory, nats or kafka
	NATS   NATSConfig  `koanf:"nats"`
	Kafka  KafkaConfig `koanf:"kafka"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL           string        `koanf:"url"`
	ClientID      string        `koanf:"client_id"`
	DurableName   string        `koanf:"durable_name"`
	MaxReconnect  int           `koanf:"max_reconnect"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	GroupID string   `koanf:"group_id"`
}

// FileHostConfig selects where internally hosted files are deleted from.
type FileHostConfig struct {
	Backend string         `koanf:"backend"` // s3, http or none
	Timeout time.Duration  `koanf:"timeout"`
	S3      S3Config       `koanf:"s3"`
	HTTP    HTTPHostConfig `koanf:"http"`
}

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	Bucket          string `koanf:"bucket"`
	Prefix          string `koanf:"prefix"`
	Region          string `koanf:"region"`
}

// HTTPHostConfig is a file service reachable over HTTP (PixelDrain-style API).
type HTTPHostConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
}

// MetadataConfig configures TMDB lookups.
type MetadataConfig struct {
	TMDBBaseURL   string        `koanf:"tmdb_base_url"`
	TMDBAPIKey    string        `koanf:"tmdb_api_key"`
	Language      string        `koanf:"language"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Timeout       time.Duration `koanf:"timeout"`
	CacheBackend  string        `koanf:"cache_backend"` // memory or redis
	CacheTTL      time.Duration `koanf:"cache_ttl"`
}

// AddonConfig describes the public catalog surface.
type AddonConfig struct {
	ID          string `koanf:"id"`
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	Version     string `koanf:"version"`
	BaseURL     string `koanf:"base_url"`
	PageSize    int    `koanf:"page_size"`
}

// IngestConfig bounds ingest-time network work.
type IngestConfig struct {
	Concurrency  int           `koanf:"concurrency"`
	ProbeTimeout time.Duration `koanf:"probe_timeout"`
}

// CleanupConfig controls the hosted-file cleanup jobs.
type CleanupConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	BaseBackoff time.Duration `koanf:"base_backoff"`
	SweepBatch  int           `koanf:"sweep_batch"`
	// Lease is how long a running attempt may go without an update before a
	// sweep takes the job back.
	Lease       time.Duration `koanf:"lease"`
}

// SchedulerConfig holds the cron expressions of the maintenance jobs.
type SchedulerConfig struct {
	Enabled       bool   `koanf:"enabled"`
	DedupCron     string `koanf:"dedup_cron"`
	ReconcileCron string `koanf:"reconcile_cron"`
	CleanupCron   string `koanf:"cleanup_cron"`
	BackfillCron  string `koanf:"backfill_cron"`
}

// StorageShardCount is the number of storage shards (tracking excluded).
func (c MongoConfig) StorageShardCount() int {
	if len(c.URIs) == 0 {
		return 0
	}
	return len(c.URIs) - 1
}

// Validate validates the catalog configuration
func (c *CatalogConfig) Validate() error {
	if err := c.Service.Validate(); err != nil {
		return err
	}
	if len(c.Mongo.URIs) < MinMongoURIs {
		return fmt.Errorf("at least %d mongo uris are required (tracking + storage), got %d", MinMongoURIs, len(c.Mongo.URIs))
	}
	if c.Mongo.Database == "" {
		return errors.New("mongo database name is required")
	}
	switch c.Ledger.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported ledger driver: %q", c.Ledger.Driver)
	}
	switch c.Events.Broker {
	case "memory", "nats", "kafka":
	default:
		return fmt.Errorf("unsupported event broker: %q", c.Events.Broker)
	}
	if c.Events.Broker == "kafka" && len(c.Events.Kafka.Brokers) == 0 {
		return errors.New("kafka broker list is required")
	}
	switch c.FileHost.Backend {
	case "s3", "http", "none":
	default:
		return fmt.Errorf("unsupported filehost backend: %q", c.FileHost.Backend)
	}
	if c.Ingest.Concurrency < 1 {
		return errors.New("ingest concurrency must be at least 1")
	}
	if c.Cleanup.MaxAttempts < 1 {
		return errors.New("cleanup max attempts must be at least 1")
	}
	if c.Addon.PageSize < 1 {
		return errors.New("addon page size must be at least 1")
	}
	return nil
}

// GetDefaultCatalogConfig returns default catalog configuration
func GetDefaultCatalogConfig() *CatalogConfig {
	cfg := &CatalogConfig{
		Service: DefaultService(CatalogServiceName),
		Logger:  logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Redis: DefaultRedis(),
		Mongo: MongoConfig{
			Database:       "catalog",
			ConnectTimeout: 10 * time.Second,
			QueryTimeout:   DefaultNetworkTimeout,
		},
		Ledger: LedgerConfig{
			Driver:       "sqlite",
			DSN:          "file:catalog_jobs.db?_busy_timeout=5000",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
			MaxLifetime:  time.Hour,
		},
		Events: EventsConfig{
			Broker: "memory",
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				ClientID:      fmt.Sprintf("%s-%s", CatalogServiceName, hostname()),
				DurableName:   fmt.Sprintf("%s-cleanup", CatalogServiceName),
				MaxReconnect:  60,
				ReconnectWait: 2 * time.Second,
			},
			Kafka: KafkaConfig{
				Topic:   "catalog-events",
				GroupID: "catalog-cleanup",
			},
		},
		FileHost: FileHostConfig{
			Backend: "none",
			Timeout: DefaultNetworkTimeout,
			S3: S3Config{
				Region: "us-east-1",
			},
			HTTP: HTTPHostConfig{
				BaseURL: "https://pixeldrain.com",
			},
		},
		Metadata: MetadataConfig{
			TMDBBaseURL:   "https://api.themoviedb.org/3",
			Language:      "tr-TR",
			RatePerSecond: DefaultTMDBRatePerSec,
			Timeout:       DefaultNetworkTimeout,
			CacheBackend:  "memory",
			CacheTTL:      DefaultMetadataCacheTTL,
		},
		Addon: AddonConfig{
			ID:          "telegram.media",
			Name:        "Arşivim",
			Description: "Film & Dizi Arşivi",
			Version:     "1.0.0",
			BaseURL:     "http://localhost:8000",
			PageSize:    DefaultPageSize,
		},
		Ingest: IngestConfig{
			Concurrency:  DefaultIngestConcurrent,
			ProbeTimeout: DefaultNetworkTimeout,
		},
		Cleanup: CleanupConfig{
			MaxAttempts: DefaultMaxAttempts,
			BaseBackoff: DefaultCleanupBackoff,
			SweepBatch:  50,
			Lease:       DefaultCleanupLease,
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			DedupCron:     "0 */6 * * *",
			ReconcileCron: "30 */12 * * *",
			CleanupCron:   "* * * * *",
			BackfillCron:  "15 4 * * *",
		},
	}

	// DATABASE is the comma-separated URI list used by older deployments.
	if legacy := os.Getenv("DATABASE"); legacy != "" {
		cfg.Mongo.URIs = splitList(legacy)
	}

	return cfg
}

func hostname() string {
	if h := os.Getenv("HOSTNAME"); h != "" {
		return strings.ToLower(h)
	}
	return "local"
}
