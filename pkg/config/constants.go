package config

import "time"

const (
	// Server defaults.
	DefaultHTTPPort        = 8000
	DefaultShutdownTimeout = 30 * time.Second

	// Redis defaults.
	DefaultRedisPort    = 6379
	DefaultMaxRetries   = 3
	DefaultPoolSize     = 10
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second

	// Catalog defaults.
	DefaultPageSize         = 15
	DefaultNetworkTimeout   = 15 * time.Second
	DefaultIngestConcurrent = 10
	DefaultMaxAttempts      = 5
	DefaultCleanupBackoff   = 30 * time.Second
	DefaultCleanupLease     = 5 * time.Minute
	DefaultMetadataCacheTTL = 24 * time.Hour
	DefaultTMDBRatePerSec   = 20

	// MinMongoURIs is one tracking database plus at least one storage shard.
	MinMongoURIs = 2
)
