package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/pkg/interfaces"
)

// CachedResolver memoizes successful lookups. Misses and failures are not cached.
type CachedResolver struct {
	next   Resolver
	cache  interfaces.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedResolver wraps next with cache.
func NewCachedResolver(next Resolver, cache interfaces.Cache, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logger: logger.Named("metadata-cache")}
}

// Resolve reads through the cache. Cache errors only cost a lookup.
func (r *CachedResolver) Resolve(ctx context.Context, lookup Lookup) (*CanonicalMetadata, error) {
	key := cacheKey(lookup)

	if raw, err := r.cache.Get(ctx, key); err == nil {
		var meta CanonicalMetadata
		if err := json.Unmarshal(raw, &meta); err == nil {
			return &meta, nil
		}
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
		_ = r.cache.Delete(ctx, key)
	} else if !errors.Is(err, interfaces.ErrCacheMiss) {
		r.logger.Warn("metadata cache read failed", zap.String("key", key), zap.Error(err))
	}

	meta, err := r.next.Resolve(ctx, lookup)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(meta); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			r.logger.Warn("metadata cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return meta, nil
}

func cacheKey(l Lookup) string {
	return fmt.Sprintf("meta:%s:%d:%s:%d:%d:%d",
		l.MediaType, l.TMDBID, strings.ToLower(strings.TrimSpace(l.Title)), l.Year, l.Season, l.Episode)
}
