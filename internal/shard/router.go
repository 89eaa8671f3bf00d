// Package shard tracks which storage shard receives new top-level inserts.
package shard

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/domain/media"
)

// DefaultShard is used when no state document exists yet.
const DefaultShard = 1

// Router caches the persisted active shard index.
type Router struct {
	state      media.StateStore
	shardCount int
	logger     *zap.Logger

	mu     sync.RWMutex
	active int
}

// NewRouter creates a router over shardCount storage shards (1..shardCount).
func NewRouter(state media.StateStore, shardCount int, logger *zap.Logger) *Router {
	return &Router{
		state:      state,
		shardCount: shardCount,
		logger:     logger.Named("shard-router"),
		active:     DefaultShard,
	}
}

// Load reads the state document once, creating it at DefaultShard if missing.
func (r *Router) Load(ctx context.Context) error {
	index, found, err := r.state.Get(ctx)
	if err != nil {
		return fmt.Errorf("load shard state: %w", err)
	}

	if !found {
		if err := r.state.Set(ctx, DefaultShard); err != nil {
			return fmt.Errorf("initialize shard state: %w", err)
		}
		index = DefaultShard
		r.logger.Info("shard state initialized", zap.Int("active_shard", index))
	} else if index < 1 || index > r.shardCount {
		r.logger.Warn("persisted shard index out of range, keeping it until changed",
			zap.Int("active_shard", index),
			zap.Int("shard_count", r.shardCount))
	}

	r.mu.Lock()
	r.active = index
	r.mu.Unlock()

	r.logger.Info("shard state loaded", zap.Int("active_shard", index))
	return nil
}

// ActiveShard returns the cached active index.
func (r *Router) ActiveShard() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// ShardCount returns the number of storage shards.
func (r *Router) ShardCount() int {
	return r.shardCount
}

// SetActiveShard persists index and switches new inserts to it.
func (r *Router) SetActiveShard(ctx context.Context, index int) error {
	if index < 1 || index > r.shardCount {
		return fmt.Errorf("%w: %d not in 1..%d", media.ErrShardOutOfRange, index, r.shardCount)
	}

	if err := r.state.Set(ctx, index); err != nil {
		return fmt.Errorf("persist shard state: %w", err)
	}

	r.mu.Lock()
	prev := r.active
	r.active = index
	r.mu.Unlock()

	r.logger.Info("active shard changed", zap.Int("from", prev), zap.Int("to", index))
	return nil
}
