// Package mongodb implements the shard and state stores on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/pkg/config"
)

const stateCollection = "state"

// Pool owns one client per configured cluster. Client 0 is the tracking
// database, clients 1..N back the storage shards.
type Pool struct {
	clients []*mongo.Client
	shards  []*ShardStore
	state   *StateStore
	logger  *zap.Logger
}

// Connect dials every cluster and pings it. On failure every client opened
// so far is disconnected.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Pool, error) {
	if len(cfg.URIs) < 2 {
		return nil, fmt.Errorf("need a tracking and at least one storage uri, got %d", len(cfg.URIs))
	}
	logger = logger.Named("mongodb")

	p := &Pool{logger: logger}
	for i, uri := range cfg.URIs {
		client, err := dial(ctx, uri, cfg.ConnectTimeout)
		if err != nil {
			p.Close(context.Background())
			return nil, fmt.Errorf("shard %d: %w", i, err)
		}
		p.clients = append(p.clients, client)
		logger.Info("connected to cluster", zap.Int("shard", i))
	}

	p.state = NewStateStore(p.clients[0].Database(cfg.Database).Collection(stateCollection), cfg.QueryTimeout)
	for i := 1; i < len(p.clients); i++ {
		p.shards = append(p.shards, NewShardStore(i, p.clients[i].Database(cfg.Database), cfg.QueryTimeout))
	}
	return p, nil
}

func dial(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	pctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	return client, nil
}

// Shards returns the storage shards in index order.
func (p *Pool) Shards() []media.ShardStore {
	out := make([]media.ShardStore, 0, len(p.shards))
	for _, s := range p.shards {
		out = append(out, s)
	}
	return out
}

// State returns the store holding the active shard pointer.
func (p *Pool) State() *StateStore {
	return p.state
}

// EnsureIndexes creates the collection indexes on every storage shard.
func (p *Pool) EnsureIndexes(ctx context.Context) error {
	for _, s := range p.shards {
		if err := s.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("shard %d: %w", s.Index(), err)
		}
		p.logger.Info("indexes ensured", zap.Int("shard", s.Index()))
	}
	return nil
}

// Close disconnects every client.
func (p *Pool) Close(ctx context.Context) error {
	var errs []error
	for i, c := range p.clients {
		if err := c.Disconnect(ctx); err != nil {
			p.logger.Warn("disconnect failed", zap.Int("shard", i), zap.Error(err))
			errs = append(errs, err)
		}
	}
	p.clients = nil
	return errors.Join(errs...)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
