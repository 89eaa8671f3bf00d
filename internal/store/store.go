// Package store owns every write to the sharded media collections.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/events"
	"github.com/kartal788/dftest/internal/shard"
	apperrors "github.com/kartal788/dftest/pkg/errors"
	"github.com/kartal788/dftest/pkg/interfaces"
)

// Store coordinates inserts, merges and deletes across storage shards.
//
// InsertOrMerge is serialized per tmdb id inside one process only. Two
// processes ingesting the same new title can still create it in two shards;
// Reconcile repairs those duplicates.
type Store struct {
	shards  []media.ShardStore
	router  *shard.Router
	cleanup media.CleanupScheduler
	bus     interfaces.EventBus
	logger  *zap.Logger
	locks   *keyedMutex
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for updated_on.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store over shards ordered by index (1..N).
func New(
	shards []media.ShardStore,
	router *shard.Router,
	cleanup media.CleanupScheduler,
	bus interfaces.EventBus,
	logger *zap.Logger,
	opts ...Option,
) *Store {
	ordered := append([]media.ShardStore(nil), shards...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index() < ordered[j].Index() })

	s := &Store{
		shards:  ordered,
		router:  router,
		cleanup: cleanup,
		bus:     bus,
		logger:  logger.Named("store"),
		locks:   newKeyedMutex(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shards returns the storage shards in index order.
func (s *Store) Shards() []media.ShardStore {
	return s.shards
}

// Router returns the active shard router.
func (s *Store) Router() *shard.Router {
	return s.router
}

func (s *Store) shard(index int) (media.ShardStore, error) {
	for _, sh := range s.shards {
		if sh.Index() == index {
			return sh, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", media.ErrShardOutOfRange, index)
}

// UpsertResult describes what InsertOrMerge did.
type UpsertResult struct {
	RecordID   string
	ShardIndex int
	Created    bool
	Added      int
}

// InsertOrMerge stores item, merging it into an existing document with the
// same tmdb id when any shard already holds one.
func (s *Store) InsertOrMerge(ctx context.Context, item *media.MediaItem) (UpsertResult, error) {
	if err := item.Validate(); err != nil {
		return UpsertResult{}, err
	}

	unlock := s.locks.Lock(lockKey(item.MediaType, item.TMDBID))
	defer unlock()

	// A second pass covers a concurrent insert from another process landing
	// between our scan and our insert.
	for attempt := 0; attempt < 2; attempt++ {
		res, found, err := s.mergeExisting(ctx, item)
		if err != nil || found {
			return res, err
		}

		res, err = s.insertNew(ctx, item)
		if err == nil {
			return res, nil
		}
		if !apperrors.IsDuplicateError(err) {
			return UpsertResult{}, err
		}
		s.logger.Warn("insert raced with another writer, retrying as merge",
			zap.Int("tmdb_id", item.TMDBID))
	}
	return UpsertResult{}, apperrors.Conflict(fmt.Sprintf("could not store tmdb %d", item.TMDBID))
}

func (s *Store) mergeExisting(ctx context.Context, item *media.MediaItem) (UpsertResult, bool, error) {
	for _, sh := range s.shards {
		existing, err := sh.FindByTMDB(ctx, item.MediaType, item.TMDBID)
		if errors.Is(err, media.ErrMediaNotFound) {
			continue
		}
		if err != nil {
			return UpsertResult{}, false, apperrors.NetworkFailure(
				fmt.Sprintf("scan shard %d for tmdb %d", sh.Index(), item.TMDBID), err)
		}

		added, err := existing.Merge(item, s.now())
		if err != nil {
			return UpsertResult{}, true, err
		}
		if err := sh.Replace(ctx, existing); err != nil {
			return UpsertResult{}, true, fmt.Errorf("replace tmdb %d in shard %d: %w", item.TMDBID, sh.Index(), err)
		}

		s.logger.Info("media merged",
			zap.Int("tmdb_id", item.TMDBID),
			zap.Int("shard", sh.Index()),
			zap.Int("variants_added", added))
		return UpsertResult{
			RecordID:   media.FormatID(item.TMDBID, sh.Index()),
			ShardIndex: sh.Index(),
			Added:      added,
		}, true, nil
	}
	return UpsertResult{}, false, nil
}

func (s *Store) insertNew(ctx context.Context, item *media.MediaItem) (UpsertResult, error) {
	active := s.router.ActiveShard()
	sh, err := s.shard(active)
	if err != nil {
		return UpsertResult{}, err
	}

	doc := item.Clone()
	doc.ShardIndex = active
	doc.UpdatedOn = s.now()
	doc.Normalize()

	if err := sh.Insert(ctx, doc); err != nil {
		return UpsertResult{}, err
	}

	s.logger.Info("media inserted",
		zap.Int("tmdb_id", doc.TMDBID),
		zap.String("title", doc.Title),
		zap.Int("shard", active))
	return UpsertResult{
		RecordID:   media.FormatID(doc.TMDBID, active),
		ShardIndex: active,
		Created:    true,
		Added:      doc.VariantCount(),
	}, nil
}

// Get loads one item from the shard named in its identity.
func (s *Store) Get(ctx context.Context, tmdbID, shardIndex int, mediaType media.MediaType) (*media.MediaItem, error) {
	sh, err := s.shard(shardIndex)
	if err != nil {
		return nil, err
	}
	item, err := sh.FindByTMDB(ctx, mediaType, tmdbID)
	if err != nil {
		return nil, err
	}
	item.ShardIndex = shardIndex
	return item, nil
}

// Delete removes a document and enqueues cleanup of every internally hosted
// file it referenced. It reports false when no document matched.
func (s *Store) Delete(ctx context.Context, tmdbID, shardIndex int, mediaType media.MediaType) (bool, error) {
	sh, err := s.shard(shardIndex)
	if err != nil {
		return false, err
	}

	unlock := s.locks.Lock(lockKey(mediaType, tmdbID))
	defer unlock()

	removed, err := sh.Delete(ctx, mediaType, tmdbID)
	if errors.Is(err, media.ErrMediaNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete tmdb %d from shard %d: %w", tmdbID, shardIndex, err)
	}

	key := media.FormatID(tmdbID, shardIndex)
	refs := removed.InternalRefs()
	if len(refs) > 0 && s.cleanup != nil {
		reqs := make([]media.CleanupRequest, 0, len(refs))
		for _, ref := range refs {
			reqs = append(reqs, media.CleanupRequest{SourceRef: ref, ItemKey: key, MediaType: mediaType})
		}
		if err := s.cleanup.Enqueue(ctx, reqs); err != nil {
			s.logger.Error("failed to enqueue hosted file cleanup",
				zap.String("item", key),
				zap.Int("files", len(reqs)),
				zap.Error(err))
		}
	}

	s.publish(ctx, events.MediaDeleted, key, events.MediaDeletedPayload{
		TMDBID:      tmdbID,
		ShardIndex:  shardIndex,
		MediaType:   string(mediaType),
		Title:       removed.Title,
		CleanupRefs: refs,
	})

	s.logger.Info("media deleted",
		zap.String("item", key),
		zap.String("title", removed.Title),
		zap.Int("cleanup_files", len(refs)))
	return true, nil
}

func (s *Store) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if s.bus == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, key, payload)
	if err == nil {
		err = s.bus.Publish(ctx, env)
	}
	if err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("item", key),
			zap.Error(err))
	}
}

func lockKey(mediaType media.MediaType, tmdbID int) string {
	return fmt.Sprintf("%s/%d", mediaType.Collection(), tmdbID)
}
