// Package memory provides in-process shard and state stores.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/domain/specification"
)

// ShardStore keeps one shard's movie and tv collections in maps.
type ShardStore struct {
	index int

	mu    sync.RWMutex
	items map[media.MediaType]map[int]*media.MediaItem
	order map[media.MediaType][]int
	fail  error
}

// NewShardStore creates an empty shard with the given index.
func NewShardStore(index int) *ShardStore {
	return &ShardStore{
		index: index,
		items: make(map[media.MediaType]map[int]*media.MediaItem),
		order: make(map[media.MediaType][]int),
	}
}

// SetFailure makes every later call return err until it is reset with nil.
func (s *ShardStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *ShardStore) Index() int {
	return s.index
}

func (s *ShardStore) FindByTMDB(ctx context.Context, mediaType media.MediaType, tmdbID int) (*media.MediaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}

	item, ok := s.items[mediaType][tmdbID]
	if !ok {
		return nil, media.ErrMediaNotFound
	}
	return item.Clone(), nil
}

func (s *ShardStore) Insert(ctx context.Context, item *media.MediaItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	coll := s.collection(item.MediaType)
	if _, exists := coll[item.TMDBID]; exists {
		return errDuplicateKey
	}
	stored := item.Clone()
	stored.ShardIndex = s.index
	coll[item.TMDBID] = stored
	s.order[item.MediaType] = append(s.order[item.MediaType], item.TMDBID)
	return nil
}

func (s *ShardStore) Replace(ctx context.Context, item *media.MediaItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	coll := s.collection(item.MediaType)
	if _, exists := coll[item.TMDBID]; !exists {
		return media.ErrMediaNotFound
	}
	stored := item.Clone()
	stored.ShardIndex = s.index
	coll[item.TMDBID] = stored
	return nil
}

func (s *ShardStore) Delete(ctx context.Context, mediaType media.MediaType, tmdbID int) (*media.MediaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	coll := s.collection(mediaType)
	item, ok := coll[tmdbID]
	if !ok {
		return nil, media.ErrMediaNotFound
	}
	delete(coll, tmdbID)

	ids := s.order[mediaType]
	for i, id := range ids {
		if id == tmdbID {
			s.order[mediaType] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return item, nil
}

// Find applies only the pushable filters, like the document store would.
func (s *ShardStore) Find(ctx context.Context, q media.FindQuery) ([]*media.MediaItem, error) {
	pushdown, _ := specification.Split(q.Filters...)

	s.mu.RLock()
	if err := s.fail; err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	matched := make([]*media.MediaItem, 0)
	for _, id := range s.order[q.MediaType] {
		item := s.items[q.MediaType][id]
		if specification.SatisfiesAll(item, pushdown...) {
			matched = append(matched, item.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return q.Sort.Before(matched[i], matched[j])
	})

	if q.Skip >= len(matched) {
		return []*media.MediaItem{}, nil
	}
	matched = matched[q.Skip:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *ShardStore) Iterate(ctx context.Context, mediaType media.MediaType, fn func(*media.MediaItem) error) error {
	s.mu.RLock()
	if err := s.fail; err != nil {
		s.mu.RUnlock()
		return err
	}
	snapshot := make([]*media.MediaItem, 0, len(s.order[mediaType]))
	for _, id := range s.order[mediaType] {
		snapshot = append(snapshot, s.items[mediaType][id].Clone())
	}
	s.mu.RUnlock()

	for _, item := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

func (s *ShardStore) Count(ctx context.Context, mediaType media.MediaType) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return 0, s.fail
	}
	return int64(len(s.items[mediaType])), nil
}

func (s *ShardStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fail
}

func (s *ShardStore) collection(mediaType media.MediaType) map[int]*media.MediaItem {
	coll, ok := s.items[mediaType]
	if !ok {
		coll = make(map[int]*media.MediaItem)
		s.items[mediaType] = coll
	}
	return coll
}
