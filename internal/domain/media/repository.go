package media

import (
	"context"
)

// SortKey selects the ordering of catalog listings.
type SortKey string

const (
	SortUpdated       SortKey = "updated"
	SortRating        SortKey = "rating"
	SortLatestRelease SortKey = "latest_release"
)

// ParseSortKey maps a client value to a SortKey, defaulting to SortUpdated.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortRating:
		return SortRating
	case SortLatestRelease:
		return SortLatestRelease
	}
	return SortUpdated
}

// Before reports whether a sorts ahead of b. Every key sorts descending;
// ties fall back to ascending tmdb id so shard order and merge order agree.
func (k SortKey) Before(a, b *MediaItem) bool {
	switch k {
	case SortRating:
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
	case SortLatestRelease:
		if ra, rb := a.LatestRelease(), b.LatestRelease(); ra != rb {
			return ra > rb
		}
	default:
		if !a.UpdatedOn.Equal(b.UpdatedOn) {
			return a.UpdatedOn.After(b.UpdatedOn)
		}
	}
	return a.TMDBID < b.TMDBID
}

// FindQuery describes a filtered, sorted window over one shard collection.
type FindQuery struct {
	MediaType MediaType
	Filters   []ItemSpecification
	Sort      SortKey
	Skip      int
	Limit     int
}

// ShardStore is one storage shard holding a movie and a tv collection.
type ShardStore interface {
	// Index is the shard's position in the configured URI list (1..N).
	Index() int

	FindByTMDB(ctx context.Context, mediaType MediaType, tmdbID int) (*MediaItem, error)
	Insert(ctx context.Context, item *MediaItem) error
	Replace(ctx context.Context, item *MediaItem) error
	Delete(ctx context.Context, mediaType MediaType, tmdbID int) (*MediaItem, error)

	// Find returns items matching the pushable filters of q, sorted by q.Sort.
	// Filters that cannot be expressed as a store filter are ignored here.
	Find(ctx context.Context, q FindQuery) ([]*MediaItem, error)

	// Iterate calls fn for every item of mediaType until fn returns an error.
	Iterate(ctx context.Context, mediaType MediaType, fn func(*MediaItem) error) error

	Count(ctx context.Context, mediaType MediaType) (int64, error)
	Ping(ctx context.Context) error
}

// StateStore persists the active shard pointer.
type StateStore interface {
	// Get returns the stored index and false when no state document exists.
	Get(ctx context.Context) (int, bool, error)
	Set(ctx context.Context, index int) error
}

// CleanupRequest identifies one hosted file to remove after a delete.
type CleanupRequest struct {
	SourceRef string
	ItemKey   string
	MediaType MediaType
}

// CleanupScheduler records hosted-file cleanup work.
type CleanupScheduler interface {
	Enqueue(ctx context.Context, reqs []CleanupRequest) error
}
