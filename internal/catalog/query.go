// Package catalog answers paged listing queries across every storage shard.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/domain/specification"
)

const (
	// DefaultPageSize is the number of metas in one catalog page.
	DefaultPageSize = 15

	// minPlatformBatch is the first batch read when post-filtering by platform.
	minPlatformBatch = 50
)

// Request selects one page of a catalog.
type Request struct {
	MediaType media.MediaType
	Genre     string
	Platform  string
	Sort      media.SortKey
	Skip      int
	PageSize  int
}

// Query fans a listing out to every shard and merges the results.
//
// Each shard returns its own top Skip+PageSize items, so the merged page is
// exact as long as nothing is written while the page is built.
type Query struct {
	shards  []media.ShardStore
	timeout time.Duration
	logger  *zap.Logger
}

// NewQuery creates a query over shards. A zero timeout disables the per-query deadline.
func NewQuery(shards []media.ShardStore, timeout time.Duration, logger *zap.Logger) *Query {
	return &Query{
		shards:  shards,
		timeout: timeout,
		logger:  logger.Named("catalog"),
	}
}

// Query returns the requested page. It never fails: shard errors are logged
// and the shard contributes nothing.
func (q *Query) Query(ctx context.Context, req Request) []*media.MediaItem {
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.Skip < 0 {
		req.Skip = 0
	}
	if req.Sort == "" {
		req.Sort = media.SortUpdated
	}

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	filters := make([]media.ItemSpecification, 0, 2)
	if req.Genre != "" {
		filters = append(filters, media.NewGenreSpecification(req.Genre))
	}
	if req.Platform != "" {
		filters = append(filters, NewPlatformSpecification(req.Platform))
	}

	window := req.Skip + req.PageSize
	results := make([][]*media.MediaItem, len(q.shards))

	var g errgroup.Group
	for i, sh := range q.shards {
		i, sh := i, sh
		g.Go(func() error {
			items, err := q.fetchShard(ctx, sh, req, filters, window)
			if err != nil {
				q.logger.Error("shard query failed",
					zap.Int("shard", sh.Index()),
					zap.String("media_type", string(req.MediaType)),
					zap.Error(err))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	merged := make([]*media.MediaItem, 0, window*len(q.shards))
	for _, items := range results {
		merged = append(merged, items...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return req.Sort.Before(merged[i], merged[j])
	})

	if req.Skip >= len(merged) {
		return []*media.MediaItem{}
	}
	end := req.Skip + req.PageSize
	if end > len(merged) {
		end = len(merged)
	}
	return merged[req.Skip:end]
}

// fetchShard returns the shard's first window items that satisfy every filter.
// Filters the store cannot evaluate are applied here, reading the shard in
// growing batches until the window is full or the shard is exhausted.
func (q *Query) fetchShard(ctx context.Context, sh media.ShardStore, req Request, filters []media.ItemSpecification, window int) (items []*media.MediaItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shard %d query panic: %v", sh.Index(), r)
		}
	}()

	_, post := specification.Split(filters...)
	find := media.FindQuery{
		MediaType: req.MediaType,
		Filters:   filters,
		Sort:      req.Sort,
		Limit:     window,
	}
	if len(post) == 0 {
		return sh.Find(ctx, find)
	}

	batch := window
	if batch < minPlatformBatch {
		batch = minPlatformBatch
	}

	matched := make([]*media.MediaItem, 0, window)
	for {
		find.Limit = batch
		page, err := sh.Find(ctx, find)
		if err != nil {
			return nil, err
		}
		for _, item := range page {
			if specification.SatisfiesAll(item, post...) {
				matched = append(matched, item)
				if len(matched) == window {
					return matched, nil
				}
			}
		}
		if len(page) < batch {
			return matched, nil
		}
		find.Skip += len(page)
		batch *= 2
	}
}
