package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kartal788/dftest/internal/catalog"
	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/infrastructure/persistence/memory"
	"github.com/kartal788/dftest/test/testutil"
)

// seedMovies inserts movies 1..n, spreading them round robin over shards.
// Movie i is updated i minutes after the fixture clock.
func seedMovies(t *testing.T, shards []*memory.ShardStore, n int, name func(i int) string) {
	t.Helper()
	for i := 1; i <= n; i++ {
		movie := testutil.CreateTestMovie(i, fmt.Sprintf("Movie %d", i),
			testutil.CreateTestVariant(fmt.Sprintf("ref-%d", i), name(i), "1080p", "1 GB"))
		movie.UpdatedOn = testutil.FixedTime.Add(time.Duration(i) * time.Minute)
		if i%3 == 0 {
			movie.Genres = []string{"Dram"}
		}
		require.NoError(t, shards[(i-1)%len(shards)].Insert(context.Background(), movie))
	}
}

func plainName(i int) string { return fmt.Sprintf("Movie.%d.1080p.mkv", i) }

func ids(items []*media.MediaItem) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.TMDBID)
	}
	return out
}

func descending(from, to int) []int {
	out := []int{}
	for i := from; i >= to; i-- {
		out = append(out, i)
	}
	return out
}

func TestQuery_SecondPageSingleShard(t *testing.T) {
	// Arrange
	shards := testutil.NewMemoryShards(1)
	seedMovies(t, shards, 40, plainName)
	q := catalog.NewQuery(testutil.AsShardStores(shards), 0, zaptest.NewLogger(t))

	// Act
	page := q.Query(context.Background(), catalog.Request{
		MediaType: media.MediaTypeMovie,
		Skip:      15,
	})

	// Assert
	assert.Equal(t, descending(25, 11), ids(page))
}

func TestQuery_MergesShardsInSortOrder(t *testing.T) {
	// Arrange
	shards := testutil.NewMemoryShards(3)
	seedMovies(t, shards, 40, plainName)
	q := catalog.NewQuery(testutil.AsShardStores(shards), time.Second, zaptest.NewLogger(t))

	// Act
	first := q.Query(context.Background(), catalog.Request{MediaType: media.MediaTypeMovie})
	second := q.Query(context.Background(), catalog.Request{MediaType: media.MediaTypeMovie, Skip: 15})
	last := q.Query(context.Background(), catalog.Request{MediaType: media.MediaTypeMovie, Skip: 30})

	// Assert
	assert.Equal(t, descending(40, 26), ids(first))
	assert.Equal(t, descending(25, 11), ids(second))
	assert.Equal(t, descending(10, 1), ids(last))
}

func TestQuery_SkipPastEnd(t *testing.T) {
	shards := testutil.NewMemoryShards(2)
	seedMovies(t, shards, 5, plainName)
	q := catalog.NewQuery(testutil.AsShardStores(shards), 0, zaptest.NewLogger(t))

	page := q.Query(context.Background(), catalog.Request{MediaType: media.MediaTypeMovie, Skip: 100})

	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestQuery_GenreFilter(t *testing.T) {
	// Arrange
	shards := testutil.NewMemoryShards(2)
	seedMovies(t, shards, 20, plainName)
	q := catalog.NewQuery(testutil.AsShardStores(shards), 0, zaptest.NewLogger(t))

	// Act
	page := q.Query(context.Background(), catalog.Request{
		MediaType: media.MediaTypeMovie,
		Genre:     "Dram",
	})

	// Assert
	assert.Equal(t, []int{18, 15, 12, 9, 6, 3}, ids(page))
}

func TestQuery_PlatformFilterReadsPastFirstBatch(t *testing.T) {
	// Arrange
	shards := testutil.NewMemoryShards(1)
	// Only the 5 oldest movies carry the Netflix tag, so the first batch of
	// newest items holds no match.
	seedMovies(t, shards, 120, func(i int) string {
		if i <= 5 {
			return fmt.Sprintf("Movie.%d.1080p.NF.WEB-DL.mkv", i)
		}
		return plainName(i)
	})
	q := catalog.NewQuery(testutil.AsShardStores(shards), 0, zaptest.NewLogger(t))

	// Act
	page := q.Query(context.Background(), catalog.Request{
		MediaType: media.MediaTypeMovie,
		Platform:  "netflix",
	})

	// Assert
	assert.Equal(t, descending(5, 1), ids(page))
}

func TestQuery_FailedShardIsSkipped(t *testing.T) {
	// Arrange
	shards := testutil.NewMemoryShards(2)
	seedMovies(t, shards, 10, plainName)
	shards[0].SetFailure(errors.New("connection reset"))
	q := catalog.NewQuery(testutil.AsShardStores(shards), 0, zaptest.NewLogger(t))

	// Act
	page := q.Query(context.Background(), catalog.Request{MediaType: media.MediaTypeMovie})

	// Assert
	assert.Equal(t, []int{10, 8, 6, 4, 2}, ids(page))
}

func TestQuery_RatingSort(t *testing.T) {
	// Arrange
	shards := testutil.NewMemoryShards(2)
	ctx := context.Background()
	for i, rating := range []float64{6.1, 9.0, 7.4, 9.0} {
		movie := testutil.CreateTestMovie(i+1, "M", testutil.CreateTestVariant(fmt.Sprint(i), "M.mkv", "720p", "1 GB"))
		movie.Rating = rating
		require.NoError(t, shards[i%2].Insert(ctx, movie))
	}
	q := catalog.NewQuery(testutil.AsShardStores(shards), 0, zaptest.NewLogger(t))

	// Act
	page := q.Query(ctx, catalog.Request{MediaType: media.MediaTypeMovie, Sort: media.SortRating})

	// Assert
	assert.Equal(t, []int{2, 4, 3, 1}, ids(page))
}
