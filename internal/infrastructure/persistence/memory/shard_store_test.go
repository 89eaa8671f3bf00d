package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/infrastructure/persistence/memory"
	"github.com/kartal788/dftest/test/testutil"
)

func TestSetFailureAffectsEveryCall(t *testing.T) {
	// Arrange
	ctx := context.Background()
	shard := memory.NewShardStore(1)
	movie := testutil.CreateTestMovie(603, "The Matrix",
		testutil.CreateTestVariant("abc", "The.Matrix.1999.1080p.mkv", "1080p", "2 GB"))
	require.NoError(t, shard.Insert(ctx, movie))
	down := errors.New("connection refused")

	// Act
	shard.SetFailure(down)

	// Assert
	_, err := shard.FindByTMDB(ctx, media.MediaTypeMovie, 603)
	assert.ErrorIs(t, err, down)
	_, err = shard.Find(ctx, media.FindQuery{MediaType: media.MediaTypeMovie})
	assert.ErrorIs(t, err, down)
	_, err = shard.Count(ctx, media.MediaTypeMovie)
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, shard.Iterate(ctx, media.MediaTypeMovie, func(*media.MediaItem) error { return nil }), down)
	assert.ErrorIs(t, shard.Replace(ctx, movie), down)
	_, err = shard.Delete(ctx, media.MediaTypeMovie, 603)
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, shard.Ping(ctx), down)

	shard.SetFailure(nil)
	got, err := shard.FindByTMDB(ctx, media.MediaTypeMovie, 603)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ShardIndex)
}

// Toggling the failure while readers run must not race under -race.
func TestSetFailureWhileServing(t *testing.T) {
	ctx := context.Background()
	shard := memory.NewShardStore(0)
	down := errors.New("no reachable servers")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				err := shard.Ping(ctx)
				if err != nil {
					assert.ErrorIs(t, err, down)
				}
				_, _ = shard.Count(ctx, media.MediaTypeSeries)
			}
		}()
	}
	for j := 0; j < 200; j++ {
		if j%2 == 0 {
			shard.SetFailure(down)
		} else {
			shard.SetFailure(nil)
		}
	}
	wg.Wait()

	shard.SetFailure(nil)
	assert.NoError(t, shard.Ping(ctx))
}
