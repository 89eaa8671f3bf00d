package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartal788/dftest/internal/infrastructure/cache"
	"github.com/kartal788/dftest/pkg/interfaces"
)

var _ interfaces.Cache = (*cache.RedisCache)(nil)

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("CATALOG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CATALOG_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	c := cache.NewRedisCache(client, "catalog-test:")
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))

	// Arrange
	_ = c.Delete(ctx, "meta:movie:603")

	// Act
	_, missErr := c.Get(ctx, "meta:movie:603")
	require.NoError(t, c.Set(ctx, "meta:movie:603", []byte(`{"title":"The Matrix"}`), time.Minute))
	got, err := c.Get(ctx, "meta:movie:603")

	// Assert
	assert.ErrorIs(t, missErr, interfaces.ErrCacheMiss)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"The Matrix"}`, string(got))

	raw, err := client.Get(ctx, "catalog-test:meta:movie:603").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	require.NoError(t, c.Delete(ctx, "meta:movie:603"))
	_, err = c.Get(ctx, "meta:movie:603")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
}
