package shard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/infrastructure/persistence/memory"
	"github.com/kartal788/dftest/internal/shard"
)

func TestRouter_LoadInitializesMissingState(t *testing.T) {
	// Arrange
	state := memory.NewStateStore()
	router := shard.NewRouter(state, 3, zaptest.NewLogger(t))

	// Act
	err := router.Load(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, router.ActiveShard())
	index, found, _ := state.Get(context.Background())
	assert.True(t, found)
	assert.Equal(t, 1, index)
}

func TestRouter_LoadReadsPersistedState(t *testing.T) {
	state := memory.NewStateStore(2)
	router := shard.NewRouter(state, 3, zaptest.NewLogger(t))

	require.NoError(t, router.Load(context.Background()))

	assert.Equal(t, 2, router.ActiveShard())
	assert.Zero(t, state.Writes)
}

func TestRouter_SetActiveShard(t *testing.T) {
	ctx := context.Background()
	state := memory.NewStateStore()
	router := shard.NewRouter(state, 3, zaptest.NewLogger(t))
	require.NoError(t, router.Load(ctx))

	require.NoError(t, router.SetActiveShard(ctx, 3))
	assert.Equal(t, 3, router.ActiveShard())

	// A fresh router sees the persisted value.
	reloaded := shard.NewRouter(state, 3, zaptest.NewLogger(t))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 3, reloaded.ActiveShard())
}

func TestRouter_SetActiveShardOutOfRange(t *testing.T) {
	ctx := context.Background()
	router := shard.NewRouter(memory.NewStateStore(), 2, zaptest.NewLogger(t))
	require.NoError(t, router.Load(ctx))

	for _, index := range []int{0, 3, -1} {
		err := router.SetActiveShard(ctx, index)
		assert.ErrorIs(t, err, media.ErrShardOutOfRange)
	}
	assert.Equal(t, 1, router.ActiveShard())
}
