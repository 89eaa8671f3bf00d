package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/events"
	"github.com/kartal788/dftest/internal/infrastructure/persistence/memory"
	"github.com/kartal788/dftest/internal/shard"
	"github.com/kartal788/dftest/internal/store"
	pkgevents "github.com/kartal788/dftest/pkg/events"
	"github.com/kartal788/dftest/pkg/interfaces"
	"github.com/kartal788/dftest/test/testutil"
)

// MockCleanupScheduler is a mock for the cleanup job ledger
type MockCleanupScheduler struct {
	mock.Mock
}

func (m *MockCleanupScheduler) Enqueue(ctx context.Context, reqs []media.CleanupRequest) error {
	args := m.Called(ctx, reqs)
	return args.Error(0)
}

type StoreTestSuite struct {
	suite.Suite
	ctx     context.Context
	shards  []*memory.ShardStore
	router  *shard.Router
	cleanup *MockCleanupScheduler
	bus     *pkgevents.InMemoryEventBus
	store   *store.Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (suite *StoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
	logger := zaptest.NewLogger(suite.T())

	suite.shards = testutil.NewMemoryShards(2)
	suite.router = shard.NewRouter(memory.NewStateStore(), 2, logger)
	require.NoError(suite.T(), suite.router.Load(suite.ctx))

	suite.cleanup = new(MockCleanupScheduler)
	suite.bus = pkgevents.NewInMemoryEventBus(logger)
	suite.store = store.New(
		testutil.AsShardStores(suite.shards),
		suite.router,
		suite.cleanup,
		suite.bus,
		logger,
		store.WithClock(func() time.Time { return testutil.FixedTime }),
	)
}

func (suite *StoreTestSuite) TearDownTest() {
	suite.bus.Stop()
	suite.cleanup.AssertExpectations(suite.T())
}

func (suite *StoreTestSuite) TestInsertOrMerge_InsertsIntoActiveShard() {
	// Arrange
	require.NoError(suite.T(), suite.router.SetActiveShard(suite.ctx, 2))
	movie := testutil.CreateTestMovie(603, "The Matrix",
		testutil.CreateTestVariant("abc123", "The.Matrix.1999.1080p.mkv", "1080p", "2.1 GB"))

	// Act
	res, err := suite.store.InsertOrMerge(suite.ctx, movie)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "603-2", res.RecordID)
	assert.True(suite.T(), res.Created)
	assert.Equal(suite.T(), 1, res.Added)

	stored, err := suite.shards[1].FindByTMDB(suite.ctx, media.MediaTypeMovie, 603)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, stored.ShardIndex)
	_, err = suite.shards[0].FindByTMDB(suite.ctx, media.MediaTypeMovie, 603)
	assert.ErrorIs(suite.T(), err, media.ErrMediaNotFound)
}

func (suite *StoreTestSuite) TestInsertOrMerge_MergesIntoExistingShard() {
	// Arrange
	first := testutil.CreateTestMovie(603, "The Matrix",
		testutil.CreateTestVariant("abc123", "The.Matrix.1999.1080p.mkv", "1080p", "2.1 GB"))
	_, err := suite.store.InsertOrMerge(suite.ctx, first)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.router.SetActiveShard(suite.ctx, 2))

	second := testutil.CreateTestMovie(603, "Matrix (changed title)",
		testutil.CreateTestVariant("https://pixeldrain.com/api/file/x1", "The.Matrix.1999.720p.mkv", "720p", "900 MB"))

	// Act
	res, err := suite.store.InsertOrMerge(suite.ctx, second)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "603-1", res.RecordID)
	assert.False(suite.T(), res.Created)
	assert.Equal(suite.T(), 1, res.Added)

	stored, err := suite.store.Get(suite.ctx, 603, 1, media.MediaTypeMovie)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "The Matrix", stored.Title)
	assert.Len(suite.T(), stored.Variants, 2)

	count, _ := suite.shards[1].Count(suite.ctx, media.MediaTypeMovie)
	assert.Zero(suite.T(), count)
}

func (suite *StoreTestSuite) TestInsertOrMerge_IdempotentAfterDedup() {
	// Arrange
	variant := testutil.CreateTestVariant("abc123", "The.Matrix.1999.1080p.mkv", "1080p", "2.1 GB")

	// Act
	for i := 0; i < 2; i++ {
		_, err := suite.store.InsertOrMerge(suite.ctx, testutil.CreateTestMovie(603, "The Matrix", variant))
		require.NoError(suite.T(), err)
	}
	_, err := suite.store.DedupAll(suite.ctx, false)
	require.NoError(suite.T(), err)

	// Assert
	var total int64
	for _, sh := range suite.shards {
		n, _ := sh.Count(suite.ctx, media.MediaTypeMovie)
		assert.LessOrEqual(suite.T(), n, int64(1))
		total += n
	}
	assert.Equal(suite.T(), int64(1), total)

	stored, err := suite.store.Get(suite.ctx, 603, 1, media.MediaTypeMovie)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), stored.Variants, 1)
}

func (suite *StoreTestSuite) TestInsertOrMerge_SeriesAppendsEpisodes() {
	// Arrange
	e1 := testutil.CreateTestSeries(1399, "Show", 1, 1,
		testutil.CreateTestVariant("ref-e1", "Show.S01E01.1080p.mkv", "1080p", "1 GB"))
	e2 := testutil.CreateTestSeries(1399, "Show", 1, 2,
		testutil.CreateTestVariant("ref-e2", "Show.S01E02.1080p.mkv", "1080p", "1 GB"))
	s2 := testutil.CreateTestSeries(1399, "Show", 2, 1,
		testutil.CreateTestVariant("ref-s2e1", "Show.S02E01.1080p.mkv", "1080p", "1 GB"))

	// Act
	for _, item := range []*media.MediaItem{e2, s2, e1} {
		_, err := suite.store.InsertOrMerge(suite.ctx, item)
		require.NoError(suite.T(), err)
	}

	// Assert
	stored, err := suite.store.Get(suite.ctx, 1399, 1, media.MediaTypeSeries)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), stored.Seasons, 2)
	assert.Equal(suite.T(), 1, stored.Seasons[0].SeasonNumber)
	require.Len(suite.T(), stored.Seasons[0].Episodes, 2)
	assert.Equal(suite.T(), 1, stored.Seasons[0].Episodes[0].EpisodeNumber)
	assert.Equal(suite.T(), 2, stored.Seasons[0].Episodes[1].EpisodeNumber)
	assert.Equal(suite.T(), 3, stored.VariantCount())
}

func (suite *StoreTestSuite) TestInsertOrMerge_RejectsInvalidItem() {
	// Arrange
	movie := testutil.CreateTestMovie(603, "The Matrix")

	// Act
	_, err := suite.store.InsertOrMerge(suite.ctx, movie)

	// Assert
	assert.ErrorIs(suite.T(), err, media.ErrNoVariants)
}

func (suite *StoreTestSuite) TestInsertOrMerge_ShardFailureAborts() {
	// Arrange
	suite.shards[0].SetFailure(errors.New("connection refused"))
	movie := testutil.CreateTestMovie(603, "The Matrix",
		testutil.CreateTestVariant("abc123", "The.Matrix.1999.1080p.mkv", "1080p", "2.1 GB"))

	// Act
	_, err := suite.store.InsertOrMerge(suite.ctx, movie)

	// Assert
	assert.Error(suite.T(), err)
	count, _ := suite.shards[1].Count(suite.ctx, media.MediaTypeMovie)
	assert.Zero(suite.T(), count)
}

func (suite *StoreTestSuite) TestDelete_EnqueuesCleanupForInternalVariants() {
	// Arrange
	series := testutil.CreateTestSeries(1399, "Show", 1, 1,
		testutil.CreateTestVariant("internal-1", "Show.S01E01.1080p.mkv", "1080p", "1 GB"),
		testutil.CreateTestVariant("https://pixeldrain.com/u/abc", "Show.S01E01.720p.mkv", "720p", "500 MB"))
	_, err := suite.store.InsertOrMerge(suite.ctx, series)
	require.NoError(suite.T(), err)

	deleted := make(chan interfaces.Event, 1)
	require.NoError(suite.T(), suite.bus.Subscribe(events.MediaDeleted, interfaces.EventHandlerFunc{
		Type: events.MediaDeleted,
		Fn: func(ctx context.Context, e interfaces.Event) error {
			deleted <- e
			return nil
		},
	}))

	suite.cleanup.On("Enqueue", mock.Anything, []media.CleanupRequest{{
		SourceRef: "internal-1",
		ItemKey:   "1399-1",
		MediaType: media.MediaTypeSeries,
	}}).Return(nil).Once()

	// Act
	ok, err := suite.store.Delete(suite.ctx, 1399, 1, media.MediaTypeSeries)

	// Assert
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	_, err = suite.store.Get(suite.ctx, 1399, 1, media.MediaTypeSeries)
	assert.ErrorIs(suite.T(), err, media.ErrMediaNotFound)

	suite.bus.Wait()
	require.Len(suite.T(), deleted, 1)
	env := (<-deleted).(*events.Envelope)
	var payload events.MediaDeletedPayload
	require.NoError(suite.T(), env.Decode(&payload))
	assert.Equal(suite.T(), 1399, payload.TMDBID)
	assert.Equal(suite.T(), []string{"internal-1"}, payload.CleanupRefs)
}

func (suite *StoreTestSuite) TestDelete_EnqueueFailureDoesNotFailDelete() {
	// Arrange
	movie := testutil.CreateTestMovie(603, "The Matrix",
		testutil.CreateTestVariant("abc123", "The.Matrix.1999.1080p.mkv", "1080p", "2.1 GB"))
	_, err := suite.store.InsertOrMerge(suite.ctx, movie)
	require.NoError(suite.T(), err)
	suite.cleanup.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("ledger down")).Once()

	// Act
	ok, err := suite.store.Delete(suite.ctx, 603, 1, media.MediaTypeMovie)

	// Assert
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *StoreTestSuite) TestDelete_Missing() {
	ok, err := suite.store.Delete(suite.ctx, 42, 1, media.MediaTypeMovie)

	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *StoreTestSuite) TestDelete_UnknownShard() {
	_, err := suite.store.Delete(suite.ctx, 42, 9, media.MediaTypeMovie)

	assert.ErrorIs(suite.T(), err, media.ErrShardOutOfRange)
}
