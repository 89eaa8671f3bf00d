package store_test

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/store"
	apperrors "github.com/kartal788/dftest/pkg/errors"
	"github.com/kartal788/dftest/test/testutil"
)

func (suite *StoreTestSuite) TestDedupVariants_PrefersInternal() {
	// Arrange
	variants := []media.QualityVariant{
		testutil.CreateTestVariant("internal-1", "Movie.1080p.mkv", "1080p", "2 GB"),
		testutil.CreateTestVariant("https://host/file", "Movie.1080p.mkv", "1080p", "2 GB"),
	}

	// Act
	kept, removed := store.DedupVariants(variants)

	// Assert
	require.Len(suite.T(), kept, 1)
	assert.Equal(suite.T(), "internal-1", kept[0].SourceRef)
	assert.Equal(suite.T(), 1, removed)
}

func (suite *StoreTestSuite) TestDedupAll_DryRunDoesNotWrite() {
	// Arrange
	movie := testutil.CreateTestMovie(603, "The Matrix",
		testutil.CreateTestVariant("a", "The.Matrix.1080p.mkv", "1080p", "2 GB"),
		testutil.CreateTestVariant("b", "The.Matrix.1080p.mkv", "1080p", "2 GB"))
	require.NoError(suite.T(), suite.shards[0].Insert(suite.ctx, movie))

	// Act
	report, err := suite.store.DedupAll(suite.ctx, true)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, report.DocumentsAffected)
	assert.Equal(suite.T(), 1, report.VariantsRemoved)
	stored, _ := suite.store.Get(suite.ctx, 603, 1, media.MediaTypeMovie)
	assert.Len(suite.T(), stored.Variants, 2)
}

func (suite *StoreTestSuite) TestDedupAll_EpisodeVariants() {
	// Arrange
	series := testutil.CreateTestSeries(1399, "Show", 1, 1,
		testutil.CreateTestVariant("https://host/a", "Show.S01E01.mkv", "1080p", "1 GB"),
		testutil.CreateTestVariant("https://host/b", "Show.S01E01.mkv", "1080p", "1 GB"),
		testutil.CreateTestVariant("c", "Show.S01E01.720p.mkv", "720p", "500 MB"))
	require.NoError(suite.T(), suite.shards[1].Insert(suite.ctx, series))

	// Act
	report, err := suite.store.DedupAll(suite.ctx, false)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, report.VariantsRemoved)
	stored, _ := suite.store.Get(suite.ctx, 1399, 2, media.MediaTypeSeries)
	eps := stored.Seasons[0].Episodes[0].Variants
	require.Len(suite.T(), eps, 2)
	assert.Equal(suite.T(), "https://host/b", eps[0].SourceRef)
	assert.Equal(suite.T(), "c", eps[1].SourceRef)
}

func (suite *StoreTestSuite) TestReconcile_KeepsLowestShard() {
	// Arrange
	survivor := testutil.CreateTestMovie(603, "The Matrix",
		testutil.CreateTestVariant("a", "The.Matrix.1080p.mkv", "1080p", "2 GB"))
	loser := testutil.CreateTestMovie(603, "Matrix Duplicate",
		testutil.CreateTestVariant("b", "The.Matrix.720p.mkv", "720p", "1 GB"),
		testutil.CreateTestVariant("https://host/a", "The.Matrix.1080p.mkv", "1080p", "2 GB"))
	require.NoError(suite.T(), suite.shards[1].Insert(suite.ctx, loser))
	require.NoError(suite.T(), suite.shards[0].Insert(suite.ctx, survivor))

	// Act
	report, err := suite.store.Reconcile(suite.ctx)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, report.Duplicates)
	assert.Equal(suite.T(), 1, report.RecordsRemoved)
	require.Len(suite.T(), report.Issues, 1)
	assert.True(suite.T(), apperrors.IsShardInconsistency(report.Issues[0]))

	stored, err := suite.store.Get(suite.ctx, 603, 1, media.MediaTypeMovie)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "The Matrix", stored.Title)
	refs := []string{}
	for _, v := range stored.Variants {
		refs = append(refs, v.SourceRef)
	}
	assert.Equal(suite.T(), []string{"a", "b"}, refs)

	_, err = suite.store.Get(suite.ctx, 603, 2, media.MediaTypeMovie)
	assert.ErrorIs(suite.T(), err, media.ErrMediaNotFound)
}

func (suite *StoreTestSuite) TestBackfillPlatformGenres() {
	// Arrange
	movie := testutil.CreateTestMovie(603, "The Matrix",
		testutil.CreateTestVariant("a", "The.Matrix.1999.1080p.NF.WEB-DL.mkv", "1080p", "2 GB"))
	movie.Genres = []string{"Action", "Science Fiction"}
	require.NoError(suite.T(), suite.shards[0].Insert(suite.ctx, movie))
	plain := testutil.CreateTestMovie(604, "Plain",
		testutil.CreateTestVariant("b", "Plain.2001.720p.mkv", "720p", "1 GB"))
	require.NoError(suite.T(), suite.shards[0].Insert(suite.ctx, plain))

	// Act
	updated, err := suite.store.BackfillPlatformGenres(suite.ctx)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, updated)
	stored, _ := suite.store.Get(suite.ctx, 603, 1, media.MediaTypeMovie)
	assert.Equal(suite.T(), []string{"Aksiyon", "Bilim Kurgu", "Netflix"}, stored.Genres)

	again, err := suite.store.BackfillPlatformGenres(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), again)
}

func (suite *StoreTestSuite) TestStats() {
	// Arrange
	require.NoError(suite.T(), suite.shards[0].Insert(suite.ctx, testutil.CreateTestMovie(1, "A",
		testutil.CreateTestVariant("a", "A.mkv", "1080p", "1 GB"))))
	require.NoError(suite.T(), suite.shards[1].Insert(suite.ctx, testutil.CreateTestMovie(2, "B",
		testutil.CreateTestVariant("b", "B.mkv", "1080p", "1 GB"))))
	require.NoError(suite.T(), suite.shards[1].Insert(suite.ctx, testutil.CreateTestSeries(3, "C", 1, 1,
		testutil.CreateTestVariant("c", "C.S01E01.mkv", "1080p", "1 GB"))))

	// Act
	stats, err := suite.store.Stats(suite.ctx)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, stats.ActiveShard)
	assert.Equal(suite.T(), int64(2), stats.Movies)
	assert.Equal(suite.T(), int64(1), stats.Series)
	require.Len(suite.T(), stats.Shards, 2)
	assert.Equal(suite.T(), int64(1), stats.Shards[1].Series)
	assert.Equal(suite.T(), store.GenreCount{Movies: 2}, stats.Genres["Aksiyon"])
	assert.Equal(suite.T(), store.GenreCount{Series: 1}, stats.Genres["Dram"])
}
