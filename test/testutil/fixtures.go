package testutil

import (
	"fmt"
	"time"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/infrastructure/persistence/memory"
)

// FixedTime is the clock used by fixtures.
var FixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// CreateTestVariant creates a variant with the given ref, name and size.
func CreateTestVariant(ref, name, quality, size string) media.QualityVariant {
	return media.QualityVariant{
		SourceRef:    ref,
		DisplayName:  name,
		QualityLabel: quality,
		Size:         size,
	}
}

// CreateTestMovie creates a movie carrying variants.
func CreateTestMovie(tmdbID int, title string, variants ...media.QualityVariant) *media.MediaItem {
	return &media.MediaItem{
		TMDBID:      tmdbID,
		IMDbID:      fmt.Sprintf("tt%07d", tmdbID),
		MediaType:   media.MediaTypeMovie,
		Title:       title,
		Genres:      []string{"Aksiyon"},
		Description: title + " description",
		Rating:      7.5,
		ReleaseYear: 1999,
		Poster:      "https://image.tmdb.org/t/p/w500/poster.jpg",
		Backdrop:    "https://image.tmdb.org/t/p/original/backdrop.jpg",
		Cast:        []string{"Actor One", "Actor Two"},
		Runtime:     "136 min",
		UpdatedOn:   FixedTime,
		Variants:    variants,
	}
}

// CreateTestSeries creates a series with one episode carrying variants.
func CreateTestSeries(tmdbID int, title string, season, episode int, variants ...media.QualityVariant) *media.MediaItem {
	return &media.MediaItem{
		TMDBID:      tmdbID,
		MediaType:   media.MediaTypeSeries,
		Title:       title,
		Genres:      []string{"Dram"},
		Description: title + " description",
		Rating:      8.1,
		ReleaseYear: 2020,
		UpdatedOn:   FixedTime,
		Seasons: []media.Season{{
			SeasonNumber: season,
			Episodes: []media.Episode{{
				EpisodeNumber: episode,
				Title:         fmt.Sprintf("Episode %d", episode),
				Released:      fmt.Sprintf("2020-01-%02dT11:00:00Z", episode),
				Variants:      variants,
			}},
		}},
	}
}

// NewMemoryShards creates n empty in-memory shards indexed 1..n.
func NewMemoryShards(n int) []*memory.ShardStore {
	shards := make([]*memory.ShardStore, 0, n)
	for i := 1; i <= n; i++ {
		shards = append(shards, memory.NewShardStore(i))
	}
	return shards
}

// AsShardStores converts concrete shards to the domain interface.
func AsShardStores(shards []*memory.ShardStore) []media.ShardStore {
	out := make([]media.ShardStore, 0, len(shards))
	for _, s := range shards {
		out = append(out, s)
	}
	return out
}
