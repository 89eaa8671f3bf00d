package media

import (
	"strings"
	"time"
)

// MediaType distinguishes movies from series.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// ParseMediaType accepts the catalog protocol names plus "tv".
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return MediaTypeMovie, nil
	case "series", "tv", "show":
		return MediaTypeSeries, nil
	}
	return "", NewValidationError("media_type", "unknown media type "+s)
}

// Collection returns the per-shard collection holding this media type.
func (t MediaType) Collection() string {
	if t == MediaTypeSeries {
		return "tv"
	}
	return "movie"
}

// MediaItem is one title stored in exactly one shard.
type MediaItem struct {
	TMDBID      int       `bson:"tmdb_id" json:"tmdb_id"`
	IMDbID      string    `bson:"imdb_id,omitempty" json:"imdb_id,omitempty"`
	ShardIndex  int       `bson:"db_index" json:"db_index"`
	MediaType   MediaType `bson:"media_type" json:"media_type"`
	Title       string    `bson:"title" json:"title"`
	Genres      []string  `bson:"genres" json:"genres"`
	Description string    `bson:"description" json:"description"`
	Rating      float64   `bson:"rating" json:"rating"`
	ReleaseYear int       `bson:"release_year" json:"release_year"`
	Poster      string    `bson:"poster" json:"poster"`
	Backdrop    string    `bson:"backdrop" json:"backdrop"`
	Logo        string    `bson:"logo,omitempty" json:"logo,omitempty"`
	Cast        []string  `bson:"cast" json:"cast"`
	Runtime     string    `bson:"runtime" json:"runtime"`
	Translated  bool      `bson:"translated,omitempty" json:"translated,omitempty"`
	UpdatedOn   time.Time `bson:"updated_on" json:"updated_on"`

	// Movies carry their variants directly; series carry them per episode.
	Variants []QualityVariant `bson:"telegram,omitempty" json:"telegram,omitempty"`
	Seasons  []Season         `bson:"seasons,omitempty" json:"seasons,omitempty"`
}

// Season groups the episodes of one season.
type Season struct {
	SeasonNumber int       `bson:"season_number" json:"season_number"`
	Episodes     []Episode `bson:"episodes" json:"episodes"`
}

// Episode is one episode with its own variant list.
type Episode struct {
	EpisodeNumber int              `bson:"episode_number" json:"episode_number"`
	Title         string           `bson:"title" json:"title"`
	Overview      string           `bson:"overview" json:"overview"`
	Released      string           `bson:"released" json:"released"`
	Thumbnail     string           `bson:"episode_backdrop" json:"episode_backdrop"`
	Variants      []QualityVariant `bson:"telegram" json:"telegram"`
}

// ShardState is the persisted pointer to the shard receiving new inserts.
type ShardState struct {
	ID                string `bson:"_id"`
	CurrentShardIndex int    `bson:"current_index"`
}

// ShardStateID is the fixed key of the state document.
const ShardStateID = "db_index"

// IsMovie reports whether the item is a movie.
func (m *MediaItem) IsMovie() bool {
	return m.MediaType != MediaTypeSeries
}

// Key returns the public identity "{tmdb_id}-{shard_index}".
func (m *MediaItem) Key() string {
	return FormatID(m.TMDBID, m.ShardIndex)
}

// Season returns the season with the given number, or nil.
func (m *MediaItem) Season(number int) *Season {
	for i := range m.Seasons {
		if m.Seasons[i].SeasonNumber == number {
			return &m.Seasons[i]
		}
	}
	return nil
}

// Episode returns the episode at season/episode, or nil.
func (m *MediaItem) Episode(season, episode int) *Episode {
	s := m.Season(season)
	if s == nil {
		return nil
	}
	return s.Episode(episode)
}

// Episode returns the episode with the given number, or nil.
func (s *Season) Episode(number int) *Episode {
	for i := range s.Episodes {
		if s.Episodes[i].EpisodeNumber == number {
			return &s.Episodes[i]
		}
	}
	return nil
}

// AllVariants returns every variant of the item, episodes included, in storage order.
func (m *MediaItem) AllVariants() []QualityVariant {
	out := make([]QualityVariant, 0, len(m.Variants))
	out = append(out, m.Variants...)
	for _, s := range m.Seasons {
		for _, e := range s.Episodes {
			out = append(out, e.Variants...)
		}
	}
	return out
}

// VariantCount counts variants without allocating.
func (m *MediaItem) VariantCount() int {
	n := len(m.Variants)
	for _, s := range m.Seasons {
		for _, e := range s.Episodes {
			n += len(e.Variants)
		}
	}
	return n
}

// LatestRelease is the maximum episode release date, or "" for movies.
// Dates are ISO-8601 so the string order is the time order.
func (m *MediaItem) LatestRelease() string {
	var latest string
	for _, s := range m.Seasons {
		for _, e := range s.Episodes {
			if e.Released > latest {
				latest = e.Released
			}
		}
	}
	return latest
}

// HasGenre reports whether genre is in the item's genre list.
func (m *MediaItem) HasGenre(genre string) bool {
	for _, g := range m.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// AddGenres appends missing genres and reports whether anything changed.
func (m *MediaItem) AddGenres(genres ...string) bool {
	changed := false
	for _, g := range genres {
		if g == "" || m.HasGenre(g) {
			continue
		}
		m.Genres = append(m.Genres, g)
		changed = true
	}
	return changed
}

// Validate checks the fields every stored item must carry.
func (m *MediaItem) Validate() error {
	if m.TMDBID <= 0 {
		return NewValidationError("tmdb_id", "must be positive")
	}
	if strings.TrimSpace(m.Title) == "" {
		return NewValidationError("title", "is required")
	}
	if m.MediaType != MediaTypeMovie && m.MediaType != MediaTypeSeries {
		return NewValidationError("media_type", "must be movie or series")
	}
	if m.VariantCount() == 0 {
		return ErrNoVariants
	}
	return nil
}
