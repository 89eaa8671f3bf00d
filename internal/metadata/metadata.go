// Package metadata defines canonical title data and how it is resolved.
package metadata

import (
	"context"
	"time"

	"github.com/kartal788/dftest/internal/domain/media"
)

// Lookup identifies the title to resolve. When TMDBID is set the search
// step is skipped.
type Lookup struct {
	MediaType media.MediaType
	Title     string
	Year      int
	TMDBID    int
	Season    int
	Episode   int
}

// EpisodeMetadata is the per-episode part of a series lookup.
type EpisodeMetadata struct {
	Title     string `json:"title"`
	Overview  string `json:"overview"`
	Released  string `json:"released"`
	Thumbnail string `json:"thumbnail"`
}

// CanonicalMetadata is the resolved description of one title.
type CanonicalMetadata struct {
	TMDBID      int              `json:"tmdb_id"`
	IMDbID      string           `json:"imdb_id"`
	MediaType   media.MediaType  `json:"media_type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Genres      []string         `json:"genres"`
	Rating      float64          `json:"rating"`
	ReleaseYear int              `json:"release_year"`
	Poster      string           `json:"poster"`
	Backdrop    string           `json:"backdrop"`
	Logo        string           `json:"logo"`
	Cast        []string         `json:"cast"`
	Runtime     string           `json:"runtime"`
	Translated  bool             `json:"translated"`
	Episode     *EpisodeMetadata `json:"episode,omitempty"`
}

// Resolver resolves canonical metadata. A title without a match is an
// apperrors LookupMiss.
type Resolver interface {
	Resolve(ctx context.Context, lookup Lookup) (*CanonicalMetadata, error)
}

// ToItem builds a storable item carrying one variant. For series the
// variant is placed under season/episode.
func (m *CanonicalMetadata) ToItem(v media.QualityVariant, season, episode int, now time.Time) *media.MediaItem {
	item := &media.MediaItem{
		TMDBID:      m.TMDBID,
		IMDbID:      m.IMDbID,
		MediaType:   m.MediaType,
		Title:       m.Title,
		Genres:      append([]string(nil), m.Genres...),
		Description: m.Description,
		Rating:      m.Rating,
		ReleaseYear: m.ReleaseYear,
		Poster:      m.Poster,
		Backdrop:    m.Backdrop,
		Logo:        m.Logo,
		Cast:        append([]string(nil), m.Cast...),
		Runtime:     m.Runtime,
		Translated:  m.Translated,
		UpdatedOn:   now,
	}

	if m.MediaType != media.MediaTypeSeries {
		item.Variants = []media.QualityVariant{v}
		return item
	}

	ep := media.Episode{
		EpisodeNumber: episode,
		Variants:      []media.QualityVariant{v},
	}
	if m.Episode != nil {
		ep.Title = m.Episode.Title
		ep.Overview = m.Episode.Overview
		ep.Released = m.Episode.Released
		ep.Thumbnail = m.Episode.Thumbnail
	}
	item.Seasons = []media.Season{{SeasonNumber: season, Episodes: []media.Episode{ep}}}
	return item
}

// ISODate renders a YYYY-MM-DD date as the stored release timestamp
// (11:00 UTC). Unparsable input gives "".
func ISODate(date string) string {
	if len(date) < 10 {
		return ""
	}
	t, err := time.Parse("2006-01-02", date[:10])
	if err != nil {
		return ""
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 11, 0, 0, 0, time.UTC).Format(time.RFC3339)
}
