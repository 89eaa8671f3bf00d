package handler

import (
	"github.com/kartal788/dftest/internal/domain/media"
)

// translatedFlag prefixes the names of titles with a Turkish description.
const translatedFlag = "🇹🇷 "

// Meta is the client view of one title.
type Meta struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster"`
	Logo        string   `json:"logo,omitempty"`
	Year        int      `json:"year,omitempty"`
	Background  string   `json:"background"`
	Genres      []string `json:"genres"`
	IMDbRating  float64  `json:"imdbRating"`
	Description string   `json:"description"`
	Cast        []string `json:"cast"`
	Runtime     string   `json:"runtime"`
	Videos      []Video  `json:"videos,omitempty"`
}

// Video is one episode of a series meta.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	Released  string `json:"released"`
	Overview  string `json:"overview"`
	Thumbnail string `json:"thumbnail"`
}

func toMeta(item *media.MediaItem) Meta {
	name := item.Title
	if item.Translated {
		name = translatedFlag + name
	}
	m := Meta{
		ID:          media.FormatID(item.TMDBID, item.ShardIndex),
		Type:        string(item.MediaType),
		Name:        name,
		Poster:      item.Poster,
		Logo:        item.Logo,
		Year:        item.ReleaseYear,
		Background:  item.Backdrop,
		Genres:      item.Genres,
		IMDbRating:  item.Rating,
		Description: item.Description,
		Cast:        item.Cast,
		Runtime:     item.Runtime,
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	if m.Cast == nil {
		m.Cast = []string{}
	}
	return m
}

func toVideos(item *media.MediaItem) []Video {
	videos := make([]Video, 0)
	for _, s := range item.Seasons {
		for _, e := range s.Episodes {
			videos = append(videos, Video{
				ID:        media.FormatEpisodeID(item.TMDBID, item.ShardIndex, s.SeasonNumber, e.EpisodeNumber),
				Title:     e.Title,
				Season:    s.SeasonNumber,
				Episode:   e.EpisodeNumber,
				Released:  e.Released,
				Overview:  e.Overview,
				Thumbnail: e.Thumbnail,
			})
		}
	}
	return videos
}
