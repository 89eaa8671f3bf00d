// Package tmdb resolves catalog metadata from The Movie Database.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/heuristics"
	"github.com/kartal788/dftest/internal/metadata"
	apperrors "github.com/kartal788/dftest/pkg/errors"
)

const (
	imageBase = "https://image.tmdb.org/t/p/"
	logoBase  = "https://images.metahub.space/logo/medium/"
	maxCast   = 10
)

// Client represents a TMDB API client
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new TMDB client limited to ratePerSecond requests.
func NewClient(baseURL, apiKey, language string, ratePerSecond float64, timeout time.Duration, logger *zap.Logger) *Client {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("tmdb"),
	}
}

type searchResponse struct {
	Results []struct {
		ID int `json:"id"`
	} `json:"results"`
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type credits struct {
	Cast []struct {
		Name string `json:"name"`
	} `json:"cast"`
}

// details covers both movie and tv responses.
type details struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Runtime      int     `json:"runtime"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Genres       []genre `json:"genres"`
	Credits      credits `json:"credits"`
	ImdbID       string  `json:"imdb_id"`
	ExternalIDs  struct {
		ImdbID string `json:"imdb_id"`
	} `json:"external_ids"`
	Images struct {
		Logos []struct {
			FilePath string `json:"file_path"`
			Language string `json:"iso_639_1"`
		} `json:"logos"`
	} `json:"images"`
}

type episodeDetails struct {
	Name      string `json:"name"`
	Overview  string `json:"overview"`
	AirDate   string `json:"air_date"`
	StillPath string `json:"still_path"`
}

// Resolve searches by title (unless an id is given), then loads details and,
// for series, the episode.
func (c *Client) Resolve(ctx context.Context, lookup metadata.Lookup) (*metadata.CanonicalMetadata, error) {
	kind := kindFor(lookup.MediaType)

	id := lookup.TMDBID
	if id == 0 {
		var err error
		if id, err = c.search(ctx, kind, lookup.Title, lookup.Year); err != nil {
			return nil, err
		}
	}

	var d details
	q := url.Values{
		"append_to_response":     {"external_ids,credits,images"},
		"include_image_language": {imageLanguages(c.language)},
	}
	if err := c.get(ctx, fmt.Sprintf("/%s/%d", kind, id), q, &d); err != nil {
		return nil, err
	}

	meta := d.toCanonical(lookup.MediaType, c.language)
	if lookup.MediaType == media.MediaTypeSeries && lookup.Episode > 0 {
		var ep episodeDetails
		path := fmt.Sprintf("/tv/%d/season/%d/episode/%d", id, lookup.Season, lookup.Episode)
		if err := c.get(ctx, path, nil, &ep); err != nil {
			// Episode data is descriptive only; the title still resolves.
			c.logger.Warn("episode lookup failed",
				zap.Int("tmdb_id", id), zap.Int("season", lookup.Season),
				zap.Int("episode", lookup.Episode), zap.Error(err))
		} else {
			meta.Episode = &metadata.EpisodeMetadata{
				Title:     ep.Name,
				Overview:  ep.Overview,
				Released:  metadata.ISODate(ep.AirDate),
				Thumbnail: image("original", ep.StillPath),
			}
		}
	}
	return meta, nil
}

func (c *Client) search(ctx context.Context, kind, title string, year int) (int, error) {
	if strings.TrimSpace(title) == "" {
		return 0, apperrors.LookupMiss("empty title")
	}
	q := url.Values{"query": {title}}
	if year > 0 {
		if kind == "tv" {
			q.Set("first_air_date_year", strconv.Itoa(year))
		} else {
			q.Set("year", strconv.Itoa(year))
		}
	}

	var res searchResponse
	if err := c.get(ctx, "/search/"+kind, q, &res); err != nil {
		return 0, err
	}
	if len(res.Results) == 0 {
		return 0, apperrors.LookupMiss(fmt.Sprintf("no %s match for %q", kind, title))
	}
	return res.Results[0].ID, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NetworkFailure("tmdb rate limiter", err)
	}

	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	if c.language != "" {
		q.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NetworkFailure("tmdb "+path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.LookupMiss("tmdb " + path + " not found")
	case resp.StatusCode != http.StatusOK:
		return apperrors.NetworkFailure("tmdb "+path, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (d *details) toCanonical(mediaType media.MediaType, language string) *metadata.CanonicalMetadata {
	title, date := d.Title, d.ReleaseDate
	if mediaType == media.MediaTypeSeries {
		title, date = d.Name, d.FirstAirDate
	}

	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}

	cast := make([]string, 0, maxCast)
	for _, c := range d.Credits.Cast {
		if len(cast) == maxCast {
			break
		}
		cast = append(cast, c.Name)
	}

	imdb := d.ExternalIDs.ImdbID
	if imdb == "" {
		imdb = d.ImdbID
	}

	var year int
	if len(date) >= 4 {
		year, _ = strconv.Atoi(date[:4])
	}

	var runtime string
	if d.Runtime > 0 {
		runtime = fmt.Sprintf("%d min", d.Runtime)
	}

	return &metadata.CanonicalMetadata{
		TMDBID:      d.ID,
		IMDbID:      imdb,
		MediaType:   mediaType,
		Title:       title,
		Description: d.Overview,
		Genres:      heuristics.NormalizeGenres(genres),
		Rating:      d.VoteAverage,
		ReleaseYear: year,
		Poster:      image("w500", d.PosterPath),
		Backdrop:    image("original", d.BackdropPath),
		Logo:        d.logo(language, imdb),
		Cast:        cast,
		Runtime:     runtime,
		Translated:  d.Overview != "" && strings.HasPrefix(strings.ToLower(language), "tr"),
	}
}

// logo picks a logo in the catalog language, then English, then any. Titles
// without one on TMDB fall back to the metahub logo of their IMDb id.
func (d *details) logo(language, imdb string) string {
	lang := langCode(language)
	best := ""
	rank := 3
	for _, l := range d.Images.Logos {
		if l.FilePath == "" {
			continue
		}
		r := 2
		switch l.Language {
		case lang:
			r = 0
		case "en":
			r = 1
		}
		if r < rank {
			best, rank = l.FilePath, r
		}
	}
	if best != "" {
		return image("w500", best)
	}
	if imdb != "" {
		return logoBase + imdb + "/img"
	}
	return ""
}

// imageLanguages lists the image languages TMDB should include. "null" keeps
// images without text.
func imageLanguages(language string) string {
	if lang := langCode(language); lang != "" && lang != "en" {
		return lang + ",en,null"
	}
	return "en,null"
}

func langCode(language string) string {
	code, _, _ := strings.Cut(strings.ToLower(language), "-")
	return code
}

func kindFor(mt media.MediaType) string {
	if mt == media.MediaTypeSeries {
		return "tv"
	}
	return "movie"
}

func image(size, path string) string {
	if path == "" {
		return ""
	}
	return imageBase + size + path
}
