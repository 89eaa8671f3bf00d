package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/metadata"
	apperrors "github.com/kartal788/dftest/pkg/errors"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		if r.URL.Query().Get("query") == "Nothing" {
			w.Write([]byte(`{"results":[]}`))
			return
		}
		assert.Equal(t, "1999", r.URL.Query().Get("year"))
		w.Write([]byte(`{"results":[{"id":603},{"id":604}]}`))
	})
	mux.HandleFunc("/movie/603", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "external_ids,credits,images", r.URL.Query().Get("append_to_response"))
		assert.Equal(t, "tr,en,null", r.URL.Query().Get("include_image_language"))
		w.Write([]byte(`{
			"id": 603, "title": "The Matrix", "overview": "Bir hacker...",
			"release_date": "1999-03-30", "vote_average": 8.2, "runtime": 136,
			"poster_path": "/p.jpg", "backdrop_path": "/b.jpg",
			"genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}],
			"credits": {"cast": [{"name": "Keanu Reeves"}, {"name": "Laurence Fishburne"}]},
			"external_ids": {"imdb_id": "tt0133093"},
			"images": {"logos": [
				{"file_path": "/none.png", "iso_639_1": null},
				{"file_path": "/en.png", "iso_639_1": "en"},
				{"file_path": "/tr.png", "iso_639_1": "tr"}
			]}
		}`))
	})
	mux.HandleFunc("/search/tv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"id":1399}]}`))
	})
	mux.HandleFunc("/tv/1399", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1399, "name": "Game of Thrones", "first_air_date": "2011-04-17",
			"genres": [{"name": "Drama"}], "external_ids": {"imdb_id": "tt0944947"}}`))
	})
	mux.HandleFunc("/tv/1399/season/1/episode/2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "The Kingsroad", "overview": "o", "air_date": "2011-04-24", "still_path": "/s.jpg"}`))
	})
	mux.HandleFunc("/movie/500", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return httptest.NewServer(mux)
}

func TestClient_ResolveMovieBySearch(t *testing.T) {
	// Arrange
	srv := newTestServer(t)
	defer srv.Close()
	client := NewClient(srv.URL, "key", "tr-TR", 0, time.Second, zaptest.NewLogger(t))

	// Act
	meta, err := client.Resolve(context.Background(), metadata.Lookup{
		MediaType: media.MediaTypeMovie, Title: "The Matrix", Year: 1999,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 603, meta.TMDBID)
	assert.Equal(t, "tt0133093", meta.IMDbID)
	assert.Equal(t, 1999, meta.ReleaseYear)
	assert.Equal(t, "136 min", meta.Runtime)
	assert.Equal(t, []string{"Aksiyon", "Bilim Kurgu"}, meta.Genres)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/p.jpg", meta.Poster)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/b.jpg", meta.Backdrop)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/tr.png", meta.Logo)
	assert.Equal(t, []string{"Keanu Reeves", "Laurence Fishburne"}, meta.Cast)
	assert.True(t, meta.Translated)
}

func TestClient_ResolveEpisode(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	client := NewClient(srv.URL, "key", "en-US", 50, time.Second, zaptest.NewLogger(t))

	meta, err := client.Resolve(context.Background(), metadata.Lookup{
		MediaType: media.MediaTypeSeries, Title: "Game of Thrones", Season: 1, Episode: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, "Game of Thrones", meta.Title)
	assert.Equal(t, "https://images.metahub.space/logo/medium/tt0944947/img", meta.Logo)
	assert.Equal(t, []string{"Dram"}, meta.Genres)
	require.NotNil(t, meta.Episode)
	assert.Equal(t, "The Kingsroad", meta.Episode.Title)
	assert.Equal(t, "2011-04-24T11:00:00Z", meta.Episode.Released)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/s.jpg", meta.Episode.Thumbnail)
	assert.False(t, meta.Translated)
}

func TestClient_Errors(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	client := NewClient(srv.URL, "key", "", 0, time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := client.Resolve(ctx, metadata.Lookup{MediaType: media.MediaTypeMovie, Title: "Nothing"})
	assert.True(t, apperrors.IsLookupMiss(err))

	_, err = client.Resolve(ctx, metadata.Lookup{MediaType: media.MediaTypeMovie, TMDBID: 404})
	assert.True(t, apperrors.IsLookupMiss(err))

	_, err = client.Resolve(ctx, metadata.Lookup{MediaType: media.MediaTypeMovie, TMDBID: 500})
	assert.True(t, apperrors.IsNetworkFailure(err))
}

func TestDetailsLogoPreference(t *testing.T) {
	tests := []struct {
		name     string
		logos    string
		language string
		imdb     string
		want     string
	}{
		{name: "catalog language first", logos: `[{"file_path":"/en.png","iso_639_1":"en"},{"file_path":"/tr.png","iso_639_1":"tr"}]`, language: "tr-TR", want: imageBase + "w500/tr.png"},
		{name: "english next", logos: `[{"file_path":"/x.png","iso_639_1":null},{"file_path":"/en.png","iso_639_1":"en"}]`, language: "tr-TR", want: imageBase + "w500/en.png"},
		{name: "any logo", logos: `[{"file_path":"/de.png","iso_639_1":"de"}]`, language: "tr", want: imageBase + "w500/de.png"},
		{name: "metahub fallback", logos: `[]`, imdb: "tt0133093", want: "https://images.metahub.space/logo/medium/tt0133093/img"},
		{name: "nothing", logos: `[]`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d details
			require.NoError(t, json.Unmarshal([]byte(`{"images":{"logos":`+tt.logos+`}}`), &d))

			assert.Equal(t, tt.want, d.logo(tt.language, tt.imdb))
		})
	}
}
