package handler

import (
	"strings"

	"github.com/kartal788/dftest/internal/heuristics"
	"github.com/kartal788/dftest/pkg/config"
)

// Catalog ids served by the addon.
const (
	CatalogLatestMovies = "latest_movies"
	CatalogLatestSeries = "latest_series"
	platformPrefix      = "platform_"
)

// ManifestPlatforms are the platforms offered as dedicated catalogs.
var ManifestPlatforms = []string{"Netflix", "Disney", "Amazon", "Tv+", "Exxen"}

// Manifest describes the addon to clients.
type Manifest struct {
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Types       []string          `json:"types"`
	Resources   []string          `json:"resources"`
	IDPrefixes  []string          `json:"idPrefixes"`
	Catalogs    []ManifestCatalog `json:"catalogs"`
}

// ManifestCatalog is one browsable catalog.
type ManifestCatalog struct {
	Type           string          `json:"type"`
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Extra          []ManifestExtra `json:"extra"`
	ExtraSupported []string        `json:"extraSupported"`
}

// ManifestExtra is one supported catalog parameter.
type ManifestExtra struct {
	Name    string   `json:"name"`
	Options []string `json:"options,omitempty"`
}

// BuildManifest renders the manifest for the configured addon.
func BuildManifest(cfg config.AddonConfig) Manifest {
	genreExtras := []ManifestExtra{{Name: "genre", Options: heuristics.Genres}, {Name: "skip"}}
	skipOnly := []ManifestExtra{{Name: "skip"}}

	catalogs := []ManifestCatalog{
		{Type: "movie", ID: CatalogLatestMovies, Name: "Son Eklenen Filmler", Extra: genreExtras, ExtraSupported: []string{"genre", "skip"}},
		{Type: "series", ID: CatalogLatestSeries, Name: "Son Eklenen Diziler", Extra: genreExtras, ExtraSupported: []string{"genre", "skip"}},
	}
	for _, p := range ManifestPlatforms {
		slug := strings.ToLower(p)
		catalogs = append(catalogs,
			ManifestCatalog{Type: "movie", ID: platformPrefix + "movie_" + slug, Name: p + " Filmleri", Extra: skipOnly, ExtraSupported: []string{"skip"}},
			ManifestCatalog{Type: "series", ID: platformPrefix + "series_" + slug, Name: p + " Dizileri", Extra: skipOnly, ExtraSupported: []string{"skip"}},
		)
	}

	return Manifest{
		ID:          cfg.ID,
		Version:     cfg.Version,
		Name:        cfg.Name,
		Description: cfg.Description,
		Types:       []string{"movie", "series"},
		Resources:   []string{"catalog", "meta", "stream"},
		IDPrefixes:  []string{""},
		Catalogs:    catalogs,
	}
}

// catalogPlatform returns the platform of a platform catalog id.
func catalogPlatform(id string) (string, bool) {
	if !strings.HasPrefix(id, platformPrefix) {
		return "", false
	}
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
