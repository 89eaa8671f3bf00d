// Package heuristics turns uploader filenames into structured attributes.
//
// Structural parsing is delegated to go-ptn. Everything the catalog layers
// on top of it (platform aliases, resolution ranking, size units, genre
// translation) lives in declarative tables in this package so the catalog
// filter and the stream labels agree.
package heuristics

import (
	"path"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"

	apperrors "github.com/kartal788/dftest/pkg/errors"
)

// Attributes are the fields recognized in a filename.
type Attributes struct {
	Title      string
	Year       int
	Season     int
	Episode    int
	Resolution string
	Codec      string
	Audio      string
	Encoder    string
	Quality    string
	Platform   string
}

// IsEpisode reports whether the name carries an episode number. The season
// may be 0 for specials.
func (a Attributes) IsEpisode() bool {
	return a.Season >= 0 && a.Episode > 0
}

// Parse runs the structural parser and platform detection over filename.
// A name without a recognizable title is a parse failure.
func Parse(filename string) (Attributes, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return Attributes{}, apperrors.ParseFailure("empty filename")
	}

	info, err := ptn.Parse(path.Base(name))
	if err != nil {
		return Attributes{}, apperrors.Wrap(apperrors.ErrorTypeParseFailure, "parse "+name, err)
	}
	if strings.TrimSpace(info.Title) == "" {
		return Attributes{}, apperrors.ParseFailure("no title in " + name)
	}

	attrs := Attributes{
		Title:      strings.TrimSpace(info.Title),
		Year:       info.Year,
		Season:     info.Season,
		Episode:    info.Episode,
		Resolution: info.Resolution,
		Codec:      info.Codec,
		Audio:      info.Audio,
		Encoder:    info.Group,
		Quality:    info.Quality,
	}
	attrs.Platform, _ = DetectPlatform(name, info.Group)
	return attrs, nil
}

// ResolutionLabel returns the best resolution label known for a variant: the
// parsed one, else fallback, else whatever the resolution table finds in name.
func ResolutionLabel(name, fallback string) string {
	if attrs, err := Parse(name); err == nil && attrs.Resolution != "" {
		return attrs.Resolution
	}
	if fallback != "" {
		return fallback
	}
	if p := ResolutionPriority(name); p != UnknownResolution {
		return resolutionName(p)
	}
	return ""
}
