// Package stream ranks the variants of a title into playable streams.
package stream

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/heuristics"
)

// BestMarker prefixes the label of the top ranked stream.
const BestMarker = "⭐ "

// PlayableStream is one entry of a stream response.
type PlayableStream struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`

	Priority int     `json:"-"`
	SizeMB   float64 `json:"-"`
}

// ItemGetter loads a stored title.
type ItemGetter interface {
	Get(ctx context.Context, tmdbID, shardIndex int, mediaType media.MediaType) (*media.MediaItem, error)
}

// Resolver turns stored variants into ranked streams.
type Resolver struct {
	baseURL string
	items   ItemGetter
	logger  *zap.Logger
}

// NewResolver creates a resolver. Internal references are played through
// {baseURL}/dl/{ref}/video.mkv.
func NewResolver(baseURL string, items ItemGetter, logger *zap.Logger) *Resolver {
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		items:   items,
		logger:  logger.Named("stream"),
	}
}

// PlaybackURL returns where a variant can be played.
func (r *Resolver) PlaybackURL(v media.QualityVariant) string {
	if v.Kind() == media.SourceLink {
		return v.SourceRef
	}
	return fmt.Sprintf("%s/dl/%s/video.mkv", r.baseURL, v.SourceRef)
}

// ForID loads the title addressed by a public id and resolves its streams.
// Every failure yields an empty list.
func (r *Resolver) ForID(ctx context.Context, mediaType media.MediaType, id string) []PlayableStream {
	ident, err := media.ParseID(id)
	if err != nil {
		r.logger.Debug("invalid stream id", zap.String("id", id), zap.Error(err))
		return []PlayableStream{}
	}
	if mediaType == media.MediaTypeSeries && !ident.HasEpisode {
		return []PlayableStream{}
	}

	item, err := r.items.Get(ctx, ident.TMDBID, ident.ShardIndex, mediaType)
	if err != nil {
		r.logger.Debug("stream lookup failed", zap.String("id", id), zap.Error(err))
		return []PlayableStream{}
	}
	return r.Resolve(item, ident.Season, ident.Episode)
}

// Resolve ranks the variants of a movie, or of one episode of a series, by
// resolution then size, both descending. Ties keep ingest order.
func (r *Resolver) Resolve(item *media.MediaItem, season, episode int) (streams []PlayableStream) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("stream resolve panic", zap.Any("panic", rec))
			streams = []PlayableStream{}
		}
	}()

	variants := selectVariants(item, season, episode)
	streams = make([]PlayableStream, 0, len(variants))
	for _, v := range variants {
		streams = append(streams, r.describe(v))
	}

	sort.SliceStable(streams, func(i, j int) bool {
		if streams[i].Priority != streams[j].Priority {
			return streams[i].Priority > streams[j].Priority
		}
		return streams[i].SizeMB > streams[j].SizeMB
	})
	if len(streams) > 0 {
		streams[0].Name = BestMarker + streams[0].Name
	}
	return streams
}

func selectVariants(item *media.MediaItem, season, episode int) []media.QualityVariant {
	if item == nil {
		return nil
	}
	if item.IsMovie() {
		return item.Variants
	}
	ep := item.Episode(season, episode)
	if ep == nil {
		return nil
	}
	return ep.Variants
}

func (r *Resolver) describe(v media.QualityVariant) PlayableStream {
	resolution := heuristics.ResolutionLabel(v.DisplayName, v.QualityLabel)
	var codec, audio, platform string
	if attrs, err := heuristics.Parse(v.DisplayName); err == nil {
		codec, audio, platform = attrs.Codec, attrs.Audio, attrs.Platform
	} else {
		platform, _ = heuristics.DetectPlatform(v.DisplayName, "")
	}

	name := string(v.Kind())
	if resolution != "" {
		name += " " + resolution
	}
	if platform != "" {
		name += " [" + platform + "]"
	}

	title := fmt.Sprintf("📁 %s\n💾 %s", v.DisplayName, v.Size)
	if codec != "" || audio != "" {
		title += fmt.Sprintf("\n🎥 %s 🔊 %s", codec, audio)
	}

	return PlayableStream{
		Name:     name,
		Title:    title,
		URL:      r.PlaybackURL(v),
		Priority: heuristics.ResolutionPriority(resolution),
		SizeMB:   heuristics.ParseSizeMB(v.Size),
	}
}
