package media

import (
	"sort"
	"time"
)

// Merge folds incoming into m and returns how many variants were added.
// Variants are only ever appended; a variant whose SourceRef is already
// present in the same list is skipped. Descriptive fields already set on m
// are kept, empty ones are filled from incoming.
func (m *MediaItem) Merge(incoming *MediaItem, now time.Time) (int, error) {
	if incoming.MediaType != m.MediaType {
		return 0, ErrMediaTypeMismatch
	}

	m.fillDescriptive(incoming)

	added := appendVariants(&m.Variants, incoming.Variants)

	for _, in := range incoming.Seasons {
		season := m.Season(in.SeasonNumber)
		if season == nil {
			m.Seasons = append(m.Seasons, cloneSeason(in))
			for _, e := range in.Episodes {
				added += len(e.Variants)
			}
			continue
		}

		for _, inEp := range in.Episodes {
			ep := season.Episode(inEp.EpisodeNumber)
			if ep == nil {
				season.Episodes = append(season.Episodes, cloneEpisode(inEp))
				added += len(inEp.Variants)
				continue
			}
			ep.fillDescriptive(inEp)
			added += appendVariants(&ep.Variants, inEp.Variants)
		}
	}

	m.sortSeasons()
	m.UpdatedOn = now
	return added, nil
}

func appendVariants(dst *[]QualityVariant, incoming []QualityVariant) int {
	seen := make(map[string]bool, len(*dst))
	for _, v := range *dst {
		seen[v.SourceRef] = true
	}

	added := 0
	for _, v := range incoming {
		if seen[v.SourceRef] {
			continue
		}
		seen[v.SourceRef] = true
		*dst = append(*dst, v)
		added++
	}
	return added
}

func (m *MediaItem) fillDescriptive(in *MediaItem) {
	if m.Title == "" {
		m.Title = in.Title
	}
	if m.IMDbID == "" {
		m.IMDbID = in.IMDbID
	}
	if m.Description == "" {
		m.Description = in.Description
	}
	if m.Rating == 0 {
		m.Rating = in.Rating
	}
	if m.ReleaseYear == 0 {
		m.ReleaseYear = in.ReleaseYear
	}
	if m.Poster == "" {
		m.Poster = in.Poster
	}
	if m.Backdrop == "" {
		m.Backdrop = in.Backdrop
	}
	if m.Logo == "" {
		m.Logo = in.Logo
	}
	if m.Runtime == "" {
		m.Runtime = in.Runtime
	}
	if len(m.Cast) == 0 {
		m.Cast = append([]string(nil), in.Cast...)
	}
	m.AddGenres(in.Genres...)
}

func (e *Episode) fillDescriptive(in Episode) {
	if e.Title == "" {
		e.Title = in.Title
	}
	if e.Overview == "" {
		e.Overview = in.Overview
	}
	if e.Released == "" {
		e.Released = in.Released
	}
	if e.Thumbnail == "" {
		e.Thumbnail = in.Thumbnail
	}
}

// Normalize drops repeated source refs inside each variant list and orders
// seasons and episodes by number.
func (m *MediaItem) Normalize() {
	var unique []QualityVariant
	appendVariants(&unique, m.Variants)
	m.Variants = unique
	for si := range m.Seasons {
		for ei := range m.Seasons[si].Episodes {
			ep := &m.Seasons[si].Episodes[ei]
			var eu []QualityVariant
			appendVariants(&eu, ep.Variants)
			ep.Variants = eu
		}
	}
	m.sortSeasons()
}

func (m *MediaItem) sortSeasons() {
	sort.SliceStable(m.Seasons, func(i, j int) bool {
		return m.Seasons[i].SeasonNumber < m.Seasons[j].SeasonNumber
	})
	for i := range m.Seasons {
		eps := m.Seasons[i].Episodes
		sort.SliceStable(eps, func(a, b int) bool {
			return eps[a].EpisodeNumber < eps[b].EpisodeNumber
		})
	}
}

func cloneSeason(s Season) Season {
	out := Season{SeasonNumber: s.SeasonNumber, Episodes: make([]Episode, 0, len(s.Episodes))}
	for _, e := range s.Episodes {
		out.Episodes = append(out.Episodes, cloneEpisode(e))
	}
	return out
}

func cloneEpisode(e Episode) Episode {
	e.Variants = append([]QualityVariant(nil), e.Variants...)
	return e
}

// Clone returns a deep copy of the item.
func (m *MediaItem) Clone() *MediaItem {
	out := *m
	out.Genres = append([]string(nil), m.Genres...)
	out.Cast = append([]string(nil), m.Cast...)
	out.Variants = append([]QualityVariant(nil), m.Variants...)
	out.Seasons = nil
	for _, s := range m.Seasons {
		out.Seasons = append(out.Seasons, cloneSeason(s))
	}
	return &out
}
