package media

import "strings"

// UnknownSize is stored when a remote size could not be determined.
const UnknownSize = "UNKNOWN"

// SourceKind says where a variant's bytes live.
type SourceKind string

const (
	SourceLink     SourceKind = "Link"
	SourceInternal SourceKind = "Internal"
)

// QualityVariant is one playable file option for a title or episode.
type QualityVariant struct {
	SourceRef    string `bson:"id" json:"id"`
	DisplayName  string `bson:"name" json:"name"`
	QualityLabel string `bson:"quality" json:"quality"`
	Size         string `bson:"size" json:"size"`
}

// IsLink reports whether ref is an external HTTP(S) URL.
func IsLink(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Kind classifies the variant's source.
func (v QualityVariant) Kind() SourceKind {
	if IsLink(v.SourceRef) {
		return SourceLink
	}
	return SourceInternal
}

type dedupKey struct {
	name string
	size string
}

// DedupVariants collapses variants sharing (DisplayName, Size).
//
// Within a group the internally hosted variant with the highest index wins;
// a group made only of links keeps its highest-index link. Groups keep the
// order in which they first appear. The removed variants are returned in
// input order.
func DedupVariants(variants []QualityVariant) (kept, removed []QualityVariant) {
	if len(variants) < 2 {
		return variants, nil
	}

	groups := make(map[dedupKey][]int)
	order := make([]dedupKey, 0, len(variants))
	for i, v := range variants {
		k := dedupKey{name: v.DisplayName, size: v.Size}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	if len(order) == len(variants) {
		return variants, nil
	}

	keep := make(map[int]bool, len(order))
	kept = make([]QualityVariant, 0, len(order))
	for _, k := range order {
		winner := pickSurvivor(variants, groups[k])
		keep[winner] = true
		kept = append(kept, variants[winner])
	}

	for i, v := range variants {
		if !keep[i] {
			removed = append(removed, v)
		}
	}
	return kept, removed
}

func pickSurvivor(variants []QualityVariant, idx []int) int {
	best := -1
	for _, i := range idx {
		if !IsLink(variants[i].SourceRef) && i > best {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	return idx[len(idx)-1]
}

// DedupItem runs DedupVariants over the movie list and every episode list
// in place and returns the removed variants.
func (m *MediaItem) DedupItem() []QualityVariant {
	var removed []QualityVariant

	var r []QualityVariant
	m.Variants, r = DedupVariants(m.Variants)
	removed = append(removed, r...)

	for si := range m.Seasons {
		for ei := range m.Seasons[si].Episodes {
			ep := &m.Seasons[si].Episodes[ei]
			ep.Variants, r = DedupVariants(ep.Variants)
			removed = append(removed, r...)
		}
	}
	return removed
}

// InternalRefs returns the source refs of every internally hosted variant.
func (m *MediaItem) InternalRefs() []string {
	var refs []string
	for _, v := range m.AllVariants() {
		if v.Kind() == SourceInternal && v.SourceRef != "" {
			refs = append(refs, v.SourceRef)
		}
	}
	return refs
}
