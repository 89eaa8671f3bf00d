package catalog

import (
	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/heuristics"
)

// PlatformSpecification matches items with at least one variant whose
// filename carries the platform tag. It cannot be pushed to the store.
type PlatformSpecification struct {
	Platform string
}

// NewPlatformSpecification normalizes aliases ("nf", "netflix") to the label.
func NewPlatformSpecification(platform string) *PlatformSpecification {
	if label, ok := heuristics.NormalizePlatform(platform); ok {
		platform = label
	}
	return &PlatformSpecification{Platform: platform}
}

func (s *PlatformSpecification) IsSatisfiedBy(item *media.MediaItem) bool {
	for _, v := range item.AllVariants() {
		if label, ok := heuristics.DetectPlatform(v.DisplayName, ""); ok && label == s.Platform {
			return true
		}
	}
	return false
}

func (s *PlatformSpecification) ToFilter() (map[string]interface{}, bool) {
	return nil, false
}
