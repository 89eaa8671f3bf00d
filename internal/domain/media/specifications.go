package media

import "github.com/kartal788/dftest/internal/domain/specification"

// ItemSpecification is a filter over stored items.
type ItemSpecification = specification.Specification[*MediaItem]

// GenreSpecification matches items whose genre list contains Genre.
type GenreSpecification struct {
	Genre string
}

// NewGenreSpecification creates a new genre specification
func NewGenreSpecification(genre string) *GenreSpecification {
	return &GenreSpecification{Genre: genre}
}

func (s *GenreSpecification) IsSatisfiedBy(candidate *MediaItem) bool {
	return candidate.HasGenre(s.Genre)
}

// ToFilter matches the array element directly in the shard query.
func (s *GenreSpecification) ToFilter() (map[string]interface{}, bool) {
	return map[string]interface{}{"genres": s.Genre}, true
}

// TMDBSpecification matches a single title.
type TMDBSpecification struct {
	TMDBID int
}

func (s *TMDBSpecification) IsSatisfiedBy(candidate *MediaItem) bool {
	return candidate.TMDBID == s.TMDBID
}

func (s *TMDBSpecification) ToFilter() (map[string]interface{}, bool) {
	return map[string]interface{}{"tmdb_id": s.TMDBID}, true
}
