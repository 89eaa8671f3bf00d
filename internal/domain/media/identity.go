package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Identity is a parsed public id: "{tmdb}-{shard}" or "{tmdb}-{shard}:{season}:{episode}".
type Identity struct {
	TMDBID     int
	ShardIndex int
	Season     int
	Episode    int
	HasEpisode bool
}

// FormatID renders a title identity.
func FormatID(tmdbID, shardIndex int) string {
	return fmt.Sprintf("%d-%d", tmdbID, shardIndex)
}

// FormatEpisodeID renders an episode identity.
func FormatEpisodeID(tmdbID, shardIndex, season, episode int) string {
	return fmt.Sprintf("%d-%d:%d:%d", tmdbID, shardIndex, season, episode)
}

// ParseID parses either identity form.
func ParseID(id string) (Identity, error) {
	var ident Identity

	parts := strings.Split(id, ":")
	if len(parts) != 1 && len(parts) != 3 {
		return ident, fmt.Errorf("%w: %q", ErrInvalidIdentity, id)
	}

	head := strings.SplitN(parts[0], "-", 2)
	if len(head) != 2 {
		return ident, fmt.Errorf("%w: %q", ErrInvalidIdentity, id)
	}

	var err error
	if ident.TMDBID, err = positiveInt(head[0]); err != nil {
		return ident, fmt.Errorf("%w: tmdb id in %q", ErrInvalidIdentity, id)
	}
	if ident.ShardIndex, err = positiveInt(head[1]); err != nil {
		return ident, fmt.Errorf("%w: shard in %q", ErrInvalidIdentity, id)
	}

	if len(parts) == 3 {
		if ident.Season, err = strconv.Atoi(parts[1]); err != nil || ident.Season < 0 {
			return ident, fmt.Errorf("%w: season in %q", ErrInvalidIdentity, id)
		}
		if ident.Episode, err = positiveInt(parts[2]); err != nil {
			return ident, fmt.Errorf("%w: episode in %q", ErrInvalidIdentity, id)
		}
		ident.HasEpisode = true
	}

	return ident, nil
}

// String renders the identity back into its public form.
func (i Identity) String() string {
	if i.HasEpisode {
		return FormatEpisodeID(i.TMDBID, i.ShardIndex, i.Season, i.Episode)
	}
	return FormatID(i.TMDBID, i.ShardIndex)
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("not positive: %d", n)
	}
	return n, nil
}
