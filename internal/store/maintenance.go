package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/heuristics"
	apperrors "github.com/kartal788/dftest/pkg/errors"
)

var mediaTypes = []media.MediaType{media.MediaTypeMovie, media.MediaTypeSeries}

// DedupVariants collapses variants sharing (display name, size). It keeps the
// highest-index internally hosted variant of each group, falling back to the
// highest-index link, and reports how many were dropped.
func DedupVariants(variants []media.QualityVariant) ([]media.QualityVariant, int) {
	kept, removed := media.DedupVariants(variants)
	return kept, len(removed)
}

// DedupReport summarizes a dedup sweep.
type DedupReport struct {
	Scanned           int  `json:"scanned"`
	DocumentsAffected int  `json:"documents_affected"`
	VariantsRemoved   int  `json:"variants_removed"`
	DryRun            bool `json:"dry_run"`
}

// DedupAll runs variant dedup over every movie and episode of every shard.
// With dryRun set nothing is written.
func (s *Store) DedupAll(ctx context.Context, dryRun bool) (DedupReport, error) {
	report := DedupReport{DryRun: dryRun}

	for _, sh := range s.shards {
		for _, mt := range mediaTypes {
			var affected []int
			err := sh.Iterate(ctx, mt, func(item *media.MediaItem) error {
				report.Scanned++
				removed := item.DedupItem()
				if len(removed) == 0 {
					return nil
				}
				for _, v := range removed {
					s.logger.Info("duplicate variant removed",
						zap.Int("tmdb_id", item.TMDBID),
						zap.String("title", item.Title),
						zap.Int("shard", sh.Index()),
						zap.String("name", v.DisplayName),
						zap.String("size", v.Size),
						zap.String("ref", v.SourceRef),
						zap.Bool("dry_run", dryRun))
				}
				report.VariantsRemoved += len(removed)
				report.DocumentsAffected++
				affected = append(affected, item.TMDBID)
				return nil
			})
			if err != nil {
				return report, fmt.Errorf("dedup shard %d %s: %w", sh.Index(), mt, err)
			}

			if dryRun {
				continue
			}
			for _, id := range affected {
				_, err := s.rewrite(ctx, sh, mt, id, func(item *media.MediaItem) bool {
					return len(item.DedupItem()) > 0
				})
				if err != nil {
					return report, err
				}
			}
		}
	}

	s.logger.Info("dedup sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("documents_affected", report.DocumentsAffected),
		zap.Int("variants_removed", report.VariantsRemoved),
		zap.Bool("dry_run", dryRun))
	return report, nil
}

// rewrite reloads one document under its lock, applies fn and persists the
// result when fn reports a change.
func (s *Store) rewrite(ctx context.Context, sh media.ShardStore, mt media.MediaType, tmdbID int, fn func(*media.MediaItem) bool) (bool, error) {
	unlock := s.locks.Lock(lockKey(mt, tmdbID))
	defer unlock()

	item, err := sh.FindByTMDB(ctx, mt, tmdbID)
	if errors.Is(err, media.ErrMediaNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load tmdb %d shard %d: %w", tmdbID, sh.Index(), err)
	}
	if !fn(item) {
		return false, nil
	}
	if err := sh.Replace(ctx, item); err != nil {
		return false, fmt.Errorf("replace tmdb %d in shard %d: %w", tmdbID, sh.Index(), err)
	}
	return true, nil
}

// ReconcileReport summarizes a cross-shard repair.
type ReconcileReport struct {
	Duplicates     int     `json:"duplicates"`
	RecordsRemoved int     `json:"records_removed"`
	VariantsMoved  int     `json:"variants_moved"`
	Issues         []error `json:"-"`
}

// Reconcile merges titles present in more than one shard into the copy held
// by the lowest shard index. Losers are deleted without cleanup jobs since
// their files now belong to the survivor.
func (s *Store) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	for _, mt := range mediaTypes {
		placement := make(map[int][]media.ShardStore)
		for _, sh := range s.shards {
			err := sh.Iterate(ctx, mt, func(item *media.MediaItem) error {
				placement[item.TMDBID] = append(placement[item.TMDBID], sh)
				return nil
			})
			if err != nil {
				return report, fmt.Errorf("scan shard %d %s: %w", sh.Index(), mt, err)
			}
		}

		ids := make([]int, 0)
		for id, shards := range placement {
			if len(shards) > 1 {
				ids = append(ids, id)
			}
		}
		sort.Ints(ids)

		for _, id := range ids {
			issue := apperrors.ShardInconsistency(fmt.Sprintf("%s tmdb %d stored in %d shards", mt, id, len(placement[id])))
			report.Issues = append(report.Issues, issue)
			s.logger.Warn("cross-shard duplicate found", zap.Error(issue))

			moved, removed, err := s.reconcileOne(ctx, mt, id, placement[id])
			if err != nil {
				return report, err
			}
			report.Duplicates++
			report.VariantsMoved += moved
			report.RecordsRemoved += removed
		}
	}

	s.logger.Info("reconcile finished",
		zap.Int("duplicates", report.Duplicates),
		zap.Int("records_removed", report.RecordsRemoved),
		zap.Int("variants_moved", report.VariantsMoved))
	return report, nil
}

// reconcileOne expects shards in ascending index order.
func (s *Store) reconcileOne(ctx context.Context, mt media.MediaType, tmdbID int, shards []media.ShardStore) (int, int, error) {
	unlock := s.locks.Lock(lockKey(mt, tmdbID))
	defer unlock()

	survivorShard := shards[0]
	survivor, err := survivorShard.FindByTMDB(ctx, mt, tmdbID)
	if err != nil {
		return 0, 0, fmt.Errorf("load survivor tmdb %d shard %d: %w", tmdbID, survivorShard.Index(), err)
	}

	var losers []media.ShardStore
	moved := 0
	for _, sh := range shards[1:] {
		loser, err := sh.FindByTMDB(ctx, mt, tmdbID)
		if errors.Is(err, media.ErrMediaNotFound) {
			continue
		}
		if err != nil {
			return 0, 0, fmt.Errorf("load duplicate tmdb %d shard %d: %w", tmdbID, sh.Index(), err)
		}
		added, err := survivor.Merge(loser, s.now())
		if err != nil {
			return 0, 0, fmt.Errorf("merge tmdb %d from shard %d: %w", tmdbID, sh.Index(), err)
		}
		moved += added
		losers = append(losers, sh)
	}
	survivor.DedupItem()

	if err := survivorShard.Replace(ctx, survivor); err != nil {
		return 0, 0, fmt.Errorf("replace survivor tmdb %d shard %d: %w", tmdbID, survivorShard.Index(), err)
	}

	removed := 0
	for _, sh := range losers {
		if _, err := sh.Delete(ctx, mt, tmdbID); err != nil && !errors.Is(err, media.ErrMediaNotFound) {
			return moved, removed, fmt.Errorf("delete duplicate tmdb %d shard %d: %w", tmdbID, sh.Index(), err)
		}
		removed++
		s.logger.Info("duplicate merged into survivor",
			zap.Int("tmdb_id", tmdbID),
			zap.Int("survivor_shard", survivorShard.Index()),
			zap.Int("removed_shard", sh.Index()))
	}
	return moved, removed, nil
}

// BackfillPlatformGenres translates stored genres and adds every platform
// detected in variant names to the genre list.
func (s *Store) BackfillPlatformGenres(ctx context.Context) (int, error) {
	updated := 0

	for _, sh := range s.shards {
		for _, mt := range mediaTypes {
			var candidates []int
			err := sh.Iterate(ctx, mt, func(item *media.MediaItem) error {
				if backfillGenres(item) {
					candidates = append(candidates, item.TMDBID)
				}
				return nil
			})
			if err != nil {
				return updated, fmt.Errorf("backfill shard %d %s: %w", sh.Index(), mt, err)
			}

			for _, id := range candidates {
				changed, err := s.rewrite(ctx, sh, mt, id, backfillGenres)
				if err != nil {
					return updated, err
				}
				if changed {
					updated++
				}
			}
		}
	}

	s.logger.Info("platform genre backfill finished", zap.Int("updated", updated))
	return updated, nil
}

func backfillGenres(item *media.MediaItem) bool {
	normalized := heuristics.NormalizeGenres(item.Genres)
	changed := !equalStrings(normalized, item.Genres)
	item.Genres = normalized

	variants := item.AllVariants()
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, v.DisplayName)
	}
	if item.AddGenres(heuristics.DetectPlatforms(names...)...) {
		changed = true
	}
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ShardStats holds per-shard document counts.
type ShardStats struct {
	Index  int   `json:"index"`
	Movies int64 `json:"movies"`
	Series int64 `json:"series"`
}

// GenreCount counts titles carrying one genre.
type GenreCount struct {
	Movies int `json:"movies"`
	Series int `json:"series"`
}

// Stats describes the whole catalog.
type Stats struct {
	ActiveShard int                   `json:"active_shard"`
	Shards      []ShardStats          `json:"shards"`
	Movies      int64                 `json:"movies"`
	Series      int64                 `json:"series"`
	Genres      map[string]GenreCount `json:"genres"`
}

// Stats counts documents per shard and titles per genre.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ActiveShard: s.router.ActiveShard(), Genres: make(map[string]GenreCount)}

	for _, sh := range s.shards {
		row := ShardStats{Index: sh.Index()}
		var err error
		if row.Movies, err = sh.Count(ctx, media.MediaTypeMovie); err != nil {
			return st, fmt.Errorf("count movies shard %d: %w", sh.Index(), err)
		}
		if row.Series, err = sh.Count(ctx, media.MediaTypeSeries); err != nil {
			return st, fmt.Errorf("count series shard %d: %w", sh.Index(), err)
		}
		st.Shards = append(st.Shards, row)
		st.Movies += row.Movies
		st.Series += row.Series

		for _, mt := range mediaTypes {
			err := sh.Iterate(ctx, mt, func(item *media.MediaItem) error {
				for _, g := range item.Genres {
					c := st.Genres[g]
					if item.IsMovie() {
						c.Movies++
					} else {
						c.Series++
					}
					st.Genres[g] = c
				}
				return nil
			})
			if err != nil {
				return st, fmt.Errorf("genre stats shard %d: %w", sh.Index(), err)
			}
		}
	}
	return st, nil
}
