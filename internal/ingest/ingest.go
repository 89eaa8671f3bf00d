// Package ingest adds titles to the catalog from hosted files and links.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/heuristics"
	"github.com/kartal788/dftest/internal/infrastructure/filehost"
	"github.com/kartal788/dftest/internal/metadata"
	"github.com/kartal788/dftest/internal/metrics"
	"github.com/kartal788/dftest/internal/store"
	"github.com/kartal788/dftest/pkg/config"
	apperrors "github.com/kartal788/dftest/pkg/errors"
)

// Outcome of one candidate.
const (
	OutcomeAdded   = "added"
	OutcomeMerged  = "merged"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Candidate is one file to ingest, after its name has been parsed.
type Candidate struct {
	SourceRef   string          `validate:"required"`
	DisplayName string          `validate:"required"`
	Size        string          `validate:"required"`
	Title       string          `validate:"required"`
	Quality     string          `validate:"required"`
	MediaType   media.MediaType `validate:"required,oneof=movie series"`
	Year        int             `validate:"gte=0"`
	Season      int             `validate:"omitempty,gte=0"`
	Episode     int             `validate:"omitempty,gte=0"`
	TMDBID      int             `validate:"gte=0"`
}

// Variant is the stored form of the candidate's file.
func (c Candidate) Variant() media.QualityVariant {
	return media.QualityVariant{
		SourceRef:    c.SourceRef,
		DisplayName:  c.DisplayName,
		QualityLabel: c.Quality,
		Size:         c.Size,
	}
}

// ItemError records why one input did not make it into the catalog.
type ItemError struct {
	Input   string
	Outcome string
	Err     error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Input, e.Err)
}

// Report aggregates the outcome of a batch.
type Report struct {
	Added   int
	Merged  int
	Skipped int
	Failed  int
	Errors  []ItemError
}

func (r *Report) record(input, outcome string, err error) {
	switch outcome {
	case OutcomeAdded:
		r.Added++
	case OutcomeMerged:
		r.Merged++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
	if err != nil {
		r.Errors = append(r.Errors, ItemError{Input: input, Outcome: outcome, Err: err})
	}
}

// Prober reads a remote file's name and size.
type Prober interface {
	Probe(ctx context.Context, rawURL string) filehost.ProbeResult
}

// Writer stores one item.
type Writer interface {
	InsertOrMerge(ctx context.Context, item *media.MediaItem) (store.UpsertResult, error)
}

// Service runs ingest batches.
type Service struct {
	prober      Prober
	resolver    metadata.Resolver
	writer      Writer
	metrics     *metrics.Metrics
	validate    *validator.Validate
	sem         *semaphore.Weighted
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates an ingest service. Network calls (probes and metadata
// lookups) share one weighted semaphore sized by cfg.Concurrency.
func NewService(
	prober Prober,
	resolver metadata.Resolver,
	writer Writer,
	m *metrics.Metrics,
	cfg config.IngestConfig,
	logger *zap.Logger,
) *Service {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = config.DefaultIngestConcurrent
	}
	return &Service{
		prober:      prober,
		resolver:    resolver,
		writer:      writer,
		metrics:     m,
		validate:    validator.New(),
		sem:         semaphore.NewWeighted(int64(concurrency)),
		concurrency: concurrency,
		logger:      logger.Named("ingest"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// IngestURLs probes each URL for its filename and size and ingests it as a
// link variant. It never aborts the batch.
func (s *Service) IngestURLs(ctx context.Context, urls []string) Report {
	return s.run(ctx, urls, func(ctx context.Context, raw string) (string, error) {
		url := filehost.NormalizeURL(strings.TrimSpace(raw))
		if !media.IsLink(url) {
			return OutcomeSkipped, apperrors.Validation("not an http(s) url")
		}

		var probe filehost.ProbeResult
		if err := s.withSlot(ctx, func() error {
			probe = s.prober.Probe(ctx, url)
			return nil
		}); err != nil {
			return OutcomeFailed, err
		}

		return s.ingestFile(ctx, url, probe.Name, probe.Size, 0)
	})
}

// File is an internally hosted file known by reference.
type File struct {
	Ref    string
	Name   string
	Size   string
	TMDBID int
}

// IngestFiles ingests internally hosted files whose names are already known.
func (s *Service) IngestFiles(ctx context.Context, files []File) Report {
	byRef := make(map[string]File, len(files))
	refs := make([]string, 0, len(files))
	for _, f := range files {
		byRef[f.Ref] = f
		refs = append(refs, f.Ref)
	}
	return s.run(ctx, refs, func(ctx context.Context, ref string) (string, error) {
		f := byRef[ref]
		return s.ingestFile(ctx, f.Ref, f.Name, f.Size, f.TMDBID)
	})
}

func (s *Service) run(ctx context.Context, inputs []string, one func(context.Context, string) (string, error)) Report {
	var (
		mu     sync.Mutex
		report Report
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			outcome, err := s.safely(gctx, input, one)
			s.metrics.IngestOutcome(outcome)

			mu.Lock()
			report.record(input, outcome, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("ingest batch finished",
		zap.Int("added", report.Added),
		zap.Int("merged", report.Merged),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report
}

func (s *Service) safely(ctx context.Context, input string, one func(context.Context, string) (string, error)) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("ingest panic: %v", r)
		}
	}()
	outcome, err = one(ctx, input)
	if err != nil {
		s.logger.Warn("candidate not ingested",
			zap.String("input", input),
			zap.String("outcome", outcome),
			zap.Error(err))
	}
	return outcome, err
}

func (s *Service) ingestFile(ctx context.Context, ref, name, size string, tmdbID int) (string, error) {
	cand, err := s.Candidate(ref, name, size)
	if err != nil {
		return OutcomeSkipped, err
	}
	cand.TMDBID = tmdbID

	var meta *metadata.CanonicalMetadata
	err = s.withSlot(ctx, func() error {
		var rerr error
		meta, rerr = s.resolver.Resolve(ctx, metadata.Lookup{
			MediaType: cand.MediaType,
			Title:     cand.Title,
			Year:      cand.Year,
			TMDBID:    cand.TMDBID,
			Season:    cand.Season,
			Episode:   cand.Episode,
		})
		return rerr
	})
	if err != nil {
		if apperrors.IsLookupMiss(err) {
			return OutcomeSkipped, err
		}
		return OutcomeFailed, err
	}

	item := meta.ToItem(cand.Variant(), cand.Season, cand.Episode, s.now())
	res, err := s.writer.InsertOrMerge(ctx, item)
	if err != nil {
		return OutcomeFailed, err
	}
	if res.Created {
		return OutcomeAdded, nil
	}
	return OutcomeMerged, nil
}

// Candidate parses name into a validated candidate. A name without a
// resolution, or with a season but no episode, is rejected. Season 0 holds
// specials.
func (s *Service) Candidate(ref, name, size string) (Candidate, error) {
	attrs, err := heuristics.Parse(name)
	if err != nil {
		return Candidate{}, err
	}

	cand := Candidate{
		SourceRef:   ref,
		DisplayName: name,
		Size:        size,
		Title:       attrs.Title,
		Quality:     attrs.Resolution,
		MediaType:   media.MediaTypeMovie,
		Year:        attrs.Year,
		Season:      attrs.Season,
		Episode:     attrs.Episode,
	}
	if cand.Size == "" {
		cand.Size = media.UnknownSize
	}
	if attrs.Season > 0 || attrs.IsEpisode() {
		cand.MediaType = media.MediaTypeSeries
	}

	if err := s.validate.Struct(cand); err != nil {
		return Candidate{}, apperrors.Wrap(apperrors.ErrorTypeValidation, "invalid candidate "+name, err)
	}
	if cand.MediaType == media.MediaTypeSeries && !attrs.IsEpisode() {
		return Candidate{}, apperrors.Validation("season without an episode in " + name)
	}
	return cand, nil
}

func (s *Service) withSlot(ctx context.Context, fn func() error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return fn()
}
