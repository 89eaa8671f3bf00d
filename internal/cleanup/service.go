// Package cleanup runs the deletion of internally hosted files after their
// catalog entries are removed.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domain "github.com/kartal788/dftest/internal/domain/cleanup"
	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/events"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/interfaces"
)

// Service records cleanup requests as persisted jobs and announces them.
// It implements media.CleanupScheduler.
type Service struct {
	repo        domain.Repository
	bus         interfaces.EventBus
	maxAttempts int
	logger      *zap.Logger
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the time new jobs are stamped with.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a cleanup service. bus may be nil, in which case jobs
// are only picked up by the periodic sweep.
func NewService(repo domain.Repository, bus interfaces.EventBus, cfg config.CleanupConfig, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:        repo,
		bus:         bus,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger.Named("cleanup"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ media.CleanupScheduler = (*Service)(nil)

// Enqueue creates one job per hosted file. Requests for external links are
// dropped with a warning.
func (s *Service) Enqueue(ctx context.Context, reqs []media.CleanupRequest) error {
	now := s.now()
	jobs := make([]*domain.Job, 0, len(reqs))
	for _, req := range reqs {
		job, err := domain.NewJob(req, s.maxAttempts, now)
		if err != nil {
			s.logger.Warn("skipping cleanup request",
				zap.String("ref", req.SourceRef),
				zap.String("item", req.ItemKey),
				zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil
	}

	if err := s.repo.Create(ctx, jobs); err != nil {
		return fmt.Errorf("failed to record cleanup jobs: %w", err)
	}

	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID().String())
	}
	s.logger.Info("cleanup jobs enqueued", zap.Strings("job_ids", ids))

	if s.bus == nil {
		return nil
	}
	env, err := events.NewEnvelope(events.CleanupRequested, jobs[0].ItemKey(), events.CleanupRequestedPayload{JobIDs: ids})
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, env); err != nil {
		// The jobs are persisted; the sweep will still run them.
		s.logger.Warn("failed to publish cleanup request", zap.Error(err))
	}
	return nil
}
