package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "github.com/kartal788/dftest/internal/domain/cleanup"
	"github.com/kartal788/dftest/internal/events"
	"github.com/kartal788/dftest/internal/metrics"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/interfaces"
)

const (
	defaultSweepBatch = 50
	deleteTimeout     = 30 * time.Second
	workerConcurrency = 4
)

// Deleter removes one hosted file by its source ref.
type Deleter interface {
	Delete(ctx context.Context, ref string) error
}

// Worker claims due cleanup jobs and deletes their files, retrying with
// exponential backoff.
type Worker struct {
	repo        domain.Repository
	deleter     Deleter
	bus         interfaces.EventBus
	metrics     *metrics.Metrics
	baseBackoff time.Duration
	lease       time.Duration
	sweepBatch  int
	logger      *zap.Logger
	now         func() time.Time
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerClock overrides the worker's time source.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

// NewWorker creates a cleanup worker. bus and m may be nil.
func NewWorker(
	repo domain.Repository,
	deleter Deleter,
	bus interfaces.EventBus,
	m *metrics.Metrics,
	cfg config.CleanupConfig,
	logger *zap.Logger,
	opts ...WorkerOption,
) *Worker {
	w := &Worker{
		repo:        repo,
		deleter:     deleter,
		bus:         bus,
		metrics:     m,
		baseBackoff: cfg.BaseBackoff,
		lease:       cfg.Lease,
		sweepBatch:  cfg.SweepBatch,
		logger:      logger.Named("cleanup-worker"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	if w.sweepBatch <= 0 {
		w.sweepBatch = defaultSweepBatch
	}
	if w.lease <= deleteTimeout {
		w.lease = config.DefaultCleanupLease
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Subscribe makes the worker react to newly enqueued jobs.
func (w *Worker) Subscribe(bus interfaces.EventBus) error {
	return bus.Subscribe(events.CleanupRequested, interfaces.EventHandlerFunc{
		Type: events.CleanupRequested,
		Fn:   w.handleRequested,
	})
}

func (w *Worker) handleRequested(ctx context.Context, event interfaces.Event) error {
	env, ok := event.(*events.Envelope)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	var payload events.CleanupRequestedPayload
	if err := env.Decode(&payload); err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(payload.JobIDs))
	for _, raw := range payload.JobIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			w.logger.Warn("ignoring malformed job id", zap.String("job_id", raw))
			continue
		}
		ids = append(ids, id)
	}
	w.runAll(ctx, ids)
	return nil
}

// Sweep takes back abandoned attempts, then runs every due job and returns
// how many were attempted.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	if err := w.reclaimStale(ctx); err != nil {
		return 0, err
	}

	jobs, err := w.repo.FindDue(ctx, w.now(), w.sweepBatch)
	if err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID())
	}
	return w.runAll(ctx, ids), nil
}

// reclaimStale fails running attempts older than the lease so they are
// retried. A worker killed between Claim and Save leaves such jobs behind.
func (w *Worker) reclaimStale(ctx context.Context) error {
	now := w.now()
	stale, err := w.repo.FindStale(ctx, now.Add(-w.lease), w.sweepBatch)
	if err != nil {
		return err
	}

	for _, job := range stale {
		if !job.IsStale(now, w.lease) {
			continue
		}
		if err := job.Expire(w.baseBackoff, now); err != nil {
			continue
		}
		if err := w.repo.Reclaim(ctx, job); err != nil {
			if errors.Is(err, domain.ErrJobNotClaimable) {
				continue
			}
			return err
		}
		w.logger.Warn("reclaimed abandoned cleanup attempt",
			zap.String("job_id", job.ID().String()),
			zap.String("ref", job.SourceRef()),
			zap.Int("attempt", job.Attempts()),
			zap.String("status", string(job.Status())))
		w.metrics.CleanupOutcome(string(job.Status()))
		w.publishResult(ctx, job)
	}
	return nil
}

func (w *Worker) runAll(ctx context.Context, ids []uuid.UUID) int {
	attempted := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			ran, err := w.Process(gctx, id)
			if err != nil {
				w.logger.Error("cleanup job failed to run", zap.String("job_id", id.String()), zap.Error(err))
			}
			attempted[i] = ran
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ran := range attempted {
		if ran {
			n++
		}
	}
	return n
}

// Process claims and runs one job. It reports false when the job was not
// claimable, which is normal when another worker got there first.
func (w *Worker) Process(ctx context.Context, id uuid.UUID) (bool, error) {
	job, err := w.repo.Claim(ctx, id, w.now())
	if err != nil {
		if errors.Is(err, domain.ErrJobNotClaimable) || errors.Is(err, domain.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	dctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	deleteErr := w.deleter.Delete(dctx, job.SourceRef())
	cancel()

	logger := w.logger.With(
		zap.String("job_id", job.ID().String()),
		zap.String("ref", job.SourceRef()),
		zap.Int("attempt", job.Attempts()))

	if deleteErr == nil {
		if err := job.Complete(w.now()); err != nil {
			return true, err
		}
		logger.Info("hosted file deleted")
	} else {
		job.Fail(deleteErr, w.baseBackoff, w.now())
		if job.Status() == domain.StatusFailed {
			logger.Error("cleanup job exhausted its attempts", zap.Error(deleteErr))
		} else {
			logger.Warn("hosted file deletion failed, will retry",
				zap.Time("next_attempt_at", job.NextAttemptAt()),
				zap.Error(deleteErr))
		}
	}

	// The attempt is over; record it even if the caller has gone away.
	sctx := context.WithoutCancel(ctx)
	if err := w.repo.Save(sctx, job); err != nil {
		return true, fmt.Errorf("failed to save cleanup job: %w", err)
	}
	w.metrics.CleanupOutcome(string(job.Status()))
	w.publishResult(sctx, job)
	return true, nil
}

func (w *Worker) publishResult(ctx context.Context, job *domain.Job) {
	if w.bus == nil {
		return
	}
	var subject string
	switch job.Status() {
	case domain.StatusCompleted:
		subject = events.CleanupCompleted
	case domain.StatusFailed:
		subject = events.CleanupFailed
	default:
		return
	}

	env, err := events.NewEnvelope(subject, job.ItemKey(), events.CleanupResultPayload{
		JobID:    job.ID().String(),
		Ref:      job.SourceRef(),
		ItemKey:  job.ItemKey(),
		Attempts: job.Attempts(),
		Error:    job.LastError(),
	})
	if err != nil {
		w.logger.Error("failed to build cleanup result event", zap.Error(err))
		return
	}
	if err := w.bus.Publish(ctx, env); err != nil {
		w.logger.Warn("failed to publish cleanup result", zap.String("subject", subject), zap.Error(err))
	}
}
