package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/store"
	"github.com/kartal788/dftest/pkg/config"
)

// Task ids.
const (
	TaskDedup     = "dedup"
	TaskReconcile = "reconcile"
	TaskCleanup   = "cleanup-sweep"
	TaskBackfill  = "backfill-genres"
)

// Maintainer is the store maintenance surface.
type Maintainer interface {
	DedupAll(ctx context.Context, dryRun bool) (store.DedupReport, error)
	Reconcile(ctx context.Context) (store.ReconcileReport, error)
	BackfillPlatformGenres(ctx context.Context) (int, error)
}

// Sweeper retries due cleanup jobs.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RegisterMaintenance registers the catalog's periodic jobs. A nil sweeper
// skips the cleanup sweep.
func RegisterMaintenance(s *Scheduler, m Maintainer, sweeper Sweeper, cfg config.SchedulerConfig) error {
	log := s.logger

	tasks := []TaskConfig{
		{
			ID:          TaskDedup,
			Name:        "Variant dedup",
			Description: "Collapse variants sharing name and size",
			Cron:        cfg.DedupCron,
			Func: func(ctx context.Context) error {
				report, err := m.DedupAll(ctx, false)
				if err != nil {
					return err
				}
				log.Info("dedup finished",
					zap.Int("scanned", report.Scanned),
					zap.Int("documents", report.DocumentsAffected),
					zap.Int("variants_removed", report.VariantsRemoved))
				return nil
			},
		},
		{
			ID:          TaskReconcile,
			Name:        "Shard reconcile",
			Description: "Merge titles stored in more than one shard",
			Cron:        cfg.ReconcileCron,
			RunOnStart:  true,
			Func: func(ctx context.Context) error {
				report, err := m.Reconcile(ctx)
				if err != nil {
					return err
				}
				for _, issue := range report.Issues {
					log.Warn("reconcile issue", zap.Error(issue))
				}
				log.Info("reconcile finished",
					zap.Int("duplicates", report.Duplicates),
					zap.Int("records_removed", report.RecordsRemoved),
					zap.Int("variants_moved", report.VariantsMoved))
				return nil
			},
		},
		{
			ID:          TaskBackfill,
			Name:        "Platform genre backfill",
			Description: "Add platform genres detected from filenames",
			Cron:        cfg.BackfillCron,
			Func: func(ctx context.Context) error {
				n, err := m.BackfillPlatformGenres(ctx)
				if err != nil {
					return err
				}
				log.Info("genre backfill finished", zap.Int("updated", n))
				return nil
			},
		},
	}

	if sweeper != nil {
		tasks = append(tasks, TaskConfig{
			ID:          TaskCleanup,
			Name:        "Cleanup sweep",
			Description: "Retry due hosted-file deletions",
			Cron:        cfg.CleanupCron,
			Func: func(ctx context.Context) error {
				n, err := sweeper.Sweep(ctx)
				if err != nil {
					return err
				}
				if n > 0 {
					log.Info("cleanup sweep finished", zap.Int("processed", n))
				}
				return nil
			},
		})
	}

	for _, t := range tasks {
		if err := s.RegisterTask(t); err != nil {
			return err
		}
	}
	return nil
}
