package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartal788/dftest/internal/domain/cleanup"
	"github.com/kartal788/dftest/internal/domain/media"
)

// CleanupJobModel represents the database model for cleanup jobs
type CleanupJobModel struct {
	ID            string `gorm:"type:varchar(36);primaryKey"`
	SourceRef     string `gorm:"not null;index"`
	ItemKey       string `gorm:"not null"`
	MediaType     string `gorm:"not null"`
	Status        string `gorm:"not null;index:idx_cleanup_due,priority:1"`
	Attempts      int    `gorm:"not null;default:0"`
	MaxAttempts   int    `gorm:"not null"`
	LastError     string
	NextAttemptAt time.Time `gorm:"not null;index:idx_cleanup_due,priority:2"`
	CompletedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null;index"`
}

// TableName specifies the table name
func (CleanupJobModel) TableName() string {
	return "cleanup_jobs"
}

// CleanupJobRepository implements cleanup.Repository using GORM
type CleanupJobRepository struct {
	db *gorm.DB
}

// NewCleanupJobRepository creates a new cleanup job repository
func NewCleanupJobRepository(db *gorm.DB) *CleanupJobRepository {
	return &CleanupJobRepository{db: db}
}

// Create inserts jobs in one transaction.
func (r *CleanupJobRepository) Create(ctx context.Context, jobs []*cleanup.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	models := make([]*CleanupJobModel, 0, len(jobs))
	for _, j := range jobs {
		models = append(models, toCleanupJobModel(j))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create cleanup jobs: %w", err)
	}
	return nil
}

// FindByID finds a job by ID
func (r *CleanupJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*cleanup.Job, error) {
	var model CleanupJobModel

	result := r.db.WithContext(ctx).First(&model, "id = ?", id.String())
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, cleanup.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find cleanup job: %w", result.Error)
	}

	return toDomainCleanupJob(&model)
}

// Claim moves a due job to running with a conditional update so that only
// one worker wins.
func (r *CleanupJobRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (*cleanup.Job, error) {
	var claimed *cleanup.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model CleanupJobModel
		if err := tx.First(&model, "id = ?", id.String()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cleanup.ErrJobNotFound
			}
			return err
		}

		job, err := toDomainCleanupJob(&model)
		if err != nil {
			return err
		}
		if job.NextAttemptAt().After(now) {
			return cleanup.ErrJobNotClaimable
		}
		previous := job.Status()
		if err := job.Start(now); err != nil {
			return cleanup.ErrJobNotClaimable
		}

		result := tx.Model(&CleanupJobModel{}).
			Where("id = ? AND status = ? AND attempts = ?", model.ID, string(previous), model.Attempts).
			Updates(map[string]interface{}{
				"status":     string(job.Status()),
				"attempts":   job.Attempts(),
				"updated_at": job.UpdatedAt(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return cleanup.ErrJobNotClaimable
		}
		claimed = job
		return nil
	})
	if err != nil {
		if errors.Is(err, cleanup.ErrJobNotFound) || errors.Is(err, cleanup.ErrJobNotClaimable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to claim cleanup job: %w", err)
	}
	return claimed, nil
}

// Save writes every mutable column of the job.
func (r *CleanupJobRepository) Save(ctx context.Context, job *cleanup.Job) error {
	model := toCleanupJobModel(job)

	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save cleanup job: %w", result.Error)
	}
	return nil
}

// FindDue lists jobs whose next attempt is due.
func (r *CleanupJobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*cleanup.Job, error) {
	var models []CleanupJobModel

	query := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(cleanup.StatusPending), string(cleanup.StatusRetrying)}).
		Where("next_attempt_at <= ?", now).
		Order("next_attempt_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find due cleanup jobs: %w", err)
	}
	return toDomainCleanupJobs(models)
}

// FindStale lists running jobs whose last update is at or before cutoff.
func (r *CleanupJobRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*cleanup.Job, error) {
	var models []CleanupJobModel

	query := r.db.WithContext(ctx).
		Where("status = ?", string(cleanup.StatusRunning)).
		Where("updated_at <= ?", cutoff).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find stale cleanup jobs: %w", err)
	}
	return toDomainCleanupJobs(models)
}

// Reclaim saves an expired attempt unless its worker finished or another
// claim started a new attempt in the meantime.
func (r *CleanupJobRepository) Reclaim(ctx context.Context, job *cleanup.Job) error {
	model := toCleanupJobModel(job)

	result := r.db.WithContext(ctx).Model(&CleanupJobModel{}).
		Where("id = ? AND status = ? AND attempts = ?", model.ID, string(cleanup.StatusRunning), model.Attempts).
		Updates(map[string]interface{}{
			"status":          model.Status,
			"last_error":      model.LastError,
			"next_attempt_at": model.NextAttemptAt,
			"completed_at":    model.CompletedAt,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reclaim cleanup job: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return cleanup.ErrJobNotClaimable
	}
	return nil
}

// List returns the newest jobs, optionally filtered by status.
func (r *CleanupJobRepository) List(ctx context.Context, status cleanup.Status, limit int) ([]*cleanup.Job, error) {
	var models []CleanupJobModel

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list cleanup jobs: %w", err)
	}
	return toDomainCleanupJobs(models)
}

func toCleanupJobModel(j *cleanup.Job) *CleanupJobModel {
	s := j.Snapshot()
	return &CleanupJobModel{
		ID:            s.ID.String(),
		SourceRef:     s.SourceRef,
		ItemKey:       s.ItemKey,
		MediaType:     string(s.MediaType),
		Status:        string(s.Status),
		Attempts:      s.Attempts,
		MaxAttempts:   s.MaxAttempts,
		LastError:     s.LastError,
		NextAttemptAt: s.NextAttemptAt,
		CompletedAt:   s.CompletedAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toDomainCleanupJob(m *CleanupJobModel) (*cleanup.Job, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup job id %q: %w", m.ID, err)
	}
	return cleanup.Restore(cleanup.Snapshot{
		ID:            id,
		SourceRef:     m.SourceRef,
		ItemKey:       m.ItemKey,
		MediaType:     media.MediaType(m.MediaType),
		Status:        cleanup.Status(m.Status),
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		LastError:     m.LastError,
		NextAttemptAt: m.NextAttemptAt,
		CompletedAt:   m.CompletedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}), nil
}

func toDomainCleanupJobs(models []CleanupJobModel) ([]*cleanup.Job, error) {
	jobs := make([]*cleanup.Job, 0, len(models))
	for i := range models {
		job, err := toDomainCleanupJob(&models[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
