// Package cleanup models the deletion of internally hosted files as
// persisted, retryable jobs.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kartal788/dftest/internal/domain/media"
)

// Status represents the status of a cleanup job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DefaultMaxAttempts is used when a job is created without a limit.
const DefaultMaxAttempts = 5

var (
	ErrJobNotFound = errors.New("cleanup job not found")
	// ErrJobNotClaimable means another worker owns the job or it is not due.
	ErrJobNotClaimable = errors.New("cleanup job not claimable")
	// ErrLeaseExpired is recorded on an attempt whose worker stopped before saving it.
	ErrLeaseExpired = errors.New("cleanup attempt lease expired")
)

// Job tracks deletion of one hosted file.
type Job struct {
	id            uuid.UUID
	sourceRef     string
	itemKey       string
	mediaType     media.MediaType
	status        Status
	attempts      int
	maxAttempts   int
	lastError     string
	nextAttemptAt time.Time
	completedAt   *time.Time
	createdAt     time.Time
	updatedAt     time.Time
}

// NewJob creates a pending job due immediately.
func NewJob(req media.CleanupRequest, maxAttempts int, now time.Time) (*Job, error) {
	if req.SourceRef == "" {
		return nil, fmt.Errorf("source ref is required")
	}
	if media.IsLink(req.SourceRef) {
		return nil, fmt.Errorf("%q is an external link, not a hosted file", req.SourceRef)
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Job{
		id:            uuid.New(),
		sourceRef:     req.SourceRef,
		itemKey:       req.ItemKey,
		mediaType:     req.MediaType,
		status:        StatusPending,
		maxAttempts:   maxAttempts,
		nextAttemptAt: now,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// Snapshot carries every field of a job across the persistence boundary.
type Snapshot struct {
	ID            uuid.UUID
	SourceRef     string
	ItemKey       string
	MediaType     media.MediaType
	Status        Status
	Attempts      int
	MaxAttempts   int
	LastError     string
	NextAttemptAt time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Restore rebuilds a job from storage.
func Restore(s Snapshot) *Job {
	return &Job{
		id:            s.ID,
		sourceRef:     s.SourceRef,
		itemKey:       s.ItemKey,
		mediaType:     s.MediaType,
		status:        s.Status,
		attempts:      s.Attempts,
		maxAttempts:   s.MaxAttempts,
		lastError:     s.LastError,
		nextAttemptAt: s.NextAttemptAt,
		completedAt:   s.CompletedAt,
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
	}
}

// Snapshot exports the job's state.
func (j *Job) Snapshot() Snapshot {
	return Snapshot{
		ID:            j.id,
		SourceRef:     j.sourceRef,
		ItemKey:       j.itemKey,
		MediaType:     j.mediaType,
		Status:        j.status,
		Attempts:      j.attempts,
		MaxAttempts:   j.maxAttempts,
		LastError:     j.lastError,
		NextAttemptAt: j.nextAttemptAt,
		CompletedAt:   j.completedAt,
		CreatedAt:     j.createdAt,
		UpdatedAt:     j.updatedAt,
	}
}

// Getters
func (j *Job) ID() uuid.UUID              { return j.id }
func (j *Job) SourceRef() string          { return j.sourceRef }
func (j *Job) ItemKey() string            { return j.itemKey }
func (j *Job) MediaType() media.MediaType { return j.mediaType }
func (j *Job) Status() Status             { return j.status }
func (j *Job) Attempts() int              { return j.attempts }
func (j *Job) MaxAttempts() int           { return j.maxAttempts }
func (j *Job) LastError() string          { return j.lastError }
func (j *Job) NextAttemptAt() time.Time   { return j.nextAttemptAt }
func (j *Job) CompletedAt() *time.Time    { return j.completedAt }
func (j *Job) CreatedAt() time.Time       { return j.createdAt }
func (j *Job) UpdatedAt() time.Time       { return j.updatedAt }

// IsTerminal reports whether the job will never run again.
func (j *Job) IsTerminal() bool {
	return j.status == StatusCompleted || j.status == StatusFailed
}

// Start marks an attempt as running.
func (j *Job) Start(now time.Time) error {
	if j.status != StatusPending && j.status != StatusRetrying {
		return fmt.Errorf("cannot start cleanup job in status %s", j.status)
	}
	j.status = StatusRunning
	j.attempts++
	j.updatedAt = now
	return nil
}

// Complete records a successful deletion.
func (j *Job) Complete(now time.Time) error {
	if j.status != StatusRunning {
		return fmt.Errorf("cannot complete cleanup job in status %s", j.status)
	}
	j.status = StatusCompleted
	j.lastError = ""
	j.completedAt = &now
	j.updatedAt = now
	return nil
}

// Fail records a failed attempt. The job is retried after
// baseBackoff * 2^(attempts-1) until maxAttempts is reached, then it fails.
func (j *Job) Fail(cause error, baseBackoff time.Duration, now time.Time) {
	if cause != nil {
		j.lastError = cause.Error()
	}
	j.updatedAt = now

	if j.attempts >= j.maxAttempts {
		j.status = StatusFailed
		j.completedAt = &now
		return
	}

	j.status = StatusRetrying
	j.nextAttemptAt = now.Add(Backoff(baseBackoff, j.attempts))
}

// IsStale reports whether a running attempt has gone lease without an update.
func (j *Job) IsStale(now time.Time, lease time.Duration) bool {
	return j.status == StatusRunning && !j.updatedAt.Add(lease).After(now)
}

// Expire ends an abandoned running attempt as a failed one, so the job goes
// back through retry or fails once its attempts are spent.
func (j *Job) Expire(baseBackoff time.Duration, now time.Time) error {
	if j.status != StatusRunning {
		return fmt.Errorf("cannot expire cleanup job in status %s", j.status)
	}
	j.Fail(ErrLeaseExpired, baseBackoff, now)
	return nil
}

// Backoff is the wait after the given number of failed attempts.
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		return base
	}
	shift := attempts - 1
	if shift > 16 {
		shift = 16
	}
	return base << uint(shift)
}

// Repository persists cleanup jobs.
type Repository interface {
	Create(ctx context.Context, jobs []*Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// Claim atomically moves a due pending or retrying job to running and
	// returns it. ErrJobNotClaimable means the job is owned elsewhere.
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (*Job, error)

	// Save writes the job's current state.
	Save(ctx context.Context, job *Job) error

	// FindDue lists pending or retrying jobs due at now, oldest first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	// FindStale lists running jobs last updated at or before cutoff.
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*Job, error)

	// Reclaim writes an expired attempt back. It only applies while the stored
	// row is still the same running attempt; otherwise ErrJobNotClaimable.
	Reclaim(ctx context.Context, job *Job) error

	// List returns jobs with the given status, or all when status is empty.
	List(ctx context.Context, status Status, limit int) ([]*Job, error)
}
