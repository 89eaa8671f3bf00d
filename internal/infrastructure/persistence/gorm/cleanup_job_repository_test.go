package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/kartal788/dftest/internal/domain/cleanup"
	"github.com/kartal788/dftest/internal/domain/media"
)

type CleanupJobRepositoryTestSuite struct {
	suite.Suite
	repo *CleanupJobRepository
	ctx  context.Context
	now  time.Time
}

func (s *CleanupJobRepositoryTestSuite) SetupTest() {
	s.repo = NewCleanupJobRepository(NewTestDB(s.T()))
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *CleanupJobRepositoryTestSuite) newJob(ref string, at time.Time) *cleanup.Job {
	job, err := cleanup.NewJob(media.CleanupRequest{
		SourceRef: ref,
		ItemKey:   "movie:603",
		MediaType: media.MediaTypeMovie,
	}, 3, at)
	s.Require().NoError(err)
	return job
}

func (s *CleanupJobRepositoryTestSuite) TestCreateAndFindByID() {
	// Arrange
	job := s.newJob("abc123", s.now)

	// Act
	err := s.repo.Create(s.ctx, []*cleanup.Job{job})
	s.Require().NoError(err)
	found, err := s.repo.FindByID(s.ctx, job.ID())

	// Assert
	s.Require().NoError(err)
	s.Equal(job.ID(), found.ID())
	s.Equal("abc123", found.SourceRef())
	s.Equal("movie:603", found.ItemKey())
	s.Equal(media.MediaTypeMovie, found.MediaType())
	s.Equal(cleanup.StatusPending, found.Status())
	s.Equal(3, found.MaxAttempts())
}

func (s *CleanupJobRepositoryTestSuite) TestFindByIDMissing() {
	_, err := s.repo.FindByID(s.ctx, uuid.New())

	s.True(errors.Is(err, cleanup.ErrJobNotFound))
}

func (s *CleanupJobRepositoryTestSuite) TestClaimIsExclusive() {
	// Arrange
	job := s.newJob("abc123", s.now)
	s.Require().NoError(s.repo.Create(s.ctx, []*cleanup.Job{job}))

	// Act
	first, err := s.repo.Claim(s.ctx, job.ID(), s.now)
	s.Require().NoError(err)
	_, second := s.repo.Claim(s.ctx, job.ID(), s.now)

	// Assert
	s.Equal(cleanup.StatusRunning, first.Status())
	s.Equal(1, first.Attempts())
	s.True(errors.Is(second, cleanup.ErrJobNotClaimable))
}

func (s *CleanupJobRepositoryTestSuite) TestClaimRejectsJobNotYetDue() {
	// Arrange
	job := s.newJob("abc123", s.now.Add(time.Hour))
	s.Require().NoError(s.repo.Create(s.ctx, []*cleanup.Job{job}))

	// Act
	_, err := s.repo.Claim(s.ctx, job.ID(), s.now)

	// Assert
	s.True(errors.Is(err, cleanup.ErrJobNotClaimable))
}

func (s *CleanupJobRepositoryTestSuite) TestSavePersistsRetry() {
	// Arrange
	job := s.newJob("abc123", s.now)
	s.Require().NoError(s.repo.Create(s.ctx, []*cleanup.Job{job}))
	claimed, err := s.repo.Claim(s.ctx, job.ID(), s.now)
	s.Require().NoError(err)

	// Act
	claimed.Fail(errors.New("503 from host"), time.Minute, s.now)
	s.Require().NoError(s.repo.Save(s.ctx, claimed))
	found, err := s.repo.FindByID(s.ctx, job.ID())

	// Assert
	s.Require().NoError(err)
	s.Equal(cleanup.StatusRetrying, found.Status())
	s.Equal("503 from host", found.LastError())
	s.True(found.NextAttemptAt().Equal(s.now.Add(time.Minute)))
}

func (s *CleanupJobRepositoryTestSuite) TestFindDueOrdersAndFilters() {
	// Arrange
	later := s.newJob("later", s.now.Add(-time.Minute))
	earlier := s.newJob("earlier", s.now.Add(-time.Hour))
	future := s.newJob("future", s.now.Add(time.Hour))
	done := s.newJob("done", s.now.Add(-2*time.Hour))
	s.Require().NoError(s.repo.Create(s.ctx, []*cleanup.Job{later, earlier, future, done}))

	claimed, err := s.repo.Claim(s.ctx, done.ID(), s.now)
	s.Require().NoError(err)
	s.Require().NoError(claimed.Complete(s.now))
	s.Require().NoError(s.repo.Save(s.ctx, claimed))

	// Act
	due, err := s.repo.FindDue(s.ctx, s.now, 10)

	// Assert
	s.Require().NoError(err)
	s.Require().Len(due, 2)
	s.Equal("earlier", due[0].SourceRef())
	s.Equal("later", due[1].SourceRef())
}

func (s *CleanupJobRepositoryTestSuite) TestFindStaleAndReclaim() {
	// Arrange
	old := s.newJob("old", s.now.Add(-time.Hour))
	recent := s.newJob("recent", s.now.Add(-time.Hour))
	pending := s.newJob("pending", s.now.Add(-time.Hour))
	s.Require().NoError(s.repo.Create(s.ctx, []*cleanup.Job{old, recent, pending}))
	_, err := s.repo.Claim(s.ctx, old.ID(), s.now.Add(-10*time.Minute))
	s.Require().NoError(err)
	_, err = s.repo.Claim(s.ctx, recent.ID(), s.now.Add(-time.Minute))
	s.Require().NoError(err)

	// Act
	stale, err := s.repo.FindStale(s.ctx, s.now.Add(-5*time.Minute), 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	job := stale[0]
	s.Require().NoError(job.Expire(time.Minute, s.now))
	err = s.repo.Reclaim(s.ctx, job)

	// Assert
	s.Require().NoError(err)
	s.Equal("old", job.SourceRef())
	found, err := s.repo.FindByID(s.ctx, old.ID())
	s.Require().NoError(err)
	s.Equal(cleanup.StatusRetrying, found.Status())
	s.Equal(cleanup.ErrLeaseExpired.Error(), found.LastError())

	s.True(errors.Is(s.repo.Reclaim(s.ctx, job), cleanup.ErrJobNotClaimable))
}

func (s *CleanupJobRepositoryTestSuite) TestReclaimLosesToFinishedAttempt() {
	// Arrange
	job := s.newJob("abc123", s.now)
	s.Require().NoError(s.repo.Create(s.ctx, []*cleanup.Job{job}))
	claimed, err := s.repo.Claim(s.ctx, job.ID(), s.now)
	s.Require().NoError(err)
	stale, err := s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Require().NoError(claimed.Complete(s.now.Add(time.Minute)))
	s.Require().NoError(s.repo.Save(s.ctx, claimed))

	// Act
	s.Require().NoError(stale.Expire(time.Minute, s.now.Add(10*time.Minute)))
	err = s.repo.Reclaim(s.ctx, stale)

	// Assert
	s.True(errors.Is(err, cleanup.ErrJobNotClaimable))
	found, err := s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(cleanup.StatusCompleted, found.Status())
}

func (s *CleanupJobRepositoryTestSuite) TestListByStatus() {
	// Arrange
	a := s.newJob("a", s.now)
	b := s.newJob("b", s.now.Add(time.Second))
	s.Require().NoError(s.repo.Create(s.ctx, []*cleanup.Job{a, b}))
	claimed, err := s.repo.Claim(s.ctx, a.ID(), s.now)
	s.Require().NoError(err)
	s.Require().NoError(claimed.Complete(s.now))
	s.Require().NoError(s.repo.Save(s.ctx, claimed))

	// Act
	completed, err := s.repo.List(s.ctx, cleanup.StatusCompleted, 0)
	s.Require().NoError(err)
	all, err := s.repo.List(s.ctx, "", 0)
	s.Require().NoError(err)

	// Assert
	s.Require().Len(completed, 1)
	s.Equal("a", completed[0].SourceRef())
	s.Len(all, 2)
}

func TestCleanupJobRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CleanupJobRepositoryTestSuite))
}
