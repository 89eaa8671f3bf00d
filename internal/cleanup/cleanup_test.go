package cleanup_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/kartal788/dftest/internal/cleanup"
	domain "github.com/kartal788/dftest/internal/domain/cleanup"
	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/events"
	gormrepo "github.com/kartal788/dftest/internal/infrastructure/persistence/gorm"
	"github.com/kartal788/dftest/internal/metrics"
	"github.com/kartal788/dftest/pkg/config"
	pkgevents "github.com/kartal788/dftest/pkg/events"
	"github.com/kartal788/dftest/pkg/interfaces"
)

// MockDeleter is a mock implementation of cleanup.Deleter
type MockDeleter struct {
	mock.Mock
}

func (m *MockDeleter) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

type CleanupTestSuite struct {
	suite.Suite
	ctx     context.Context
	repo    *gormrepo.CleanupJobRepository
	bus     *pkgevents.InMemoryEventBus
	deleter *MockDeleter
	now     time.Time
	cfg     config.CleanupConfig
	service *cleanup.Service
	worker  *cleanup.Worker

	mu       sync.Mutex
	outcomes []string
}

func TestCleanupSuite(t *testing.T) {
	suite.Run(t, new(CleanupTestSuite))
}

func (s *CleanupTestSuite) SetupTest() {
	logger := zaptest.NewLogger(s.T())
	s.ctx = context.Background()
	s.repo = gormrepo.NewCleanupJobRepository(gormrepo.NewTestDB(s.T()))
	s.bus = pkgevents.NewInMemoryEventBus(logger)
	s.deleter = new(MockDeleter)
	s.now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s.cfg = config.CleanupConfig{MaxAttempts: 3, BaseBackoff: time.Minute, SweepBatch: 10, Lease: 5 * time.Minute}
	s.outcomes = nil

	clock := func() time.Time { return s.now }
	s.service = cleanup.NewService(s.repo, s.bus, s.cfg, logger, cleanup.WithServiceClock(clock))
	s.worker = cleanup.NewWorker(s.repo, s.deleter, s.bus, metrics.New(prometheus.NewRegistry()), s.cfg, logger,
		cleanup.WithWorkerClock(clock))

	record := func(ctx context.Context, event interfaces.Event) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.outcomes = append(s.outcomes, event.EventType())
		return nil
	}
	s.Require().NoError(s.bus.Subscribe(events.CleanupCompleted, interfaces.EventHandlerFunc{Type: events.CleanupCompleted, Fn: record}))
	s.Require().NoError(s.bus.Subscribe(events.CleanupFailed, interfaces.EventHandlerFunc{Type: events.CleanupFailed, Fn: record}))
}

func (s *CleanupTestSuite) TearDownTest() {
	s.Require().NoError(s.bus.Stop())
}

func (s *CleanupTestSuite) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.outcomes...)
}

func (s *CleanupTestSuite) enqueue(refs ...string) []*domain.Job {
	reqs := make([]media.CleanupRequest, 0, len(refs))
	for _, ref := range refs {
		reqs = append(reqs, media.CleanupRequest{SourceRef: ref, ItemKey: "603-1", MediaType: media.MediaTypeMovie})
	}
	s.Require().NoError(s.service.Enqueue(s.ctx, reqs))
	jobs, err := s.repo.List(s.ctx, "", 0)
	s.Require().NoError(err)
	return jobs
}

func (s *CleanupTestSuite) TestEnqueueSkipsLinks() {
	// Arrange & Act
	jobs := s.enqueue("abc123", "https://example.com/movie.mkv")

	// Assert
	s.Require().Len(jobs, 1)
	s.Equal("abc123", jobs[0].SourceRef())
	s.Equal(domain.StatusPending, jobs[0].Status())
}

func (s *CleanupTestSuite) TestRequestedEventTriggersDeletion() {
	// Arrange
	s.Require().NoError(s.worker.Subscribe(s.bus))
	s.deleter.On("Delete", mock.Anything, "abc123").Return(nil).Once()

	// Act
	s.enqueue("abc123")
	s.bus.Wait()

	// Assert
	jobs, err := s.repo.List(s.ctx, domain.StatusCompleted, 0)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(1, jobs[0].Attempts())
	s.Equal([]string{events.CleanupCompleted}, s.recorded())
	s.deleter.AssertExpectations(s.T())
}

func (s *CleanupTestSuite) TestRetriesWithBackoffThenFails() {
	// Arrange
	s.deleter.On("Delete", mock.Anything, "abc123").Return(errors.New("503 from host"))
	job := s.enqueue("abc123")[0]

	// Act & Assert: attempt 1 fails, retry waits one minute
	n, err := s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	found, err := s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusRetrying, found.Status())
	s.True(found.NextAttemptAt().Equal(s.now.Add(time.Minute)))

	// Not yet due
	n, err = s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)

	// Attempt 2 backs off two minutes
	s.now = s.now.Add(time.Minute)
	_, err = s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	found, err = s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(2, found.Attempts())
	s.True(found.NextAttemptAt().Equal(s.now.Add(2 * time.Minute)))

	// Attempt 3 exhausts the limit
	s.now = s.now.Add(2 * time.Minute)
	_, err = s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	s.bus.Wait()

	found, err = s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusFailed, found.Status())
	s.Equal("503 from host", found.LastError())
	s.Equal([]string{events.CleanupFailed}, s.recorded())
	s.deleter.AssertNumberOfCalls(s.T(), "Delete", 3)
}

func (s *CleanupTestSuite) TestProcessIgnoresUnclaimableJob() {
	// Arrange
	job := s.enqueue("abc123")[0]
	s.deleter.On("Delete", mock.Anything, "abc123").Return(nil).Once()
	ran, err := s.worker.Process(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Require().True(ran)

	// Act
	ran, err = s.worker.Process(s.ctx, job.ID())

	// Assert
	s.NoError(err)
	s.False(ran)
	s.deleter.AssertNumberOfCalls(s.T(), "Delete", 1)
}

func (s *CleanupTestSuite) TestCancelledAttemptIsStillRecorded() {
	// Arrange
	job := s.enqueue("abc123")[0]
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.deleter.On("Delete", mock.Anything, "abc123").
		Run(func(mock.Arguments) { cancel() }).
		Return(context.Canceled).Once()

	// Act
	ran, err := s.worker.Process(ctx, job.ID())

	// Assert
	s.Require().NoError(err)
	s.True(ran)
	found, err := s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusRetrying, found.Status())
	s.Equal(1, found.Attempts())
	s.Equal(context.Canceled.Error(), found.LastError())
}

func (s *CleanupTestSuite) TestBusStopMidDeletionLeavesJobRetryable() {
	// Arrange
	s.Require().NoError(s.worker.Subscribe(s.bus))
	started := make(chan struct{})
	s.deleter.On("Delete", mock.Anything, "abc123").
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.Canceled).Once()

	// Act
	job := s.enqueue("abc123")[0]
	<-started
	s.Require().NoError(s.bus.Stop())

	// Assert
	found, err := s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusRetrying, found.Status())

	s.deleter.On("Delete", mock.Anything, "abc123").Return(nil).Once()
	s.now = found.NextAttemptAt()
	n, err := s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	found, err = s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, found.Status())
}

func (s *CleanupTestSuite) TestSweepReclaimsAbandonedAttempt() {
	// Arrange: a worker claimed the job and died before saving it
	job := s.enqueue("abc123")[0]
	_, err := s.repo.Claim(s.ctx, job.ID(), s.now)
	s.Require().NoError(err)

	// Act & Assert: still inside the lease
	s.now = s.now.Add(time.Minute)
	n, err := s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)
	found, err := s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusRunning, found.Status())

	// Lease expired: the attempt counts as failed and backs off
	s.now = s.now.Add(4 * time.Minute)
	n, err = s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)
	found, err = s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusRetrying, found.Status())
	s.Equal(1, found.Attempts())
	s.Equal(domain.ErrLeaseExpired.Error(), found.LastError())
	s.True(found.NextAttemptAt().Equal(s.now.Add(time.Minute)))

	// The retry runs once due
	s.deleter.On("Delete", mock.Anything, "abc123").Return(nil).Once()
	s.now = s.now.Add(time.Minute)
	n, err = s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	found, err = s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, found.Status())
	s.Equal(2, found.Attempts())
	s.deleter.AssertExpectations(s.T())
}

func (s *CleanupTestSuite) TestAbandonedLastAttemptFails() {
	// Arrange
	job := s.enqueue("abc123")[0]
	s.deleter.On("Delete", mock.Anything, "abc123").Return(errors.New("503 from host")).Twice()
	for i := 0; i < 2; i++ {
		_, err := s.worker.Sweep(s.ctx)
		s.Require().NoError(err)
		found, err := s.repo.FindByID(s.ctx, job.ID())
		s.Require().NoError(err)
		s.now = found.NextAttemptAt()
	}
	_, err := s.repo.Claim(s.ctx, job.ID(), s.now)
	s.Require().NoError(err)

	// Act
	s.now = s.now.Add(s.cfg.Lease)
	_, err = s.worker.Sweep(s.ctx)
	s.Require().NoError(err)
	s.bus.Wait()

	// Assert
	found, err := s.repo.FindByID(s.ctx, job.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusFailed, found.Status())
	s.Equal(3, found.Attempts())
	s.Equal([]string{events.CleanupFailed}, s.recorded())
}
