// Package scheduler runs the catalog's periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// TaskFunc is the function signature for scheduled tasks.
type TaskFunc func(ctx context.Context) error

// TaskConfig describes one scheduled task.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	Cron        string // five-field cron expression
	Func        TaskFunc
	RunOnStart  bool
}

// TaskInfo is the reported state of a task.
type TaskInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cron        string     `json:"cron"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Running     bool       `json:"running"`
}

type taskEntry struct {
	config    TaskConfig
	job       gocron.Job
	lastRun   *time.Time
	lastError string
	running   bool
}

// Scheduler wraps gocron with task bookkeeping. A task never overlaps itself.
type Scheduler struct {
	gocron gocron.Scheduler
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	tasks map[string]*taskEntry
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: gs,
		logger: logger.Named("scheduler"),
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*taskEntry),
	}, nil
}

// RegisterTask adds a task. An empty cron expression leaves the task manual only.
func (s *Scheduler) RegisterTask(cfg TaskConfig) error {
	if cfg.ID == "" || cfg.Func == nil {
		return fmt.Errorf("task id and func are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[cfg.ID]; exists {
		return fmt.Errorf("task with ID %q already registered", cfg.ID)
	}

	entry := &taskEntry{config: cfg}
	if cfg.Cron != "" {
		job, err := s.gocron.NewJob(
			gocron.CronJob(cfg.Cron, false),
			gocron.NewTask(func() { s.executeTask(cfg.ID) }),
			gocron.WithName(cfg.Name),
			gocron.WithTags(cfg.ID),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to create job for task %q: %w", cfg.ID, err)
		}
		entry.job = job
	}
	s.tasks[cfg.ID] = entry

	s.logger.Info("registered task",
		zap.String("id", cfg.ID),
		zap.String("cron", cfg.Cron),
		zap.Bool("run_on_start", cfg.RunOnStart))
	return nil
}

// executeTask runs a task unless it is already running.
func (s *Scheduler) executeTask(id string) {
	s.mu.Lock()
	entry, ok := s.tasks[id]
	if !ok || entry.running {
		s.mu.Unlock()
		return
	}
	entry.running = true
	s.mu.Unlock()

	start := time.Now()
	err := s.safeRun(entry.config)

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &start
	entry.lastError = ""
	if err != nil {
		entry.lastError = err.Error()
	}
	s.mu.Unlock()

	fields := []zap.Field{zap.String("id", id), zap.Duration("duration", time.Since(start))}
	if err != nil {
		s.logger.Error("task failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("task completed", fields...)
}

func (s *Scheduler) safeRun(cfg TaskConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panic: %v", cfg.ID, r)
		}
	}()
	return cfg.Func(s.ctx)
}

// Start starts the cron loop and kicks off RunOnStart tasks.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")
	s.gocron.Start()

	s.mu.RLock()
	var onStart []string
	for id, entry := range s.tasks {
		if entry.config.RunOnStart {
			onStart = append(onStart, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range onStart {
		s.spawn(id)
	}
}

// Stop cancels running tasks and waits for them and the cron loop.
func (s *Scheduler) Stop() error {
	s.logger.Info("stopping scheduler")
	s.cancel()
	err := s.gocron.Shutdown()
	s.wg.Wait()
	return err
}

// RunNow triggers a task in the background.
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	entry, ok := s.tasks[id]
	running := ok && entry.running
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("task %q not found", id)
	}
	if running {
		return fmt.Errorf("task %q is already running", id)
	}
	s.spawn(id)
	return nil
}

func (s *Scheduler) spawn(id string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeTask(id)
	}()
}

// ListTasks reports every task ordered by id.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TaskInfo, 0, len(s.tasks))
	for _, entry := range s.tasks {
		out = append(out, entry.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetTask reports one task.
func (s *Scheduler) GetTask(id string) (*TaskInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q not found", id)
	}
	info := entry.info()
	return &info, nil
}

func (e *taskEntry) info() TaskInfo {
	info := TaskInfo{
		ID:          e.config.ID,
		Name:        e.config.Name,
		Description: e.config.Description,
		Cron:        e.config.Cron,
		LastRun:     e.lastRun,
		LastError:   e.lastError,
		Running:     e.running,
	}
	if e.job != nil {
		if next, err := e.job.NextRun(); err == nil && !next.IsZero() {
			info.NextRun = &next
		}
	}
	return info
}
