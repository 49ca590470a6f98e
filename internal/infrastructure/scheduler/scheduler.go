package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFunc is one sweep pass. It returns an error when the pass could
// not run; partial failures inside a pass are the task's own business.
type TaskFunc func(ctx context.Context) error

// Task is a named function run on a fixed interval
type Task struct {
	Name     string
	Interval time.Duration
	Run      TaskFunc
}

// SweeperConfig holds sweeper configuration
type SweeperConfig struct {
	Enabled     bool
	TaskTimeout time.Duration
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Enabled:     true,
		TaskTimeout: 5 * time.Minute,
	}
}

// Sweeper runs registered maintenance tasks on their own intervals.
// Each task gets one goroutine and one ticker; a slow pass never
// delays the other tasks.
type Sweeper struct {
	config SweeperConfig
	logger *zap.Logger

	tasks     []Task
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweeper creates a new sweeper instance
func NewSweeper(config SweeperConfig, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		config: config,
		logger: logger,
	}
}

// Register adds a task. Must be called before Start.
func (s *Sweeper) Register(name string, interval time.Duration, run TaskFunc) error {
	if name == "" || interval <= 0 || run == nil {
		return ErrInvalidTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSweeperRunning
	}

	s.tasks = append(s.tasks, Task{Name: name, Interval: interval, Run: run})
	return nil
}

// Start starts one loop per registered task
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runLoop(ctx, task)
	}

	s.logger.Info("Sweeper started",
		zap.Int("tasks", len(s.tasks)),
		zap.Duration("task_timeout", s.config.TaskTimeout),
	)

	return nil
}

// Stop gracefully stops the sweeper
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sweeper stop timed out")
		return ctx.Err()
	}
}

// runLoop ticks one task until the context is cancelled
func (s *Sweeper) runLoop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.logger.Debug("Sweep task started",
		zap.String("task", task.Name),
		zap.Duration("interval", task.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sweep task stopping", zap.String("task", task.Name))
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

// runOnce executes a single pass of a task with a timeout
func (s *Sweeper) runOnce(ctx context.Context, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, s.config.TaskTimeout)
	defer cancel()

	started := time.Now()
	if err := task.Run(taskCtx); err != nil {
		s.logger.Error("Sweep task failed",
			zap.String("task", task.Name),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("Sweep task completed",
		zap.String("task", task.Name),
		zap.Duration("elapsed", time.Since(started)),
	)
}
