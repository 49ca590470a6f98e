package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DailyTriggerConfig holds configuration for the daily trigger
type DailyTriggerConfig struct {
	// Hour and Minute are the local time of day to run (24h format)
	Hour   int
	Minute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultDailyTriggerConfig returns default daily trigger configuration
func DefaultDailyTriggerConfig() DailyTriggerConfig {
	return DailyTriggerConfig{
		Hour:          3, // 3am, after the day's agent traffic has died down
		Minute:        0,
		CheckInterval: time.Minute,
	}
}

// DailyTrigger runs a task once per day at a fixed local time
type DailyTrigger struct {
	config DailyTriggerConfig
	name   string
	run    TaskFunc
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // Track which date we last ran for
}

// NewDailyTrigger creates a new daily trigger
func NewDailyTrigger(config DailyTriggerConfig, name string, run TaskFunc, logger *zap.Logger) *DailyTrigger {
	return &DailyTrigger{
		config: config,
		name:   name,
		run:    run,
		logger: logger,
	}
}

// Start starts the daily trigger
func (d *DailyTrigger) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = true
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.runLoop(ctx)

	d.logger.Info("Daily trigger started",
		zap.String("task", d.name),
		zap.Int("hour", d.config.Hour),
		zap.Int("minute", d.config.Minute),
		zap.Duration("check_interval", d.config.CheckInterval),
	)

	return nil
}

// Stop stops the daily trigger
func (d *DailyTrigger) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Daily trigger stopped", zap.String("task", d.name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically if it's time to run
func (d *DailyTrigger) runLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires the task when the scheduled time arrives
func (d *DailyTrigger) checkAndTrigger(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	// Skip if we already ran today
	d.mu.Lock()
	if d.lastRunDate == currentDate {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	// Check if it's the right time
	if now.Hour() != d.config.Hour || now.Minute() != d.config.Minute {
		return
	}

	d.mu.Lock()
	d.lastRunDate = currentDate
	d.mu.Unlock()

	d.logger.Info("Triggering daily task", zap.String("task", d.name))
	if err := d.run(ctx); err != nil {
		d.logger.Error("Daily task failed",
			zap.String("task", d.name),
			zap.Error(err),
		)
	}
}

// TriggerNow runs the task immediately, outside the daily schedule
func (d *DailyTrigger) TriggerNow(ctx context.Context) error {
	d.logger.Info("Manually triggering daily task", zap.String("task", d.name))
	return d.run(ctx)
}
