package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"newssense/internal/pkg/config"
)

// Default scheduler settings.
const (
	DefaultSchedule = "@every 1h"
	DefaultTimeout  = 5 * time.Minute
	DefaultTimezone = "UTC"
)

// Runner runs one ingestion batch. *Service implements it.
type Runner interface {
	Ingest(ctx context.Context) (Stats, error)
}

// RunObserver is told about every finished run, e.g. to export job metrics.
type RunObserver interface {
	ObserveRun(stats Stats, err error)
}

// SchedulerConfig controls when and for how long batches run.
type SchedulerConfig struct {
	Schedule string        // cron spec or descriptor, e.g. "@every 1h"
	Timeout  time.Duration // per-run deadline
	Timezone string        // IANA name used for cron fields
}

// Scheduler runs a Runner once at Start and then on a cron schedule.
// A tick that arrives while a run is still in progress is skipped; the
// next tick acts as the retry for a failed run.
type Scheduler struct {
	runner   Runner
	cfg      SchedulerConfig
	observer RunObserver
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewScheduler creates a stopped scheduler. observer may be nil.
func NewScheduler(runner Runner, cfg SchedulerConfig, observer RunObserver, logger *slog.Logger) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{runner: runner, cfg: cfg, observer: observer, logger: logger}
}

// Start triggers an immediate run in the background and installs the cron
// schedule. Runs stop being scheduled when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}
	if err := config.ValidateCronSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("start scheduler: load timezone %q: %w", s.cfg.Timezone, err)
	}

	s.baseCtx, s.cancel = context.WithCancel(ctx)
	c := cron.New(cron.WithParser(config.CronParser), cron.WithLocation(loc))
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.runOnce() }); err != nil {
		s.cancel()
		return fmt.Errorf("start scheduler: add job: %w", err)
	}
	c.Start()
	s.cron = c

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce()
	}()

	s.logger.Info("ingestion scheduler started",
		slog.String("schedule", s.cfg.Schedule),
		slog.String("timezone", s.cfg.Timezone),
		slog.Duration("timeout", s.cfg.Timeout))
	return nil
}

// Stop cancels the in-flight run, if any, and waits for it to return.
// It is safe to call Stop on a scheduler that was never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	cancel := s.cancel
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.wg.Wait()
	s.logger.Info("ingestion scheduler stopped")
}

// runOnce runs one batch unless another is in progress. It reports
// whether a run actually happened.
func (s *Scheduler) runOnce() bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous ingestion run still in progress, skipping tick")
		return false
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.Timeout)
	defer cancel()

	stats, err := s.runner.Ingest(ctx)
	if err != nil {
		s.logger.Error("ingestion run failed",
			slog.Int("stored", stats.Stored),
			slog.Any("error", err))
	}
	if s.observer != nil {
		s.observer.ObserveRun(stats, err)
	}
	return true
}
