// Package scheduler drives the processor on a fixed interval, with
// periodic health checks and a daily audit-log cleanup.
package scheduler

import (
	"context"
	"sync"
	"time"

	"alertiq/internal/audit"
	"alertiq/internal/processor"
	"alertiq/internal/shared/telemetry"
)

const (
	healthCheckEvery = 6 * time.Hour
	cleanupEvery     = 24 * time.Hour
	stopTimeout      = 5 * time.Second
)

// Cleaner is the retention surface of the audit store.
type Cleaner interface {
	Cleanup(retentionDays int) int
	Stats() audit.Stats
}

// Scheduler runs processing cycles at a fixed interval until stopped.
type Scheduler struct {
	proc          *processor.Processor
	store         Cleaner
	interval      time.Duration
	retentionDays int

	mu      sync.Mutex
	running bool
	nextRun time.Time
	last    *processor.CycleResult
	stop    chan struct{}
	done    chan struct{}
}

// Status is a point-in-time snapshot of the scheduler.
type Status struct {
	Running    bool                   `json:"running"`
	NextRun    time.Time              `json:"next_run"`
	LastResult *processor.CycleResult `json:"last_result,omitempty"`
	Stats      audit.Stats            `json:"stats"`
}

// New builds a scheduler. retentionDays bounds the daily cleanup; zero
// disables it.
func New(proc *processor.Processor, store Cleaner, interval time.Duration, retentionDays int) *Scheduler {
	return &Scheduler{
		proc:          proc,
		store:         store,
		interval:      interval,
		retentionDays: retentionDays,
	}
}

// RunOnce performs a health check and, if it passes, a single processing
// cycle. It reports whether the cycle went cleanly: a cycle with zero
// unread emails counts as success, a cycle where nothing succeeded does
// not.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.proc.HealthCheck(ctx) {
		telemetry.Error("scheduler.health_check_failed", nil)
		return false
	}

	result, err := s.proc.RunCycle(ctx)
	s.mu.Lock()
	s.last = &result
	s.mu.Unlock()
	if err != nil {
		return false
	}
	return result.Processed == 0 || result.Successful > 0
}

// Start launches the run loop. The first cycle runs immediately; later
// ones fire on the interval. Start is a no-op if already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.nextRun = time.Now()
	s.mu.Unlock()

	telemetry.Info("scheduler.started", map[string]any{
		"interval_s": s.interval.Seconds(),
	})
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	healthTicker := time.NewTicker(healthCheckEvery)
	defer healthTicker.Stop()
	cleanupTicker := time.NewTicker(cleanupEvery)
	defer cleanupTicker.Stop()

	s.runCycle(ctx)

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		case <-healthTicker.C:
			if !s.proc.HealthCheck(ctx) {
				telemetry.Error("scheduler.health_check_failed", nil)
			}
		case <-cleanupTicker.C:
			if s.retentionDays > 0 {
				removed := s.store.Cleanup(s.retentionDays)
				telemetry.Info("scheduler.cleanup", map[string]any{"removed": removed})
			}
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	result, err := s.proc.RunCycle(ctx)
	if err != nil {
		telemetry.Error("scheduler.cycle_failed", map[string]any{"error": err.Error()})
	}

	s.mu.Lock()
	s.last = &result
	s.nextRun = time.Now().Add(s.interval)
	s.mu.Unlock()
}

// Stop signals the loop and waits briefly for it to drain. Safe to call
// multiple times and on a scheduler that never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		telemetry.Warn("scheduler.stop_timeout", nil)
	}
	telemetry.Info("scheduler.stopped", nil)
}

// Status returns a snapshot of the scheduler and the audit-log totals.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:    s.running,
		NextRun:    s.nextRun,
		LastResult: s.last,
		Stats:      s.store.Stats(),
	}
}
