// Package scheduler runs the background sweeps on fixed intervals and one-shot delayed calls.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Scheduler struct {
	log *slog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{log: logger, timers: make(map[*time.Timer]struct{})}
}

// ScheduleOnce runs fn after delay on its own goroutine. Calls after Stop are dropped.
func (s *Scheduler) ScheduleOnce(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		s.run("one-shot", func() { fn() })
	})
	s.timers[t] = struct{}{}
}

// ScheduleRecurring runs fn every interval until ctx is cancelled. Each run gets a context
// bounded by the interval; errors are logged and the job keeps its schedule.
func (s *Scheduler) ScheduleRecurring(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.log.Info("job started", "job", name, "interval", interval)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("job stopped", "job", name)
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, interval)
				s.run(name, func() {
					if err := fn(runCtx); err != nil {
						s.log.Error("job failed", "job", name, "error", err)
					}
				})
				cancel()
			}
		}
	}()
}

func (s *Scheduler) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", "job", name, "panic", r)
		}
	}()
	fn()
}

// Stop cancels pending one-shot calls. Recurring jobs stop with their context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, t)
	}
}

// Wait blocks until running jobs return.
func (s *Scheduler) Wait() { s.wg.Wait() }
