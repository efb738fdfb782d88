// Package scheduler runs the monitoring job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rewired-gh/volwatch/internal/logger"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler manages cron tasks. Overlapping runs of the same task name are
// skipped rather than queued, whether started by cron or by RunNow.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context

	mu      sync.Mutex
	running map[string]*sync.Mutex
}

// New creates a Scheduler whose jobs run with ctx. Specs include a leading
// seconds field.
func New(ctx context.Context) *Scheduler {
	log := cron.PrintfLogger(logger.With("component", "scheduler"))
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		ctx:     ctx,
		running: make(map[string]*sync.Mutex),
	}
}

// Register adds a named job on the given cron spec.
func (s *Scheduler) Register(spec, name string, job Job) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(name, job)); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("scheduler stopped")
}

// Next returns the next activation time across all jobs, or the zero time.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}

// RunNow executes a job immediately, outside the schedule. It reports false
// when the job was not run because the context is done or a task with the
// same name is still running.
func (s *Scheduler) RunNow(name string, job Job) bool {
	return s.run(name, job)
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		s.run(name, job)
	}
}

func (s *Scheduler) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.running[name]
	if !ok {
		l = &sync.Mutex{}
		s.running[name] = l
	}
	return l
}

func (s *Scheduler) run(name string, job Job) bool {
	if s.ctx.Err() != nil {
		return false
	}
	l := s.lockFor(name)
	if !l.TryLock() {
		logger.Warn("%s task still running, skipping", name)
		return false
	}
	defer l.Unlock()

	start := time.Now()
	logger.Info("running %s task", name)
	if err := job(s.ctx); err != nil {
		logger.Error("%s task failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
		return true
	}
	logger.Info("%s task finished in %s", name, time.Since(start).Round(time.Millisecond))
	return true
}
