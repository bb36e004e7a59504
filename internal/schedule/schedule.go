// Package schedule runs a scan job on a cron spec.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. Its error is logged, never fatal.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron with a single job. Overlapping runs, the
// immediate one included, are skipped while a run is still in progress.
type Scheduler struct {
	cron     *cron.Cron
	chain    cron.Chain
	spec     string
	schedule cron.Schedule
	job      Job
	logger   *slog.Logger

	wrapped cron.Job
	wg      sync.WaitGroup
}

// New validates spec (five-field cron or a descriptor such as "@every 6h").
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cl)),
		chain:    cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		spec:     spec,
		schedule: sched,
		job:      job,
		logger:   logger,
	}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start registers the job and starts the cron loop. With runNow the job
// also runs once immediately without waiting for the first tick. Both go
// through the same Recover and SkipIfStillRunning wrappers.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	s.wrapped = s.chain.Then(cron.FuncJob(func() { s.run(ctx) }))
	if _, err := s.cron.AddJob(s.spec, s.wrapped); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec, "next", s.Next(time.Now()).Format(time.RFC3339))
	if runNow {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.wrapped.Run()
		}()
	}
	return nil
}

// Stop halts the loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled scan failed", "err", err)
		return
	}
	s.logger.Debug("scheduled scan complete", "elapsed", time.Since(start))
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
