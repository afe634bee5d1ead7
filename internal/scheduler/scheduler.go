// Package scheduler fires pipeline runs on a cron cadence.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
)

// Job is one scheduled unit of work. Errors are logged, not fatal: a failed
// run must not kill the cadence.
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron expression until the context ends.
type Scheduler struct {
	expr   *cronexpr.Expression
	spec   string
	job    Job
	logger *log.Logger
}

// New parses the cron spec and wraps the job.
func New(spec string, job Job, logger *log.Logger) (*Scheduler, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", spec, err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	return &Scheduler{expr: expr, spec: spec, job: job, logger: logger}, nil
}

// Next reports the next firing time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.expr.Next(t)
}

// Run blocks, firing the job at each cron tick, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Printf("schedule %q, next run at %s", s.spec, s.Next(time.Now()).Format(time.RFC3339))
	for {
		next := s.Next(time.Now())
		if next.IsZero() {
			return fmt.Errorf("scheduler: %q yields no future run", s.spec)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		start := time.Now()
		if err := s.job(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Printf("scheduled run failed after %s: %v", time.Since(start).Round(time.Second), err)
			continue
		}
		s.logger.Printf("scheduled run finished in %s, next at %s",
			time.Since(start).Round(time.Second), s.Next(time.Now()).Format(time.RFC3339))
	}
}
