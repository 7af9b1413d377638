// Package scheduler runs the deadline check: it classifies every objective by
// how close its deadline is, sends the matching reminder, and reports the
// outcome. Scheduler drives the check from a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/model"
)

// DefaultSpec runs the deadline check daily at 09:00.
const DefaultSpec = "0 0 9 * * *"

// Scheduler manages scheduled jobs using cron.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location

	mu         sync.Mutex
	lastReport *model.RunReport
	onReport   func(model.RunReport, time.Duration)
}

// NewScheduler creates a scheduler whose expressions are read in loc and
// include a seconds field.
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{})),
		),
		loc: loc,
	}
}

// OnReport registers a callback invoked after every scheduled deadline check.
func (s *Scheduler) OnReport(fn func(model.RunReport, time.Duration)) {
	s.mu.Lock()
	s.onReport = fn
	s.mu.Unlock()
}

// ScheduleDeadlineCheck registers checker to run on spec. An empty spec
// means DefaultSpec. Runs may overlap if one outlasts the interval.
func (s *Scheduler) ScheduleDeadlineCheck(spec string, checker *DeadlineChecker) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	id, err := s.cron.AddFunc(spec, func() {
		ctx := logging.NewRequestContext(context.Background())
		start := time.Now()
		report, err := checker.Check(ctx)
		if err != nil {
			logging.ErrorContext(ctx, "scheduled deadline check failed", logging.KeyError, err)
		}

		s.mu.Lock()
		s.lastReport = &report
		fn := s.onReport
		s.mu.Unlock()
		if fn != nil {
			fn(report, time.Since(start))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule deadline check: %w", err)
	}
	return id, nil
}

// LastReport returns the report of the most recent scheduled run, if any.
func (s *Scheduler) LastReport() (model.RunReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return model.RunReport{}, false
	}
	return *s.lastReport, true
}

// Start starts the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logging.Info("scheduler started", "jobs", len(s.cron.Entries()), "timezone", s.loc.String())
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	logging.Info("scheduler stopped")
}

// Entries returns all scheduled entries.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// NextRun returns the next scheduled run time for any job.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// cronLogger adapts cron's logger to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logging.Logger().Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logging.Logger().Error("cron: "+msg, append([]any{slog.Any(logging.KeyError, err)}, keysAndValues...)...)
}
