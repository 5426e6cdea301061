// Package schedule repeats a verification run on a cron expression.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrEmptyExpr is returned for a spec without an expression
var ErrEmptyExpr = errors.New("schedule: cron expression is required")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Spec is a 5-field cron expression evaluated in an optional timezone
type Spec struct {
	Expr string `json:"expr"`
	TZ   string `json:"tz,omitempty"`
}

func (s Spec) location() (*time.Location, error) {
	if s.TZ == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.TZ)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return loc, nil
}

func (s Spec) parse() (cron.Schedule, *time.Location, error) {
	if s.Expr == "" {
		return nil, nil, ErrEmptyExpr
	}
	sched, err := parser.Parse(s.Expr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	loc, err := s.location()
	if err != nil {
		return nil, nil, err
	}
	return sched, loc, nil
}

// NextRun returns the first activation strictly after now
func NextRun(spec Spec, now time.Time) (time.Time, error) {
	sched, loc, err := spec.parse()
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now.In(loc)), nil
}

// Job is one scheduled run
type Job func(ctx context.Context) error

// Scheduler runs a Job on its schedule. An activation that arrives while the
// previous run is still going is skipped.
type Scheduler struct {
	sched  cron.Schedule
	loc    *time.Location
	job    Job
	logger zerolog.Logger

	mu      sync.Mutex
	runs    int
	failed  int
	skipped int
}

// New parses spec and binds it to job
func New(spec Spec, job Job, logger zerolog.Logger) (*Scheduler, error) {
	sched, loc, err := spec.parse()
	if err != nil {
		return nil, err
	}
	return newScheduler(sched, loc, job, logger), nil
}

func newScheduler(sched cron.Schedule, loc *time.Location, job Job, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		sched:  sched,
		loc:    loc,
		job:    job,
		logger: logger.With().Str("component", "schedule").Logger(),
	}
}

// Run blocks until ctx is done, then waits for an in-flight job to return.
// The job's context is canceled together with ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s})),
	)
	c.Schedule(s.sched, cron.FuncJob(func() { s.execute(ctx) }))

	s.logger.Info().Time("next_run", s.sched.Next(time.Now().In(s.loc))).Msg("Scheduler started")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Scheduler) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := s.job(ctx)

	s.mu.Lock()
	s.runs++
	if err != nil {
		s.failed++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled run failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("Scheduled run completed")
}

func (s *Scheduler) recordSkip() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
}

// Stats reports completed, failed and skipped activations
func (s *Scheduler) Stats() (runs, failed, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.failed, s.skipped
}

// cronLogger adapts the scheduler's zerolog logger to cron.Logger
type cronLogger struct {
	s *Scheduler
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.s.recordSkip()
		l.s.logger.Warn().Msg("Previous run still in progress, skipping activation")
		return
	}
	l.s.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
