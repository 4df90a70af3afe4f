// Package scheduler runs the long-lived daemon loop: it owns a set of
// cron-registered jobs, decides per tick which are due, builds run
// contexts, and delegates execution to the runner. Jobs run strictly
// sequentially; a tick finishes one job before starting the next.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/log"
	"github.com/deepnoodle-ai/cadence/runner"
)

// DefaultCheckInterval is the default tick granularity. Schedules are
// minute-granularity cron expressions; the tick interval only bounds
// how soon after a boundary a due job fires.
const DefaultCheckInterval = 30 * time.Second

// cronParser accepts standard 5-field cron expressions.
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// Job describes one cron registration.
type Job struct {
	Workflow   string
	Expression string
	Timezone   string
}

// job is a registered schedule with its parsed form.
type job struct {
	workflow   string
	expression string
	timezone   string
	schedule   cronlib.Schedule
	location   *time.Location
}

// Scheduler triggers workflow runs on cron schedules. All fields are
// owned by the single goroutine calling Run; no locking is required as
// long as registration happens before the loop starts.
type Scheduler struct {
	runner        *runner.Runner
	logger        log.Logger
	runtimeRoot   string
	checkInterval time.Duration
	clock         func() time.Time

	jobs    map[string]*job
	order   []string
	lastRun map[string]time.Time
}

// Options configures a Scheduler.
type Options struct {
	// Runner executes due jobs. Required.
	Runner *runner.Runner

	// RuntimeRoot is the directory for the PID marker file. Required.
	RuntimeRoot string

	// CheckInterval is the tick granularity. Defaults to
	// DefaultCheckInterval.
	CheckInterval time.Duration

	// Logger defaults to a null logger.
	Logger log.Logger

	// Clock overrides the time source. Defaults to time.Now.
	Clock func() time.Time
}

// New creates a Scheduler with no registered jobs.
func New(opts Options) (*Scheduler, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("runner required")
	}
	if opts.RuntimeRoot == "" {
		return nil, fmt.Errorf("runtime root required")
	}
	checkInterval := opts.CheckInterval
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNullLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		runner:        opts.Runner,
		logger:        logger,
		runtimeRoot:   opts.RuntimeRoot,
		checkInterval: checkInterval,
		clock:         clock,
		jobs:          map[string]*job{},
		lastRun:       map[string]time.Time{},
	}, nil
}

// RegisterJob registers a workflow to run on a cron schedule in the
// named timezone. Registering the same workflow again overwrites the
// prior schedule; last registration wins.
func (s *Scheduler) RegisterJob(workflow, expression, timezone string) error {
	schedule, err := cronParser.Parse(expression)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for workflow %q: %w", expression, workflow, err)
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q for workflow %q: %w", timezone, workflow, err)
	}
	if _, exists := s.jobs[workflow]; !exists {
		s.order = append(s.order, workflow)
	}
	s.jobs[workflow] = &job{
		workflow:   workflow,
		expression: expression,
		timezone:   timezone,
		schedule:   schedule,
		location:   location,
	}
	s.logger.Info("registered job",
		"workflow", workflow,
		"schedule", expression,
		"timezone", timezone,
	)
	return nil
}

// Jobs returns the registered jobs in registration order.
func (s *Scheduler) Jobs() []Job {
	jobs := make([]Job, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		jobs = append(jobs, Job{
			Workflow:   j.workflow,
			Expression: j.expression,
			Timezone:   j.timezone,
		})
	}
	return jobs
}

// shouldRun reports whether a job is due: the next cron fire time
// strictly after the job's last-run cursor, evaluated in the job's
// timezone, has been reached. A job that has never run uses the epoch
// as its cursor.
func (s *Scheduler) shouldRun(workflow string, now time.Time) bool {
	j, ok := s.jobs[workflow]
	if !ok {
		return false
	}
	last, ok := s.lastRun[workflow]
	if !ok {
		last = time.Unix(0, 0)
	}
	next := j.schedule.Next(last.In(j.location))
	return !now.In(j.location).Before(next)
}

// newRunContext builds the context for one scheduled firing.
func (s *Scheduler) newRunContext(workflow string) (*cadence.RunContext, error) {
	j := s.jobs[workflow]
	triggeredAt := s.clock().In(j.location)
	trigger := cadence.NewTrigger(cadence.TriggerScheduled, map[string]string{
		"schedule":     j.expression,
		"triggered_at": triggeredAt.Format(time.RFC3339),
		"timezone":     j.timezone,
	})
	return cadence.NewRunContext(cadence.RunContextOptions{
		Workflow:  workflow,
		Trigger:   trigger,
		StartedAt: triggeredAt,
	})
}

// tick evaluates every registered job once and runs the due ones
// sequentially. The last-run cursor advances unconditionally after the
// runner returns, success or failure, so a failed job waits for its
// next cron boundary instead of re-firing every tick. Per-job errors
// are logged and never stop the loop or affect other jobs.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, workflow := range s.order {
		if ctx.Err() != nil {
			return
		}
		if !s.shouldRun(workflow, now) {
			continue
		}
		s.logger.Info("triggering scheduled run", "workflow", workflow)

		run, err := s.newRunContext(workflow)
		if err != nil {
			s.logger.Error("failed to build run context", "workflow", workflow, "error", err)
			continue
		}

		_, runErr := s.runner.Run(ctx, run)
		s.lastRun[workflow] = s.clock().In(s.jobs[workflow].location)

		if runErr != nil {
			s.logger.Error("scheduled run failed",
				"workflow", workflow,
				"run_id", run.RunID(),
				"error", runErr,
			)
			continue
		}
		s.logger.Info("scheduled run complete", "workflow", workflow, "run_id", run.RunID())
	}
}

// Run executes the scheduler loop until the context is canceled. A PID
// marker file is written at start and removed at shutdown so external
// supervisors can detect liveness. Cancellation is honored between jobs
// and between ticks; an in-flight job always runs to completion.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.writePIDFile(); err != nil {
		return err
	}
	defer s.removePIDFile()

	s.logger.Info("scheduler started",
		"jobs", len(s.jobs),
		"check_interval", s.checkInterval,
	)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		s.tick(ctx, s.clock())
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// pidPath returns the PID marker file path.
func (s *Scheduler) pidPath() string {
	return filepath.Join(s.runtimeRoot, "scheduler.pid")
}

// writePIDFile writes the marker file supervisors use to detect a live
// scheduler. The file contains the process working directory.
func (s *Scheduler) writePIDFile() error {
	if err := os.MkdirAll(s.runtimeRoot, 0755); err != nil {
		return fmt.Errorf("failed to create runtime root: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}
	path := s.pidPath()
	if err := os.WriteFile(path, []byte(wd), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	s.logger.Info("wrote PID file", "path", path)
	return nil
}

// removePIDFile removes the marker file on clean shutdown.
func (s *Scheduler) removePIDFile() {
	path := s.pidPath()
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to remove PID file", "path", path, "error", err)
		}
		return
	}
	s.logger.Info("removed PID file", "path", path)
}
