package cadence

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunContext describes one execution attempt: which workflow runs, what
// triggered it, a process-unique run ID, the start time, user-supplied
// arguments, and whether durable writes are suppressed. It is created
// once by the CLI or the scheduler and is read-only to workflows.
type RunContext struct {
	workflow  string
	trigger   Trigger
	runID     string
	startedAt time.Time
	args      map[string]string
	dryRun    bool
}

// RunContextOptions configures a new RunContext.
type RunContextOptions struct {
	// Workflow is the name of the workflow to execute. Required.
	Workflow string

	// Trigger records what caused this run.
	Trigger Trigger

	// RunID uniquely identifies the run. Auto-generated when empty.
	RunID string

	// StartedAt is the run start time. Defaults to the current UTC time.
	StartedAt time.Time

	// Args carries user-supplied key/value arguments.
	Args map[string]string

	// DryRun suppresses durable state writes when true.
	DryRun bool
}

// NewRunContext creates an immutable RunContext.
func NewRunContext(opts RunContextOptions) (*RunContext, error) {
	if opts.Workflow == "" {
		return nil, fmt.Errorf("workflow name required")
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	startedAt := opts.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	args := make(map[string]string, len(opts.Args))
	for k, v := range opts.Args {
		args[k] = v
	}
	return &RunContext{
		workflow:  opts.Workflow,
		trigger:   opts.Trigger,
		runID:     runID,
		startedAt: startedAt,
		args:      args,
		dryRun:    opts.DryRun,
	}, nil
}

// Workflow returns the name of the workflow being executed.
func (r *RunContext) Workflow() string {
	return r.workflow
}

// Trigger returns the trigger that caused this run.
func (r *RunContext) Trigger() Trigger {
	return r.trigger
}

// RunID returns the unique identifier for this run.
func (r *RunContext) RunID() string {
	return r.runID
}

// StartedAt returns when this run started.
func (r *RunContext) StartedAt() time.Time {
	return r.startedAt
}

// Arg returns the named user argument, or the empty string.
func (r *RunContext) Arg(key string) string {
	return r.args[key]
}

// Args returns a copy of the user arguments.
func (r *RunContext) Args() map[string]string {
	out := make(map[string]string, len(r.args))
	for k, v := range r.args {
		out[k] = v
	}
	return out
}

// DryRun reports whether durable state writes are suppressed.
func (r *RunContext) DryRun() bool {
	return r.dryRun
}

// ParseArgs converts raw "key=value" strings into an argument map.
// Malformed entries fail immediately so bad input is rejected at the
// CLI boundary, not inside the runner or scheduler.
func ParseArgs(raw []string) (map[string]string, error) {
	args := make(map[string]string, len(raw))
	for _, item := range raw {
		key, value, found := strings.Cut(item, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid arg %q: expected key=value", item)
		}
		args[key] = value
	}
	return args, nil
}
