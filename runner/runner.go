// Package runner executes exactly one workflow run end to end with
// correct state semantics: load state, invoke the workflow, validate
// the returned contract, then persist or suppress based on dry-run.
package runner

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/log"
	"github.com/deepnoodle-ai/cadence/state"
)

// Runner executes workflow runs. It never swallows failures: every
// error is logged with the run ID and workflow name and returned to the
// caller, so the scheduler and CLI both observe them.
type Runner struct {
	registry *cadence.Registry
	store    state.Store
	logger   log.Logger
}

// Options configures a Runner.
type Options struct {
	// Registry resolves workflow names. Required.
	Registry *cadence.Registry

	// Store persists workflow state. Required.
	Store state.Store

	// Logger defaults to a null logger.
	Logger log.Logger
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("state store required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Runner{
		registry: opts.Registry,
		store:    opts.Store,
		logger:   logger,
	}, nil
}

// Run executes one run described by the given context and returns the
// workflow's new state. State is persisted only on success with dry-run
// disabled; a dry run discards the returned state without touching the
// store.
func (r *Runner) Run(ctx context.Context, run *cadence.RunContext) (cadence.State, error) {
	logger := r.logger.With(
		"run_id", run.RunID(),
		"workflow", run.Workflow(),
	)

	// Resolve before any state I/O so an unknown workflow never reads
	// or writes the store.
	workflow, err := r.registry.Get(run.Workflow())
	if err != nil {
		logger.Error("workflow resolution failed", "error", err)
		return nil, err
	}

	// A load failure aborts the run: never invoke a workflow against
	// state known to be corrupt.
	current, err := r.store.Load(ctx, run.Workflow())
	if err != nil {
		logger.Error("state load failed", "error", err)
		return nil, err
	}

	logger.Info("workflow starting",
		"trigger", string(run.Trigger().Type()),
		"dry_run", run.DryRun(),
	)

	newState, err := workflow.Run(ctx, run, current)
	if err != nil {
		logger.Error("workflow failed", "error", err)
		return nil, fmt.Errorf("workflow %q failed: %w", run.Workflow(), err)
	}
	if newState == nil {
		err := fmt.Errorf("workflow %q returned nil state", run.Workflow())
		logger.Error("workflow contract violation", "error", err)
		return nil, err
	}

	if run.DryRun() {
		logger.Info("dry run complete, discarding state", "keys", len(newState))
		return newState, nil
	}

	if err := r.store.Save(ctx, run.Workflow(), newState); err != nil {
		logger.Error("state save failed", "error", err)
		return nil, err
	}

	logger.Info("workflow complete", "keys", len(newState))
	return newState, nil
}
