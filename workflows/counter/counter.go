// Package counter is the example workflow: it increments a counter in
// its state on every run. Useful for verifying scheduling and state
// persistence end to end.
package counter

import (
	"context"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/log"
)

// Workflow increments "count" in its state each run.
type Workflow struct {
	logger log.Logger
}

// New creates the counter workflow.
func New(logger log.Logger) *Workflow {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Workflow{logger: logger}
}

func (w *Workflow) Name() string {
	return "counter"
}

func (w *Workflow) Description() string {
	return "Example workflow that increments a counter in state"
}

func (w *Workflow) Run(ctx context.Context, run *cadence.RunContext, state cadence.State) (cadence.State, error) {
	count := currentCount(state)
	w.logger.Info("current count", "count", count)
	return cadence.State{"count": count + 1}, nil
}

// currentCount reads the counter, tolerating the float64 representation
// JSON round-trips produce.
func currentCount(state cadence.State) int {
	switch v := state["count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
