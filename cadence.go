package cadence

import "context"

// State is the mapping a workflow owns between runs. Values must be
// JSON-serializable. A workflow's returned state replaces the stored
// state wholesale; partial merges never happen.
type State map[string]any

// Copy returns a shallow copy of the state. Nil state copies to an
// empty, non-nil map so callers can always index the result.
func (s State) Copy() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GetString returns the string stored under key, or the empty string if
// the key is absent or holds a non-string value.
func (s State) GetString(key string) string {
	v, ok := s[key].(string)
	if !ok {
		return ""
	}
	return v
}

// GetStringSlice returns the slice of strings stored under key. Values
// persisted through JSON round-trip as []any, so both representations
// are accepted.
func (s State) GetStringSlice(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Workflow is the unit of automation. Implementations receive the run
// context and their current state and return the complete new state to
// persist. Workflows never touch the state store or the scheduler
// directly; this method is the entire integration surface.
type Workflow interface {
	// Name returns the unique workflow name used for registration,
	// state file naming, and CLI invocation.
	Name() string

	// Description returns a one-line human description for listings.
	Description() string

	// Run executes the workflow. The returned state replaces the stored
	// state in full. Returning a nil state with a nil error is a
	// contract violation and fails the run.
	Run(ctx context.Context, run *RunContext, state State) (State, error)
}
