package cadence

import (
	"errors"
	"fmt"
	"sort"
)

// ErrWorkflowNotFound indicates a workflow name that has no
// registration. Callers can distinguish it with errors.Is.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Registry resolves workflow names to implementations. It is populated
// at process startup by explicit registration; registering the same
// name twice overwrites silently (last registration wins).
//
// The registry is not safe for concurrent mutation. The framework's
// execution model is strictly single-threaded: registration happens at
// startup, before the scheduler loop or any run begins.
type Registry struct {
	workflows map[string]Workflow
}

// NewRegistry creates an empty workflow registry.
func NewRegistry() *Registry {
	return &Registry{workflows: map[string]Workflow{}}
}

// Register adds a workflow, replacing any existing registration with
// the same name.
func (r *Registry) Register(w Workflow) {
	r.workflows[w.Name()] = w
}

// Get resolves a workflow by name. Unknown names return an error
// wrapping ErrWorkflowNotFound.
func (r *Registry) Get(name string) (Workflow, error) {
	w, ok := r.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, name)
	}
	return w, nil
}

// Names returns all registered workflow names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.workflows))
	for name := range r.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
