// Package state persists per-workflow key/value state as one JSON file
// per workflow under a configured runtime root. Saves are atomic with
// respect to process crashes: data is written to a temporary file in
// the same directory and renamed into place, so a reader never observes
// a half-written file.
package state

import (
	"context"
	"errors"

	"github.com/deepnoodle-ai/cadence"
)

// ErrCorrupt indicates a state file that exists but cannot be trusted:
// invalid JSON, a non-object document, or a missing or unrecognized
// envelope field. Corrupt state is surfaced, never silently replaced
// with an empty mapping, since that would discard history invisibly.
var ErrCorrupt = errors.New("corrupt state file")

// Store loads and saves workflow state.
//
// No cross-process locking is provided. The framework's single-writer
// execution model guarantees the same workflow never saves concurrently
// within one process; pointing multiple processes at the same runtime
// directory is unsupported.
type Store interface {
	// Load returns the persisted state for a workflow. A missing file
	// yields an empty state; a corrupt file yields an error wrapping
	// ErrCorrupt.
	Load(ctx context.Context, workflow string) (cadence.State, error)

	// Save persists the state wholesale, replacing any prior state.
	// On failure the previously persisted state remains intact.
	Save(ctx context.Context, workflow string, state cadence.State) error
}
