package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/log"
)

// envelopeVersion is the current on-disk schema version.
const envelopeVersion = 1

// envelope wraps workflow state on disk with a schema version. Pointer
// fields let Load distinguish absent fields from zero values.
type envelope struct {
	Version *int           `json:"version"`
	Data    *cadence.State `json:"data"`
}

// FileStore stores workflow state as individual JSON files named
// {workflow}.json under {root}/state.
type FileStore struct {
	dir    string
	logger log.Logger
}

// FileStoreOptions configures a FileStore.
type FileStoreOptions struct {
	// Root is the runtime root directory. State files live in the
	// "state" subdirectory. Required.
	Root string

	// Logger defaults to a null logger.
	Logger log.Logger
}

// NewFileStore creates a file-based state store.
func NewFileStore(opts FileStoreOptions) (*FileStore, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("runtime root required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &FileStore{
		dir:    filepath.Join(opts.Root, "state"),
		logger: logger,
	}, nil
}

// statePath returns the file path for a workflow's state.
func (s *FileStore) statePath(workflow string) string {
	return filepath.Join(s.dir, workflow+".json")
}

// Load returns the persisted state for a workflow, or an empty state if
// no file exists yet. A file that exists but is not a valid versioned
// envelope fails with ErrCorrupt.
func (s *FileStore) Load(ctx context.Context, workflow string) (cadence.State, error) {
	data, err := os.ReadFile(s.statePath(workflow))
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("no state file found", "workflow", workflow)
			return cadence.State{}, nil
		}
		return nil, fmt.Errorf("failed to read state for workflow %q: %w", workflow, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w for workflow %q: invalid JSON: %s", ErrCorrupt, workflow, err)
	}
	if env.Version == nil {
		return nil, fmt.Errorf("%w for workflow %q: missing \"version\" field", ErrCorrupt, workflow)
	}
	if *env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w for workflow %q: unrecognized version %d", ErrCorrupt, workflow, *env.Version)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w for workflow %q: missing \"data\" field", ErrCorrupt, workflow)
	}

	s.logger.Debug("loaded state", "workflow", workflow)
	if *env.Data == nil {
		return cadence.State{}, nil
	}
	return *env.Data, nil
}

// Save persists the state wholesale using a write-to-temp-then-rename
// sequence. Any failure removes the temporary artifact and leaves the
// previously committed file untouched.
func (s *FileStore) Save(ctx context.Context, workflow string, state cadence.State) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	version := envelopeVersion
	if state == nil {
		state = cadence.State{}
	}
	data, err := json.MarshalIndent(envelope{Version: &version, Data: &state}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state for workflow %q: %w", workflow, err)
	}
	// Trailing newline for readability when inspecting files by hand.
	data = append(data, '\n')

	statePath := s.statePath(workflow)
	tempPath := statePath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write state for workflow %q: %w", workflow, err)
	}
	if err := os.Rename(tempPath, statePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to commit state for workflow %q: %w", workflow, err)
	}

	s.logger.Debug("saved state", "workflow", workflow)
	return nil
}
