package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/cadence"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewFileStore(FileStoreOptions{Root: root})
	require.NoError(t, err)
	return store, root
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	state, err := store.Load(context.Background(), "report")
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Empty(t, state)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	saved := cadence.State{
		"count":  float64(3),
		"cursor": "2024-01-01T00:00:00Z",
		"ids":    []any{"a", "b"},
		"nested": map[string]any{"key": "value"},
	}
	require.NoError(t, store.Save(ctx, "report", saved))

	loaded, err := store.Load(ctx, "report")
	require.NoError(t, err)
	require.Equal(t, saved, loaded)
}

func TestFileStoreSaveReplacesWholesale(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "report", cadence.State{"old": "value", "keep": "me"}))
	require.NoError(t, store.Save(ctx, "report", cadence.State{"new": "value"}))

	loaded, err := store.Load(ctx, "report")
	require.NoError(t, err)
	require.Equal(t, cadence.State{"new": "value"}, loaded)
}

func TestFileStoreEnvelopeFormat(t *testing.T) {
	store, root := newTestStore(t)
	require.NoError(t, store.Save(context.Background(), "report", cadence.State{"count": 1}))

	data, err := os.ReadFile(filepath.Join(root, "state", "report.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"version": 1`)
	require.Contains(t, string(data), `"data"`)
}

func TestFileStoreCorruptState(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid JSON", content: `{not json`},
		{name: "non-object document", content: `[1, 2, 3]`},
		{name: "missing version", content: `{"data": {}}`},
		{name: "missing data", content: `{"version": 1}`},
		{name: "unrecognized version", content: `{"version": 99, "data": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, root := newTestStore(t)
			stateDir := filepath.Join(root, "state")
			require.NoError(t, os.MkdirAll(stateDir, 0755))
			require.NoError(t, os.WriteFile(
				filepath.Join(stateDir, "report.json"), []byte(tt.content), 0644))

			_, err := store.Load(context.Background(), "report")
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrCorrupt), "expected ErrCorrupt, got: %v", err)
		})
	}
}

func TestFileStoreFailedSaveLeavesPriorState(t *testing.T) {
	store, root := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "report", cadence.State{"count": float64(1)}))

	// Channels cannot be serialized, so this save fails before any file
	// is touched.
	err := store.Save(ctx, "report", cadence.State{"bad": make(chan int)})
	require.Error(t, err)

	loaded, err := store.Load(ctx, "report")
	require.NoError(t, err)
	require.Equal(t, cadence.State{"count": float64(1)}, loaded)

	entries, err := os.ReadDir(filepath.Join(root, "state"))
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestFileStoreFailedRenameCleansUpTemp(t *testing.T) {
	store, root := newTestStore(t)
	ctx := context.Background()

	// A non-empty directory at the target path makes the rename fail
	// after the temp file has been written.
	stateDir := filepath.Join(root, "state")
	target := filepath.Join(stateDir, "report.json")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "blocker"), 0755))

	err := store.Save(ctx, "report", cadence.State{"count": 1})
	require.Error(t, err)

	entries, err := os.ReadDir(stateDir)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestFileStoreNilStateSavesEmptyMapping(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "report", nil))
	loaded, err := store.Load(ctx, "report")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Empty(t, loaded)
}

func TestNewFileStoreRequiresRoot(t *testing.T) {
	_, err := NewFileStore(FileStoreOptions{})
	require.Error(t, err)
}
