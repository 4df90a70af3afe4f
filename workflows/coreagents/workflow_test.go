package coreagents

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/vault"
)

func newTestWorkflow(t *testing.T) (*Workflow, *vault.Vault) {
	t.Helper()
	v, err := vault.New(t.TempDir(), nil)
	require.NoError(t, err)
	w, err := New(Options{Vault: v})
	require.NoError(t, err)
	return w, v
}

func newRun(t *testing.T, args map[string]string, dryRun bool) *cadence.RunContext {
	t.Helper()
	run, err := cadence.NewRunContext(cadence.RunContextOptions{
		Workflow: "core_agents",
		Args:     args,
		DryRun:   dryRun,
	})
	require.NoError(t, err)
	return run
}

func TestSyncWritesAgentDocuments(t *testing.T) {
	w, v := newTestWorkflow(t)

	state, err := w.Run(context.Background(), newRun(t, nil, false), cadence.State{})
	require.NoError(t, err)

	path := v.Path(".github", "agents", "inbox.agent.md")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, content)

	checksums, ok := state["checksums"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, checksums, "inbox")
}

func TestSyncSkipsUpToDateDocuments(t *testing.T) {
	w, v := newTestWorkflow(t)
	ctx := context.Background()

	_, err := w.Run(ctx, newRun(t, nil, false), cadence.State{})
	require.NoError(t, err)

	path := v.Path(".github", "agents", "inbox.agent.md")
	before, err := os.Stat(path)
	require.NoError(t, err)

	// Make any rewrite observable.
	older := before.ModTime().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, older, older))

	_, err = w.Run(ctx, newRun(t, nil, false), cadence.State{})
	require.NoError(t, err)

	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, older.Unix(), after.ModTime().Unix())
}

func TestSyncRewritesDriftedDocuments(t *testing.T) {
	w, v := newTestWorkflow(t)
	ctx := context.Background()

	_, err := w.Run(ctx, newRun(t, nil, false), cadence.State{})
	require.NoError(t, err)

	path := v.Path(".github", "agents", "inbox.agent.md")
	require.NoError(t, os.WriteFile(path, []byte("drifted"), 0644))

	_, err = w.Run(ctx, newRun(t, nil, false), cadence.State{})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEqual(t, "drifted", string(content))
}

func TestDryRunWritesNothing(t *testing.T) {
	w, v := newTestWorkflow(t)

	state, err := w.Run(context.Background(), newRun(t, nil, true), cadence.State{})
	require.NoError(t, err)
	require.Contains(t, state, "checksums")

	_, err = os.Stat(filepath.Join(v.Root(), ".github"))
	require.True(t, os.IsNotExist(err))
}

func TestUnknownAgentRejected(t *testing.T) {
	w, _ := newTestWorkflow(t)

	_, err := w.Run(context.Background(), newRun(t, map[string]string{"agent": "nope"}, false), cadence.State{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown agent")
}
