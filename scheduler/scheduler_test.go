package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/runner"
	"github.com/deepnoodle-ai/cadence/state"
)

// recordingWorkflow counts invocations and returns a fixed state.
type recordingWorkflow struct {
	name   string
	runs   int
	result cadence.State
	err    error
}

func (w *recordingWorkflow) Name() string        { return w.name }
func (w *recordingWorkflow) Description() string { return "test workflow" }

func (w *recordingWorkflow) Run(ctx context.Context, run *cadence.RunContext, st cadence.State) (cadence.State, error) {
	w.runs++
	if w.err != nil {
		return nil, w.err
	}
	return w.result, nil
}

// testHarness wires a scheduler against a real file store with a
// controllable clock.
type testHarness struct {
	scheduler *Scheduler
	workflow  *recordingWorkflow
	root      string
	now       *time.Time
}

func newTestHarness(t *testing.T, workflow *recordingWorkflow, start time.Time) *testHarness {
	t.Helper()
	root := t.TempDir()

	registry := cadence.NewRegistry()
	registry.Register(workflow)

	store, err := state.NewFileStore(state.FileStoreOptions{Root: root})
	require.NoError(t, err)

	r, err := runner.New(runner.Options{Registry: registry, Store: store})
	require.NoError(t, err)

	now := start
	sched, err := New(Options{
		Runner:      r,
		RuntimeRoot: root,
		Clock:       func() time.Time { return now },
	})
	require.NoError(t, err)

	return &testHarness{scheduler: sched, workflow: workflow, root: root, now: &now}
}

func TestShouldRunMonotonicity(t *testing.T) {
	h := newTestHarness(t, &recordingWorkflow{name: "report"}, time.Time{})
	require.NoError(t, h.scheduler.RegisterJob("report", "0 * * * *", "UTC"))

	h.scheduler.lastRun["report"] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	justBefore := time.Date(2024, 1, 1, 0, 59, 59, 0, time.UTC)
	require.False(t, h.scheduler.shouldRun("report", justBefore))

	atBoundary := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	require.True(t, h.scheduler.shouldRun("report", atBoundary))

	wellAfter := time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC)
	require.True(t, h.scheduler.shouldRun("report", wellAfter))
}

func TestShouldRunNeverRunUsesEpoch(t *testing.T) {
	h := newTestHarness(t, &recordingWorkflow{name: "report"}, time.Time{})
	require.NoError(t, h.scheduler.RegisterJob("report", "*/15 * * * *", "UTC"))

	// With an epoch cursor any past boundary makes the job due.
	now := time.Date(2024, 3, 1, 0, 16, 0, 0, time.UTC)
	require.True(t, h.scheduler.shouldRun("report", now))
}

func TestShouldRunUnknownJob(t *testing.T) {
	h := newTestHarness(t, &recordingWorkflow{name: "report"}, time.Time{})
	require.False(t, h.scheduler.shouldRun("missing", time.Now()))
}

func TestShouldRunEvaluatesInJobTimezone(t *testing.T) {
	h := newTestHarness(t, &recordingWorkflow{name: "report"}, time.Time{})
	require.NoError(t, h.scheduler.RegisterJob("report", "0 9 * * *", "America/New_York"))

	h.scheduler.lastRun["report"] = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// 12:59 UTC is 08:59 in New York during DST: not yet due.
	require.False(t, h.scheduler.shouldRun("report", time.Date(2024, 6, 1, 12, 59, 0, 0, time.UTC)))
	// 13:00 UTC is 09:00 in New York: due.
	require.True(t, h.scheduler.shouldRun("report", time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)))
}

func TestTickEndToEnd(t *testing.T) {
	workflow := &recordingWorkflow{name: "report", result: cadence.State{"count": 1}}
	start := time.Date(2024, 3, 1, 0, 16, 0, 0, time.UTC)
	h := newTestHarness(t, workflow, start)
	require.NoError(t, h.scheduler.RegisterJob("report", "*/15 * * * *", "UTC"))

	ctx := context.Background()

	// Never run before: the 00:15 boundary has passed, so the first
	// tick fires and persists the workflow's state.
	h.scheduler.tick(ctx, *h.now)
	require.Equal(t, 1, workflow.runs)

	data, err := os.ReadFile(filepath.Join(h.root, "state", "report.json"))
	require.NoError(t, err)
	var envelope struct {
		Version int            `json:"version"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.Equal(t, map[string]any{"count": float64(1)}, envelope.Data)

	// The next boundary is 00:30, so a tick at 00:20 does not re-fire.
	*h.now = time.Date(2024, 3, 1, 0, 20, 0, 0, time.UTC)
	h.scheduler.tick(ctx, *h.now)
	require.Equal(t, 1, workflow.runs)

	// Past 00:30 it fires again.
	*h.now = time.Date(2024, 3, 1, 0, 31, 0, 0, time.UTC)
	h.scheduler.tick(ctx, *h.now)
	require.Equal(t, 2, workflow.runs)
}

func TestCursorAdvancesOnFailure(t *testing.T) {
	workflow := &recordingWorkflow{name: "report", err: errors.New("boom")}
	start := time.Date(2024, 3, 1, 0, 16, 0, 0, time.UTC)
	h := newTestHarness(t, workflow, start)
	require.NoError(t, h.scheduler.RegisterJob("report", "*/15 * * * *", "UTC"))

	ctx := context.Background()

	h.scheduler.tick(ctx, *h.now)
	require.Equal(t, 1, workflow.runs)

	// Re-ticking at the same instant must not re-fire: the cursor
	// advanced despite the failure, so the retry waits for the next
	// cron boundary.
	h.scheduler.tick(ctx, *h.now)
	require.Equal(t, 1, workflow.runs)

	*h.now = time.Date(2024, 3, 1, 0, 31, 0, 0, time.UTC)
	h.scheduler.tick(ctx, *h.now)
	require.Equal(t, 2, workflow.runs)
}

func TestFailingJobDoesNotAffectOthers(t *testing.T) {
	failing := &recordingWorkflow{name: "bad", err: errors.New("boom")}
	healthy := &recordingWorkflow{name: "good", result: cadence.State{"ok": true}}

	root := t.TempDir()
	registry := cadence.NewRegistry()
	registry.Register(failing)
	registry.Register(healthy)

	store, err := state.NewFileStore(state.FileStoreOptions{Root: root})
	require.NoError(t, err)
	r, err := runner.New(runner.Options{Registry: registry, Store: store})
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 0, 16, 0, 0, time.UTC)
	sched, err := New(Options{
		Runner:      r,
		RuntimeRoot: root,
		Clock:       func() time.Time { return now },
	})
	require.NoError(t, err)
	require.NoError(t, sched.RegisterJob("bad", "*/15 * * * *", "UTC"))
	require.NoError(t, sched.RegisterJob("good", "*/15 * * * *", "UTC"))

	sched.tick(context.Background(), now)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, healthy.runs)
}

func TestRegisterJobOverwrites(t *testing.T) {
	h := newTestHarness(t, &recordingWorkflow{name: "report"}, time.Time{})
	require.NoError(t, h.scheduler.RegisterJob("report", "0 * * * *", "UTC"))
	require.NoError(t, h.scheduler.RegisterJob("report", "*/5 * * * *", "UTC"))

	jobs := h.scheduler.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, "*/5 * * * *", jobs[0].Expression)
}

func TestRegisterJobValidation(t *testing.T) {
	h := newTestHarness(t, &recordingWorkflow{name: "report"}, time.Time{})
	require.Error(t, h.scheduler.RegisterJob("report", "not a cron", "UTC"))
	require.Error(t, h.scheduler.RegisterJob("report", "0 * * * *", "Not/AZone"))
	require.Empty(t, h.scheduler.Jobs())
}

func TestSchedulerTriggerParams(t *testing.T) {
	h := newTestHarness(t, &recordingWorkflow{name: "report"}, time.Date(2024, 3, 1, 0, 16, 0, 0, time.UTC))
	require.NoError(t, h.scheduler.RegisterJob("report", "*/15 * * * *", "UTC"))

	run, err := h.scheduler.newRunContext("report")
	require.NoError(t, err)
	trigger := run.Trigger()
	require.Equal(t, cadence.TriggerScheduled, trigger.Type())
	require.Equal(t, "*/15 * * * *", trigger.Param("schedule"))
	require.Equal(t, "UTC", trigger.Param("timezone"))
	require.Equal(t, "2024-03-01T00:16:00Z", trigger.Param("triggered_at"))
}

func TestRunManagesPIDFile(t *testing.T) {
	h := newTestHarness(t, &recordingWorkflow{name: "report"}, time.Now())
	h.scheduler.checkInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.scheduler.Run(ctx)
	}()

	pidPath := filepath.Join(h.root, "scheduler.pid")
	require.Eventually(t, func() bool {
		_, err := os.Stat(pidPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	content, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	require.NotEmpty(t, content)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	_, err = os.Stat(pidPath)
	require.True(t, os.IsNotExist(err))
}
