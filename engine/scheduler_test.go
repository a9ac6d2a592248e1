package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarm1.dev/core/engine/exec"
	"swarm1.dev/core/engine/locks"
	"swarm1.dev/core/engine/state"
	"swarm1.dev/core/graph"
	"swarm1.dev/core/observability"
	"swarm1.dev/core/swarmerr"
	"swarm1.dev/core/telemetry"
)

// fakeExecutor is a test double that records its call order and lets the
// test script per-node behavior without spawning real subprocesses.
type fakeExecutor struct {
	mu    sync.Mutex
	calls int
	run   func(ctx context.Context, in exec.Input, calls int) error
}

func (f *fakeExecutor) DefaultTimeoutMs() int { return 5000 }

func (f *fakeExecutor) Execute(ctx context.Context, in exec.Input, deps *exec.Deps) error {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.run == nil {
		return nil
	}
	return f.run(ctx, in, n)
}

// specYAML is a minimal valid graph document: every node is an agent_task
// (the only type with no required params) with an optional "requires" list
// and retry override, built from the test's node specs. Using graph.Parse
// exercises the real loader instead of hand-assembling unexported Spec
// fields.
func specYAML(concurrency int, failFast bool, nodes []testNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "version: \"1.0\"\nproject_id: proj\nconcurrency: %d\nfail_fast: %v\ndefaults:\n  retries:\n    max: 1\n  backoff_ms: 10\nnodes:\n", concurrency, failFast)
	for _, n := range nodes {
		fmt.Fprintf(&b, "  - id: %s\n    type: agent_task\n    params:\n      prompt: x\n", n.id)
		if len(n.requires) > 0 {
			b.WriteString("    requires:\n")
			for _, r := range n.requires {
				fmt.Fprintf(&b, "      - %s\n", r)
			}
		}
		if n.retriesMax > 0 {
			fmt.Fprintf(&b, "    retries:\n      max: %d\n", n.retriesMax)
		}
	}
	return b.String()
}

type testNode struct {
	id         string
	requires   []string
	retriesMax int
}

func newSpec(t *testing.T, nodes []testNode, concurrency int, failFast bool) *graph.Spec {
	t.Helper()
	spec, err := graph.Parse([]byte(specYAML(concurrency, failFast, nodes)))
	require.NoError(t, err)
	return spec
}

func newScheduler(t *testing.T, spec *graph.Spec, executors map[graph.NodeType]exec.Executor) *Scheduler {
	t.Helper()
	store := state.NewFileStore(t.TempDir())
	lockMgr := locks.NewManager("")
	emitter := observability.NewEmitter(t.TempDir(), telemetry.NoopLogger{}, nil)
	deps := &exec.Deps{BaseDir: t.TempDir(), Logger: telemetry.NoopLogger{}}
	return NewWithExecutors(spec, store, lockMgr, emitter, deps, telemetry.Noop(), Config{StagingURL: "http://127.0.0.1:3000"}, executors)
}

func TestSchedulerRespectsDependencyOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(id string) func(ctx context.Context, in exec.Input, calls int) error {
		return func(ctx context.Context, in exec.Input, calls int) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		}
	}

	a := &fakeExecutor{run: record("a")}
	b := &fakeExecutor{run: record("b")}
	c := &fakeExecutor{run: record("c")}

	spec := newSpec(t, []testNode{
		{id: "a"},
		{id: "b", requires: []string{"a"}},
		{id: "c", requires: []string{"b"}},
	}, 3, false)

	sched := newScheduler(t, spec, map[graph.NodeType]exec.Executor{graph.TypeAgentTask: chooseByNode(map[string]exec.Executor{"a": a, "b": b, "c": c})})

	run, err := sched.Run(context.Background(), "run-order")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, state.StatusSucceeded, run.Nodes["c"].Status)
}

func TestSchedulerRetriesTransientFailureThenSucceeds(t *testing.T) {
	fe := &fakeExecutor{run: func(ctx context.Context, in exec.Input, calls int) error {
		if calls < 3 {
			return swarmerr.New(swarmerr.CommandFailed, "connect ECONNREFUSED 127.0.0.1:3000")
		}
		return nil
	}}

	spec := newSpec(t, []testNode{
		{id: "a", retriesMax: 2},
	}, 1, false)

	sched := newScheduler(t, spec, map[graph.NodeType]exec.Executor{graph.TypeAgentTask: fe})

	run, err := sched.Run(context.Background(), "run-retry")
	require.NoError(t, err)
	assert.Equal(t, state.StatusSucceeded, run.Nodes["a"].Status)
	assert.Equal(t, 3, run.Nodes["a"].Attempts)
}

func TestSchedulerExhaustsRetriesAndFails(t *testing.T) {
	fe := &fakeExecutor{run: func(ctx context.Context, in exec.Input, calls int) error {
		return swarmerr.New(swarmerr.CommandFailed, "connect ECONNREFUSED 127.0.0.1:3000")
	}}

	spec := newSpec(t, []testNode{
		{id: "a", retriesMax: 2},
	}, 1, false)

	sched := newScheduler(t, spec, map[graph.NodeType]exec.Executor{graph.TypeAgentTask: fe})

	run, err := sched.Run(context.Background(), "run-exhaust")
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, run.Nodes["a"].Status)
	assert.Equal(t, 3, run.Nodes["a"].Attempts)
}

func TestSchedulerFailFastCancelsSiblings(t *testing.T) {
	failing := &fakeExecutor{run: func(ctx context.Context, in exec.Input, calls int) error {
		return swarmerr.New(swarmerr.InvalidParams, "permanent failure")
	}}
	waiting := &fakeExecutor{run: func(ctx context.Context, in exec.Input, calls int) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	spec := newSpec(t, []testNode{
		{id: "a"},
		{id: "b"},
	}, 2, true)

	sched := newScheduler(t, spec, map[graph.NodeType]exec.Executor{
		graph.TypeAgentTask: chooseByNode(map[string]exec.Executor{"a": failing, "b": waiting}),
	})

	done := make(chan struct{})
	var run *state.RunState
	go func() {
		var runErr error
		run, runErr = sched.Run(context.Background(), "run-failfast")
		require.NoError(t, runErr)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fail-fast run did not complete: sibling was not canceled")
	}
	assert.Equal(t, state.StatusFailed, run.Nodes["a"].Status)
	assert.Equal(t, state.StatusFailed, run.Nodes["b"].Status)
}

func TestSchedulerResumeSkipsCompletedNodes(t *testing.T) {
	a := &fakeExecutor{}
	b := &fakeExecutor{}

	spec := newSpec(t, []testNode{
		{id: "a"},
		{id: "b", requires: []string{"a"}},
	}, 2, false)

	store := state.NewFileStore(t.TempDir())
	lockMgr := locks.NewManager("")
	emitter := observability.NewEmitter(t.TempDir(), telemetry.NoopLogger{}, nil)
	deps := &exec.Deps{BaseDir: t.TempDir(), Logger: telemetry.NoopLogger{}}
	executors := map[graph.NodeType]exec.Executor{graph.TypeAgentTask: chooseByNode(map[string]exec.Executor{"a": a, "b": b})}

	require.NoError(t, store.Save(&state.RunState{
		RunID:   "run-resume",
		GraphID: "proj",
		Nodes: map[string]state.NodeState{
			"a": {Status: state.StatusSucceeded, Attempts: 1},
			"b": {Status: state.StatusQueued},
		},
	}))

	sched := NewWithExecutors(spec, store, lockMgr, emitter, deps, telemetry.Noop(), Config{StagingURL: "http://127.0.0.1:3000"}, executors)
	run, err := sched.Run(context.Background(), "run-resume")
	require.NoError(t, err)

	assert.Equal(t, 0, a.calls, "a already succeeded before resume and must not re-run")
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, state.StatusSucceeded, run.Nodes["a"].Status)
	assert.Equal(t, state.StatusSucceeded, run.Nodes["b"].Status)
}

func TestSchedulerWritesStateAndEmitsGraphEvents(t *testing.T) {
	spec := newSpec(t, []testNode{
		{id: "server"},
		{id: "ui", requires: []string{"server"}},
		{id: "cvf", requires: []string{"ui"}},
	}, 3, false)

	stateDir := t.TempDir()
	emitDir := t.TempDir()
	store := state.NewFileStore(stateDir)
	emitter := observability.NewEmitter(emitDir, telemetry.NoopLogger{}, nil)
	deps := &exec.Deps{BaseDir: t.TempDir(), Logger: telemetry.NoopLogger{}}
	executors := map[graph.NodeType]exec.Executor{graph.TypeAgentTask: &fakeExecutor{}}

	sched := NewWithExecutors(spec, store, locks.NewManager(""), emitter, deps, telemetry.Noop(), Config{StagingURL: "http://127.0.0.1:3000"}, executors)
	run, err := sched.Run(context.Background(), "run-happy")
	require.NoError(t, err)

	for _, id := range []string{"server", "ui", "cvf"} {
		assert.Equal(t, state.StatusSucceeded, run.Nodes[id].Status)
	}

	_, statErr := os.Stat(filepath.Join(stateDir, "run-happy", "state.json"))
	assert.NoError(t, statErr, "state.json must exist after the run")

	log, err := os.ReadFile(filepath.Join(emitDir, "observability", "hooks.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(log), string(observability.GraphStart))
	assert.Contains(t, string(log), string(observability.GraphSucceeded))
}

// chooseByNode dispatches to a different fakeExecutor per node id, so a
// single registered exec.Executor can drive distinct per-node scripts.
func chooseByNode(byID map[string]exec.Executor) exec.Executor {
	return &routingExecutor{byID: byID}
}

type routingExecutor struct {
	byID map[string]exec.Executor
}

func (r *routingExecutor) DefaultTimeoutMs() int { return 5000 }

func (r *routingExecutor) Execute(ctx context.Context, in exec.Input, deps *exec.Deps) error {
	e, ok := r.byID[in.Node.ID]
	if !ok {
		return fmt.Errorf("no fake executor registered for node %q", in.Node.ID)
	}
	return e.Execute(ctx, in, deps)
}
