package engine

import (
	"context"
	"sync"
	"time"

	"swarm1.dev/core/engine/exec"
	"swarm1.dev/core/engine/locks"
	"swarm1.dev/core/engine/retryx"
	"swarm1.dev/core/engine/state"
	"swarm1.dev/core/graph"
	"swarm1.dev/core/observability"
	"swarm1.dev/core/swarmerr"
	"swarm1.dev/core/telemetry"
)

// Scheduler drives a loaded graph.Spec to completion: it computes
// the ready set, dispatches up to the graph's concurrency limit, reaps the
// first completion of any in-flight node, and persists durable state after
// every transition. Completion reaping uses a single shared channel that
// every dispatched node's goroutine writes to exactly once, so the loop
// reacts to the first completion of any in-flight node.
type Scheduler struct {
	spec      *graph.Spec
	store     state.Store
	locks     *locks.Manager
	emitter   *observability.Emitter
	executors map[graph.NodeType]exec.Executor
	execDeps  *exec.Deps
	telemetry telemetry.Set
	cfg       Config

	predecessors map[string][]string

	stateMu sync.Mutex
	runID   string
}

// New constructs a Scheduler for spec using the default production
// executor set (DefaultExecutors).
func New(spec *graph.Spec, store state.Store, lockMgr *locks.Manager, emitter *observability.Emitter, execDeps *exec.Deps, tel telemetry.Set, cfg Config) *Scheduler {
	return NewWithExecutors(spec, store, lockMgr, emitter, execDeps, tel, cfg, DefaultExecutors())
}

// DefaultExecutors returns the production executor set, one per node
// type.
func DefaultExecutors() map[graph.NodeType]exec.Executor {
	return map[graph.NodeType]exec.Executor{
		graph.TypeServer:     exec.ServerExecutor{},
		graph.TypePlaywright: exec.PlaywrightExecutor{},
		graph.TypeLighthouse: exec.LighthouseExecutor{},
		graph.TypeCVF:        exec.CVFExecutor{},
		graph.TypeAgentTask:  exec.AgentTaskExecutor{},
		graph.TypePackage:    exec.PackageExecutor{},
		graph.TypeReport:     exec.ReportExecutor{},
	}
}

// NewWithExecutors is New with an injectable executor map, so tests can
// substitute fakes without spawning real subprocesses.
func NewWithExecutors(spec *graph.Spec, store state.Store, lockMgr *locks.Manager, emitter *observability.Emitter, execDeps *exec.Deps, tel telemetry.Set, cfg Config, executors map[graph.NodeType]exec.Executor) *Scheduler {
	return &Scheduler{
		spec:         spec,
		store:        store,
		locks:        lockMgr,
		emitter:      emitter,
		executors:    executors,
		execDeps:     execDeps,
		telemetry:    tel,
		cfg:          cfg,
		predecessors: buildPredecessors(spec),
	}
}

func buildPredecessors(spec *graph.Spec) map[string][]string {
	preds := make(map[string][]string, len(spec.Nodes))
	for _, n := range spec.Nodes {
		for _, succ := range spec.Successors(n.ID) {
			preds[succ] = append(preds[succ], n.ID)
		}
	}
	return preds
}

type nodeResult struct {
	id  string
	err error
}

// Run executes spec under runID to completion, resuming from whatever
// state the store already holds for runID. It returns the final
// RunState. Apart from a failure to load or initialize the run's stored
// state, the only error it returns itself (as opposed to recording a node
// as failed) is DEADLOCK, when the graph stalls with no ready nodes,
// nothing running, and no recorded failure to explain why.
func (s *Scheduler) Run(ctx context.Context, runID string) (*state.RunState, error) {
	s.runID = runID

	run, crashed, err := s.resumeOrInit(runID)
	if err != nil {
		return nil, err
	}
	for _, id := range crashed {
		s.telemetry.Logger.Warn(ctx, "engine: node reclassified failed on resume", "run_id", runID, "node_id", id)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	s.emitter.Emit(observability.Event{
		Timestamp: time.Now().UTC(),
		EventType: observability.GraphStart,
		Module:    "engine",
		RunID:     runID,
		Fields:    map[string]any{"project_id": s.spec.ProjectID},
	})

	completed := map[string]bool{}
	failed := map[string]bool{}
	for id, ns := range run.Nodes {
		switch ns.Status {
		case state.StatusSucceeded:
			completed[id] = true
		case state.StatusFailed:
			failed[id] = true
		}
	}

	running := map[string]bool{}
	resultCh := make(chan nodeResult)
	total := len(s.spec.Nodes)
	var runErr error

	for len(completed)+len(failed) < total {
		ready := s.readySet(completed, failed, running)
		slots := s.spec.EffectiveConcurrency() - len(running)
		if slots < 0 {
			slots = 0
		}
		if slots > len(ready) {
			slots = len(ready)
		}
		dispatchable := ready[:slots]

		if len(dispatchable) == 0 && len(running) == 0 {
			if len(failed) > 0 {
				break // some nodes unreachable due to an earlier failure; drain as-is
			}
			runErr = swarmerr.New(swarmerr.Deadlock, "no dispatchable nodes and none running on a graph with unfinished nodes")
			break
		}

		for _, id := range dispatchable {
			running[id] = true
			node := *mustNode(s.spec, id)
			go s.dispatch(runCtx, run, node, resultCh)
		}

		if len(running) == 0 {
			continue
		}
		res := <-resultCh
		delete(running, res.id)
		if res.err != nil {
			failed[res.id] = true
			if s.spec.FailFast {
				cancelRun()
			}
		} else {
			completed[res.id] = true
		}
	}

	// Finalizer: runs on every exit path from the loop above, including the
	// deadlock one — lock cleanup, server teardown, state flush, and the
	// terminal event.
	s.teardown()

	now := time.Now().UTC()
	s.stateMu.Lock()
	run.FinishedAt = &now
	saveErr := s.store.Save(run)
	s.stateMu.Unlock()
	if saveErr != nil {
		s.telemetry.Logger.Warn(ctx, "engine: failed to persist final run state", "run_id", runID, "err", saveErr.Error())
	}

	switch {
	case runErr != nil:
		s.emitter.Emit(observability.Event{Timestamp: now, EventType: observability.GraphError, Module: "engine", RunID: runID, Fields: map[string]any{"error": runErr.Error()}})
		return nil, runErr
	case len(failed) == 0:
		s.emitter.Emit(observability.Event{Timestamp: now, EventType: observability.GraphSucceeded, Module: "engine", RunID: runID})
	default:
		ids := make([]string, 0, len(failed))
		for id := range failed {
			ids = append(ids, id)
		}
		s.emitter.Emit(observability.Event{Timestamp: now, EventType: observability.GraphFailed, Module: "engine", RunID: runID, Fields: map[string]any{"failed_nodes": ids}})
	}
	return run, nil
}

func mustNode(spec *graph.Spec, id string) *graph.Node {
	n, _ := spec.NodeByID(id)
	return n
}

// readySet returns the ids of nodes that are neither completed, failed, nor
// currently running, and whose every predecessor (the union of requires
// and edges, per graph.Spec.Successors) has completed.
// Iteration follows spec.Nodes' declaration order so dispatch order is
// deterministic for a given graph and completion history.
func (s *Scheduler) readySet(completed, failed, running map[string]bool) []string {
	var ready []string
	for _, n := range s.spec.Nodes {
		id := n.ID
		if completed[id] || failed[id] || running[id] {
			continue
		}
		blocked := false
		for _, p := range s.predecessors[id] {
			if !completed[p] {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, id)
		}
	}
	return ready
}

// resumeOrInit loads and crash-recovers prior state for runID via
// state.Resume, or initializes a fresh all-queued RunState when none
// exists. On a genuine resume it also garbage-collects stale lock hint
// files, which are read only here and never consulted for acquisition.
func (s *Scheduler) resumeOrInit(runID string) (*state.RunState, []string, error) {
	if run, crashed, err := state.Resume(s.store, runID); err == nil {
		if removed, gcErr := s.locks.GCStaleHints(); gcErr == nil {
			for _, r := range removed {
				s.telemetry.Logger.Warn(context.Background(), "engine: removed stale lock hint file", "resource", r)
			}
		}
		return run, crashed, nil
	}

	run := &state.RunState{
		RunID:     runID,
		GraphID:   s.spec.ProjectID,
		StartedAt: time.Now().UTC(),
		Nodes:     make(map[string]state.NodeState, len(s.spec.Nodes)),
	}
	for _, n := range s.spec.Nodes {
		run.Nodes[n.ID] = state.NodeState{Status: state.StatusQueued}
	}
	if err := s.store.Save(run); err != nil {
		return nil, nil, err
	}
	return run, nil, nil
}

// dispatch runs one node's full retry lifecycle and reports its terminal
// outcome on resultCh exactly once, regardless of how many attempts it took.
func (s *Scheduler) dispatch(ctx context.Context, run *state.RunState, n graph.Node, resultCh chan<- nodeResult) {
	err := s.executeWithRetries(ctx, run, n)
	resultCh <- nodeResult{id: n.ID, err: err}
}

// executeWithRetries runs n, classifying each failure via retryx.Classify
// and requeuing with backoff until the node succeeds, the error is
// permanent, or retries.max is exhausted. A node's persisted Attempts
// count is the total number of executions taken (retries.max=2 yields
// attempts=3 on exhaustion).
func (s *Scheduler) executeWithRetries(ctx context.Context, run *state.RunState, n graph.Node) error {
	retriesMax := n.EffectiveRetries(s.spec.Defaults)
	backoffMs := s.spec.Defaults.BackoffMs
	attempts := s.currentAttempts(run, n.ID)
	firstAttempt := true

	for {
		s.transition(run, n.ID, func(ns *state.NodeState) {
			now := time.Now().UTC()
			ns.Status = state.StatusRunning
			ns.Attempts = attempts
			if ns.StartedAt == nil {
				ns.StartedAt = &now
			}
			ns.Error = nil
		})
		if firstAttempt {
			s.emitNode(observability.NodeStarted, run.RunID, n.ID, nil)
			firstAttempt = false
		}

		execErr := s.runOnce(ctx, n)
		finalAttempts := attempts + 1

		if execErr == nil {
			now := time.Now().UTC()
			s.transition(run, n.ID, func(ns *state.NodeState) {
				ns.Status = state.StatusSucceeded
				ns.Attempts = finalAttempts
				ns.FinishedAt = &now
			})
			s.emitNode(observability.NodeSucceeded, run.RunID, n.ID, nil)
			return nil
		}

		decision := retryx.Classify(execErr.Error(), attempts, retriesMax, backoffMs)
		if decision.Retry {
			msg := execErr.Error()
			s.transition(run, n.ID, func(ns *state.NodeState) {
				ns.Status = state.StatusQueued
				ns.Attempts = finalAttempts
				ns.Error = &msg
			})
			s.emitNode(observability.NodeRetry, run.RunID, n.ID, execErr)

			select {
			case <-time.After(decision.WaitFor):
				attempts = finalAttempts
				continue
			case <-ctx.Done():
				return s.failNode(run, n.ID, ctx.Err(), finalAttempts)
			}
		}

		return s.failNode(run, n.ID, execErr, finalAttempts)
	}
}

func (s *Scheduler) failNode(run *state.RunState, nodeID string, cause error, attempts int) error {
	now := time.Now().UTC()
	msg := cause.Error()
	s.transition(run, nodeID, func(ns *state.NodeState) {
		ns.Status = state.StatusFailed
		ns.Attempts = attempts
		ns.FinishedAt = &now
		ns.Error = &msg
	})
	s.emitNode(observability.NodeFailed, run.RunID, nodeID, cause)
	return cause
}

// runOnce acquires n's resource locks, resolves its typed params and
// timeout, and invokes the registered executor for n.Type — releasing the
// locks on every exit path.
func (s *Scheduler) runOnce(ctx context.Context, n graph.Node) error {
	if err := s.locks.Acquire(ctx, n.ID, n.Resources); err != nil {
		return err
	}
	defer s.locks.Release(n.ID, n.Resources)

	executor, ok := s.executors[n.Type]
	if !ok {
		return swarmerr.Newf(swarmerr.UnknownType, "node %q has no registered executor for type %q", n.ID, n.Type)
	}
	params, err := graph.ParamsFor(n)
	if err != nil {
		return err
	}

	timeoutMs := n.EffectiveTimeoutMs(s.spec.Defaults, executor.DefaultTimeoutMs())
	nodeCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	return executor.Execute(nodeCtx, exec.Input{
		Node:   n,
		Params: params,
		Env:    s.mergedEnv(n),
		RunID:  s.runID,
	}, s.execDeps)
}

// teardown releases every lock this run holds and stops a mock server this
// run started, on every exit path from Run.
func (s *Scheduler) teardown() {
	s.locks.ReleaseAll()
	if s.execDeps != nil && s.execDeps.Server != nil {
		s.execDeps.Server.Teardown()
	}
}

func (s *Scheduler) currentAttempts(run *state.RunState, nodeID string) int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return run.Nodes[nodeID].Attempts
}

// transition mutates one node's persisted state under stateMu and saves
// the whole RunState, so every transition is durable before the scheduler
// proceeds.
func (s *Scheduler) transition(run *state.RunState, nodeID string, mutate func(*state.NodeState)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	ns := run.Nodes[nodeID]
	mutate(&ns)
	run.Nodes[nodeID] = ns
	if err := s.store.Save(run); err != nil {
		s.telemetry.Logger.Warn(context.Background(), "engine: failed to persist state transition", "run_id", run.RunID, "node_id", nodeID, "err", err.Error())
	}
}

func (s *Scheduler) emitNode(evt observability.EventType, runID, nodeID string, cause error) {
	fields := map[string]any{"node_id": nodeID}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	s.emitter.Emit(observability.Event{Timestamp: time.Now().UTC(), EventType: evt, Module: "engine", RunID: runID, Fields: fields})
}
