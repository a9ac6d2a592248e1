package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarm1.dev/core/swarmerr"
)

func newTestRun(runID string) *RunState {
	return &RunState{
		RunID:     runID,
		GraphID:   "g1",
		StartedAt: time.Now(),
		Nodes: map[string]NodeState{
			"a": {Status: StatusSucceeded, Attempts: 1},
			"b": {Status: StatusRunning, Attempts: 1},
		},
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	run := newTestRun("run-001")

	require.NoError(t, store.Save(run))

	loaded, err := store.Load("run-001")
	require.NoError(t, err)
	assert.Equal(t, run.GraphID, loaded.GraphID)
	assert.Equal(t, StatusSucceeded, loaded.Nodes["a"].Status)
}

func TestFileStoreLoadMissingRunIsFileNotFound(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Load("does-not-exist")
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.FileNotFound))
}

func TestResumeReclassifiesRunningAsFailedCrash(t *testing.T) {
	store := NewFileStore(t.TempDir())
	run := newTestRun("run-002")
	require.NoError(t, store.Save(run))

	resumed, crashed, err := Resume(store, "run-002")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, crashed)
	assert.Equal(t, StatusFailed, resumed.Nodes["b"].Status)
	require.NotNil(t, resumed.Nodes["b"].Error)
	assert.Equal(t, "crashed during previous run", *resumed.Nodes["b"].Error)
	// Succeeded nodes are not re-executed: their status survives resume.
	assert.Equal(t, StatusSucceeded, resumed.Nodes["a"].Status)

	reloaded, err := store.Load("run-002")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, reloaded.Nodes["b"].Status)
}

// TestResumeIdempotenceProperty verifies resume idempotence for the
// file store directly: resuming twice in a row never re-flips a node that
// is already terminal (succeeded/failed), matching "no node succeeds
// twice."
func TestResumeIdempotenceProperty(t *testing.T) {
	store := NewFileStore(t.TempDir())
	run := newTestRun("run-003")
	require.NoError(t, store.Save(run))

	first, _, err := Resume(store, "run-003")
	require.NoError(t, err)

	second, crashedAgain, err := Resume(store, "run-003")
	require.NoError(t, err)
	assert.Empty(t, crashedAgain, "a second resume finds nothing still running")
	assert.Equal(t, first.Nodes, second.Nodes)
}
