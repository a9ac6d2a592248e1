package exec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarm1.dev/core/graph"
	"swarm1.dev/core/swarmerr"
	"swarm1.dev/core/telemetry"
)

func TestRunSubprocessSuccess(t *testing.T) {
	err := runSubprocess(context.Background(), nil, "sh", "-c", "exit 0")
	assert.NoError(t, err)
}

func TestRunSubprocessNonZeroExitIsCommandFailed(t *testing.T) {
	err := runSubprocess(context.Background(), nil, "sh", "-c", "echo boom 1>&2; exit 7")
	require.Error(t, err)
	e, ok := swarmerr.As(err)
	require.True(t, ok)
	assert.Equal(t, swarmerr.CommandFailed, e.Kind)
	assert.Equal(t, 7, e.ExitCode)
	assert.Contains(t, e.Stderr, "boom")
}

func TestRunSubprocessMissingBinaryIsCommandError(t *testing.T) {
	err := runSubprocess(context.Background(), nil, "swarm1-definitely-not-a-real-binary")
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.CommandError))
}

func TestRunSubprocessTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := runSubprocess(ctx, nil, "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.Timeout))
}

func TestPlaywrightExecutorRejectsWrongParams(t *testing.T) {
	err := PlaywrightExecutor{}.Execute(context.Background(), Input{
		Node:   graph.Node{ID: "n1", Type: graph.TypePlaywright},
		Params: graph.CVFParams{},
	}, &Deps{})
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.InvalidParams))
}

func TestLighthouseExecutorWritesOutputDirBeforeRunning(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "report.json")

	err := LighthouseExecutor{}.Execute(context.Background(), Input{
		Node:   graph.Node{ID: "n1", Type: graph.TypeLighthouse},
		Params: graph.LighthouseParams{URL: "${STAGING_URL}/", Out: out},
		Env:    map[string]string{"STAGING_URL": "http://127.0.0.1:3000"},
	}, &Deps{LighthouseScript: "", PlaywrightBin: "", Logger: telemetry.NoopLogger{}})
	// The script "node scripts/perf_lighthouse.mjs" doesn't exist in the test
	// environment, so this fails as COMMAND_ERROR/COMMAND_FAILED — but the
	// output directory must exist regardless, proving it's created up front.
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Dir(out))
	assert.NoError(t, statErr)
}

func TestAgentTaskExecutorWritesResultCard(t *testing.T) {
	dir := t.TempDir()
	err := AgentTaskExecutor{}.Execute(context.Background(), Input{
		Node:   graph.Node{ID: "n1", Type: graph.TypeAgentTask},
		Params: graph.AgentTaskParams{Prompt: "summarize"},
		RunID:  "run-1",
	}, &Deps{BaseDir: dir})
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "agents", "n1", "result.json"))
	assert.NoError(t, statErr)
}

func TestPackageExecutorFailsWithoutBuilder(t *testing.T) {
	err := PackageExecutor{}.Execute(context.Background(), Input{
		Node:   graph.Node{ID: "n1", Type: graph.TypePackage},
		Params: graph.PackageParams{AUV: "AUV-0001"},
	}, &Deps{})
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.PackageFailed))
}

func TestReportExecutorInvokesBuilder(t *testing.T) {
	called := false
	err := ReportExecutor{}.Execute(context.Background(), Input{
		Node:   graph.Node{ID: "n1", Type: graph.TypeReport},
		Params: graph.ReportParams{AUV: "AUV-0001", OutDir: "out"},
	}, &Deps{ReportBuilder: func(auv, outDir string) (map[string]any, error) {
		called = true
		assert.Equal(t, "AUV-0001", auv)
		return map[string]any{"ok": true}, nil
	}})
	require.NoError(t, err)
	assert.True(t, called)
}

