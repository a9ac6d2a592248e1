package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"swarm1.dev/core/swarmerr"
)

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// runSubprocess executes name with args under ctx's deadline, applying the
// platform process-group configuration from configureProcessGroup so a
// timeout or cancellation reliably kills the whole process tree rather than
// the single shim process.
//
// Exit 0 is success. A nonzero exit is COMMAND_FAILED, carrying
// stdout/stderr/exit code. A context deadline is TIMEOUT. Any other failure
// to start or wait on the process (binary not found, fork failure) is
// COMMAND_ERROR.
func runSubprocess(ctx context.Context, env map[string]string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = envSlice(env)
	configureProcessGroup(cmd)
	cmd.Cancel = func() error { return killTree(cmd) }
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return swarmerr.Newf(swarmerr.Timeout, "%s timed out", name)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return swarmerr.Subprocess(strings.TrimSpace(name+" exited non-zero"), stdout.String(), stderr.String(), exitErr.ExitCode())
	}
	return swarmerr.Wrap(swarmerr.CommandError, "failed to run "+name, err)
}
