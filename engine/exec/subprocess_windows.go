//go:build windows

package exec

import "os/exec"

// configureProcessGroup is a no-op on Windows: there is no POSIX process
// group to join.
func configureProcessGroup(cmd *exec.Cmd) {}

// configureDetached is a no-op on Windows for the same reason.
func configureDetached(cmd *exec.Cmd) {}

// killTree kills the process directly; Windows has no portable
// process-group kill equivalent to POSIX's negative-pid signal.
func killTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// unref releases the spawned process from this Go process's child
// bookkeeping.
func unref(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}
}
