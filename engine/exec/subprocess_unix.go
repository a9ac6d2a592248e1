//go:build !windows

package exec

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the child in its own process group so killTree
// can terminate the whole tree via a negative-pid signal, rather than only
// the immediate child.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// configureDetached starts a long-lived sibling process (the mock staging
// server) in its own process group, so killTree can later signal the whole
// group.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killTree sends SIGKILL to the process group rooted at cmd's pid.
func killTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

// unref releases the spawned process from this Go process's child
// bookkeeping; the server keeps running as an independent sibling.
func unref(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}
}
