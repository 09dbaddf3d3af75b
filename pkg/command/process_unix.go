//go:build !windows

package command

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes places the child in its own process group so the
// whole check process tree can be signalled at once, not just the
// immediate child.
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcess sends SIGKILL to the process group (negative PID).
func killProcess(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
