//go:build windows

package command

import (
	"os"
	"os/exec"
)

// setupProcessAttributes is a no-op on Windows; there is no process group
// equivalent to signal as a whole.
func setupProcessAttributes(cmd *exec.Cmd) {
}

// killProcess terminates the child process by PID.
func killProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}
