package command

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/zk-tools/zk-watcher-go/pkg/errors"
	"github.com/zk-tools/zk-watcher-go/pkg/logging"
)

// ExitStatus classifies the outcome of a single bounded command run.
type ExitStatus string

const (
	StatusSuccess     ExitStatus = "success"
	StatusFailure     ExitStatus = "failure"
	StatusTimedOut    ExitStatus = "timed_out"
	StatusLaunchError ExitStatus = "launch_error"
)

// Result is the outcome of one command invocation. Only the exit status
// matters for health purposes; Err carries diagnostic detail.
type Result struct {
	Status   ExitStatus
	ExitCode int
	Duration time.Duration
	Err      error
}

// Healthy reports whether the run counts as a passing health check.
func (r Result) Healthy() bool {
	return r.Status == StatusSuccess
}

type Runner struct {
	logger logging.Logger
}

func NewRunner(logger logging.Logger) *Runner {
	return &Runner{
		logger: logger,
	}
}

// Run executes commandLine as a child process and waits for it to finish,
// enforcing a hard wall-clock timeout. On expiry the process group is
// killed (best-effort) and then reaped with an unbounded wait, so no child
// process outlives the call under either outcome.
//
// Standard output and standard error are deliberately discarded. Piping
// them into the parent risks a deadlock once the child fills the OS pipe
// buffer, and the exit code is the only result we need.
func (r *Runner) Run(ctx context.Context, commandLine string, timeout time.Duration) Result {
	start := time.Now()

	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return Result{
			Status:   StatusLaunchError,
			ExitCode: -1,
			Duration: time.Since(start),
			Err:      errors.NewValidationError("command is empty", nil),
		}
	}

	cmd := exec.Command(fields[0], fields[1:]...)
	setupProcessAttributes(cmd)

	r.logger.Debugf("[%s] started...", commandLine)

	if err := cmd.Start(); err != nil {
		r.logger.Warnf("Failed to run: %v", err)
		return Result{
			Status:   StatusLaunchError,
			ExitCode: -1,
			Duration: time.Since(start),
			Err:      errors.NewCommandLaunchError("failed to start command", err).WithContext("command", commandLine),
		}
	}

	// Wait on its own goroutine so the timeout can be enforced externally.
	waitChan := make(chan error, 1)
	go func() {
		waitChan <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case waitErr := <-waitChan:
		return r.resultFromWait(commandLine, waitErr, time.Since(start))

	case <-timer.C:
		r.logger.Debugf("[%s] taking too long to respond, terminating.", commandLine)
		r.kill(cmd)
		<-waitChan // unbounded wait to reap the process
		return Result{
			Status:   StatusTimedOut,
			ExitCode: -1,
			Duration: time.Since(start),
			Err:      errors.NewCommandTimeoutError("command exceeded timeout", nil).WithContext("command", commandLine).WithContext("timeout", timeout.String()),
		}

	case <-ctx.Done():
		r.logger.Debugf("[%s] cancelled, terminating.", commandLine)
		r.kill(cmd)
		<-waitChan
		return Result{
			Status:   StatusTimedOut,
			ExitCode: -1,
			Duration: time.Since(start),
			Err:      errors.NewCancelledError("command run cancelled", ctx.Err()).WithContext("command", commandLine),
		}
	}
}

// kill forcibly terminates the child process tree. Termination failures
// are swallowed: the process may already be gone, and the subsequent wait
// reaps it either way.
func (r *Runner) kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := killProcess(cmd.Process.Pid); err != nil {
		r.logger.Debugf("Failed to terminate process, PID: %d, error: %v", cmd.Process.Pid, err)
	}
}

func (r *Runner) resultFromWait(commandLine string, waitErr error, duration time.Duration) Result {
	if waitErr == nil {
		r.logger.Debugf("[%s] finished... returning 0", commandLine)
		return Result{
			Status:   StatusSuccess,
			ExitCode: 0,
			Duration: duration,
		}
	}

	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		r.logger.Debugf("[%s] finished... returning %d", commandLine, code)
		return Result{
			Status:   StatusFailure,
			ExitCode: code,
			Duration: duration,
			Err:      errors.NewCommandExitError("command returned a failed exit code", waitErr).WithContext("command", commandLine).WithContext("exit_code", code),
		}
	}

	// Wait itself failed; the process ran but the exit code is unknown.
	r.logger.Warnf("Failed to wait for command: %v", waitErr)
	return Result{
		Status:   StatusFailure,
		ExitCode: -1,
		Duration: duration,
		Err:      errors.NewInternalError("failed to wait for command", waitErr).WithContext("command", commandLine),
	}
}
