//go:build !windows

package command

import (
	"context"
	"testing"
	"time"

	"github.com/zk-tools/zk-watcher-go/pkg/errors"
	"github.com/zk-tools/zk-watcher-go/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger("", logging.LogFuncs{})
}

func TestRun_SuccessfulCommand(t *testing.T) {
	runner := NewRunner(testLogger())

	result := runner.Run(context.Background(), "true", 5*time.Second)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 0, result.ExitCode)
	assert.True(t, result.Healthy())
	assert.NoError(t, result.Err)
}

func TestRun_FailingCommand(t *testing.T) {
	runner := NewRunner(testLogger())

	result := runner.Run(context.Background(), "false", 5*time.Second)

	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, 1, result.ExitCode)
	assert.False(t, result.Healthy())
	assert.True(t, errors.IsCommandExitError(result.Err))
}

func TestRun_CommandWithArguments(t *testing.T) {
	runner := NewRunner(testLogger())

	result := runner.Run(context.Background(), "sleep 0", 5*time.Second)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRun_MissingBinary(t *testing.T) {
	runner := NewRunner(testLogger())

	result := runner.Run(context.Background(), "definitely-not-a-real-binary-zk", 5*time.Second)

	assert.Equal(t, StatusLaunchError, result.Status)
	assert.Equal(t, -1, result.ExitCode)
	assert.False(t, result.Healthy())
	assert.True(t, errors.IsCommandLaunchError(result.Err))
}

func TestRun_EmptyCommand(t *testing.T) {
	runner := NewRunner(testLogger())

	result := runner.Run(context.Background(), "   ", time.Second)

	assert.Equal(t, StatusLaunchError, result.Status)
	assert.True(t, errors.IsValidationError(result.Err))
}

func TestRun_Timeout(t *testing.T) {
	runner := NewRunner(testLogger())

	start := time.Now()
	result := runner.Run(context.Background(), "sleep 30", time.Second)
	elapsed := time.Since(start)

	assert.Equal(t, StatusTimedOut, result.Status)
	assert.False(t, result.Healthy())
	assert.True(t, errors.IsCommandTimeoutError(result.Err))

	// The call must return shortly after the timeout, not after the sleep:
	// the child is killed and reaped before Run returns.
	require.Less(t, elapsed, 5*time.Second)
	require.GreaterOrEqual(t, elapsed, time.Second)
}

func TestRun_ContextCancellation(t *testing.T) {
	runner := NewRunner(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := runner.Run(ctx, "sleep 30", time.Minute)
	elapsed := time.Since(start)

	assert.Equal(t, StatusTimedOut, result.Status)
	assert.True(t, errors.IsCancelledError(result.Err))
	require.Less(t, elapsed, 5*time.Second)
}

func TestRun_NonZeroExitCodePreserved(t *testing.T) {
	runner := NewRunner(testLogger())

	// 127 is the shell's "command not found" exit code.
	result := runner.Run(context.Background(), "sh -c no_such_command_zk", 5*time.Second)

	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, 127, result.ExitCode)
}
