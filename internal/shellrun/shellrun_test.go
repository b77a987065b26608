package shellrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/permission"
)

func newTestRunner(t *testing.T, maxTimeout time.Duration) (*Runner, string) {
	t.Helper()
	root := t.TempDir()
	perm, err := permission.New([]string{root})
	require.NoError(t, err)
	return New(perm, maxTimeout), root
}

func TestRunCapturesStdout(t *testing.T) {
	r, root := newTestRunner(t, 0)
	result, err := r.Run(context.Background(), Request{Command: "echo hello", Cwd: root})
	require.NoError(t, err)
	require.Contains(t, result.Stdout, "hello")
	require.Equal(t, 0, result.ExitCode)
}

func TestRunReportsNonZeroExitAsData(t *testing.T) {
	r, root := newTestRunner(t, 0)
	result, err := r.Run(context.Background(), Request{Command: "exit 7", Cwd: root})
	require.NoError(t, err)
	require.Equal(t, 7, result.ExitCode)
}

func TestRunRejectsEmptyCommand(t *testing.T) {
	r, root := newTestRunner(t, 0)
	_, err := r.Run(context.Background(), Request{Command: "", Cwd: root})
	require.Error(t, err)
	require.True(t, errors.Is(err, mcperr.ErrValidation))
}

func TestRunRejectsDestructiveCommand(t *testing.T) {
	r, root := newTestRunner(t, 0)
	_, err := r.Run(context.Background(), Request{Command: "rm -rf /", Cwd: root})
	require.Error(t, err)
	require.True(t, errors.Is(err, mcperr.ErrPermission))
}

func TestRunRejectsCwdOutsideRoots(t *testing.T) {
	r, _ := newTestRunner(t, 0)
	_, err := r.Run(context.Background(), Request{Command: "echo hi", Cwd: "/etc"})
	require.Error(t, err)
	require.True(t, errors.Is(err, mcperr.ErrPermission))
}

func TestRunTimesOut(t *testing.T) {
	r, root := newTestRunner(t, 0)
	_, err := r.Run(context.Background(), Request{Command: "sleep 5", Cwd: root, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	require.True(t, errors.Is(err, mcperr.ErrTimeout))

	var domainErr *mcperr.Error
	require.True(t, errors.As(err, &domainErr))
	require.Equal(t, int64(50), domainErr.Context["timeout_ms"])
}

func TestRunRequestedTimeoutCappedByConfiguredMax(t *testing.T) {
	r, root := newTestRunner(t, 20*time.Millisecond)
	start := time.Now()
	_, err := r.Run(context.Background(), Request{Command: "sleep 5", Cwd: root, Timeout: 5 * time.Second})
	elapsed := time.Since(start)

	require.Error(t, err)
	require.True(t, errors.Is(err, mcperr.ErrTimeout))
	require.Less(t, elapsed, 2*time.Second, "the configured max timeout should have capped the requested one")
}

func TestRunEnvOverlayIsVisibleToCommand(t *testing.T) {
	r, root := newTestRunner(t, 0)
	result, err := r.Run(context.Background(), Request{
		Command: "echo $GREETING",
		Cwd:     root,
		Env:     map[string]string{"GREETING": "howdy"},
	})
	require.NoError(t, err)
	require.Contains(t, result.Stdout, "howdy")
}

func TestCapBufferTruncatesAtLimit(t *testing.T) {
	var buf capBuffer
	chunk := make([]byte, maxCapturedBytes)
	n, err := buf.Write(chunk)
	require.NoError(t, err)
	require.Equal(t, len(chunk), n)
	require.False(t, buf.truncated)

	n, err = buf.Write([]byte("overflow"))
	require.NoError(t, err)
	require.Equal(t, len("overflow"), n)
	require.True(t, buf.truncated)
	require.Equal(t, maxCapturedBytes, buf.buf.Len())
}
