// Package shellrun implements the synchronous shell command tool of
// spec.md §4.9: bounded-output, timeout-enforced execution of a single
// command through the platform shell or the user's login shell.
package shellrun

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/permission"
)

// maxCapturedBytes bounds how much of stdout/stderr each is retained,
// per spec.md §4.9's 10 MiB cap.
const maxCapturedBytes = 10 << 20

const defaultTimeout = 30 * time.Second

// Request describes one run_command invocation.
type Request struct {
	Command       string
	Cwd           string
	Env           map[string]string
	Timeout       time.Duration
	UseLoginShell bool
}

// Result is the outcome of a completed or timed-out command.
type Result struct {
	Stdout          string
	Stderr          string
	ExitCode        int
	StdoutTruncated bool
	StderrTruncated bool
	TimedOut        bool
}

// Runner executes shell commands against a fixed set of permitted roots.
type Runner struct {
	perm       *permission.Manager
	maxTimeout time.Duration
}

// New builds a Runner bound to perm. maxTimeout caps the timeout a
// caller may request; zero means no cap beyond defaultTimeout's use as
// the default.
func New(perm *permission.Manager, maxTimeout time.Duration) *Runner {
	return &Runner{perm: perm, maxTimeout: maxTimeout}
}

// Run executes req.Command, enforcing the permission boundary on cwd and
// on any absolute paths the command references, then the timeout and
// output caps. A non-zero exit status is reported as data in Result, not
// as a returned error; only setup failures (bad cwd, disallowed command,
// timeout, spawn failure) are returned as *mcperr.Error.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Command == "" {
		return nil, mcperr.New("shell.run", mcperr.ErrValidation).With("field", "command").With("reason", "must be non-empty")
	}
	if !r.perm.IsCommandAllowed(req.Command, req.Cwd) {
		return nil, mcperr.New("shell.run", mcperr.ErrPermission).With("command", req.Command)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if r.maxTimeout > 0 && timeout > r.maxTimeout {
		timeout = r.maxTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args := shellInvocation(req.Command, req.UseLoginShell)
	cmd := exec.CommandContext(runCtx, name, args...)
	if req.Cwd != "" {
		cmd.Dir = req.Cwd
	}
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), overlayEnv(req.Env)...)
	}
	// New process group so a timeout can terminate every descendant, not
	// just the shell itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		killProcessGroup(cmd.Process)
		return nil
	}

	var stdout, stderr capBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startErr := cmd.Start()
	if startErr != nil {
		return nil, mcperr.Wrap("shell.run", mcperr.ErrExternal, startErr)
	}

	waitErr := cmd.Wait()

	if runCtx.Err() == context.DeadlineExceeded {
		killProcessGroup(cmd.Process)
		return nil, mcperr.New("shell.run", mcperr.ErrTimeout).With("timeout_ms", timeout.Milliseconds())
	}

	result := &Result{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
	}

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, mcperr.Wrap("shell.run", mcperr.ErrExternal, waitErr)
	}

	return result, nil
}

// shellInvocation returns the executable and argv wrapping command in
// either the login shell (so ~/.bashrc-style profile files run and set
// up PATH) or the platform's plain shell.
func shellInvocation(command string, useLoginShell bool) (string, []string) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	if useLoginShell {
		return shell, []string{"-l", "-c", command}
	}
	return shell, []string{"-c", command}
}

func overlayEnv(overlay map[string]string) []string {
	out := make([]string, 0, len(overlay))
	for k, v := range overlay {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// killProcessGroup terminates the whole process group spawned for a
// timed-out command, not just the direct child, since the shell may
// have forked further children of its own.
func killProcessGroup(proc *os.Process) {
	if proc == nil {
		return
	}
	pgid, err := syscall.Getpgid(proc.Pid)
	if err != nil {
		_ = proc.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	time.Sleep(100 * time.Millisecond)
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}

// capBuffer is an io.Writer that retains at most maxCapturedBytes and
// flags truncation once the cap is reached, per spec.md §4.9.
type capBuffer struct {
	buf       bytes.Buffer
	truncated bool
}

func (c *capBuffer) Write(p []byte) (int, error) {
	remaining := maxCapturedBytes - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}

func (c *capBuffer) String() string { return c.buf.String() }
