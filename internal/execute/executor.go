// Package execute runs approved shell commands in an isolated child process
// under a hard wall-clock timeout.
//
// The child runs through the host's command interpreter with the caller's own
// user identity and privileges. There is no privilege negotiation and no
// stdin: execution is strictly single-command and non-interactive.
package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds command execution when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrSpawn reports that the interpreter could not be started at all. It is
// distinct from a command that ran and exited nonzero.
var ErrSpawn = errors.New("shell could not be started")

// Outcome is the result of one execution. ExitCode is nil when the process
// was forcibly terminated on timeout: there is no meaningful exit status.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode *int
	TimedOut bool
	Duration time.Duration
}

// Executor spawns shell commands. The zero value is not usable; construct
// with New.
type Executor struct {
	shell   string
	workdir string
	timeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithShell overrides the command interpreter path.
func WithShell(shell string) Option {
	return func(e *Executor) {
		if shell != "" {
			e.shell = shell
		}
	}
}

// WithWorkdir sets the working directory for spawned commands.
func WithWorkdir(dir string) Option {
	return func(e *Executor) { e.workdir = dir }
}

// WithTimeout sets the hard wall-clock bound, measured from spawn to natural
// exit or forced termination. It is not extended by output activity.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an Executor with the platform default shell and DefaultTimeout
// unless overridden.
func New(opts ...Option) *Executor {
	e := &Executor{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	if e.shell == "" {
		e.shell = defaultShell()
	}
	return e
}

// Timeout returns the configured wall-clock bound.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute runs text through the interpreter and captures stdout and stderr
// independently until exit or timeout. On timeout the entire process group is
// killed so descendants cannot outlive the request, ExitCode is nil, and the
// output captured so far is still returned. A non-nil error means the shell
// never ran (ErrSpawn) or ctx was cancelled; command failure is reported
// through ExitCode, not through the error.
func (e *Executor) Execute(ctx context.Context, text string) (*Outcome, error) {
	name, args := shellCommand(e.shell, text)
	cmd := exec.Command(name, args...)
	cmd.Dir = e.workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
		killTree(cmd)
		// Reap the child. The whole group received SIGKILL, so the output
		// pipes close and Wait returns.
		<-done
	case <-ctx.Done():
		killTree(cmd)
		<-done
		return nil, ctx.Err()
	}

	out := &Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: timedOut,
		Duration: time.Since(start),
	}
	if timedOut {
		return out, nil
	}

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("%w: %v", ErrSpawn, waitErr)
		}
		code = exitErr.ExitCode()
	}
	out.ExitCode = &code
	return out, nil
}
