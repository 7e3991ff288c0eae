package hooks

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"golang.org/x/sync/semaphore"
)

// MaxCaptureBytes bounds how much of a hook's stdout or stderr is retained
// in its report. Output past the bound is read and discarded so the child
// never blocks on a full pipe.
const MaxCaptureBytes = 64 * 1024

// DefaultMaxConcurrent bounds how many hook processes run at once across
// all dispatches sharing one runner.
const DefaultMaxConcurrent = 4

// RunResult is the raw outcome of one hook process.
type RunResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
}

// Runner executes a hook command with the given stdin. It is the seam
// between the dispatcher and the process layer; tests substitute their own.
type Runner interface {
	Run(ctx context.Context, spec Spec, stdin []byte) (RunResult, error)
}

// ExecRunner runs hooks as real subprocesses. A weighted semaphore bounds
// the number of concurrently live hook processes.
type ExecRunner struct {
	// Dir is the working directory for hook processes. Empty inherits the
	// caller's.
	Dir string
	// Env overrides the process environment when non-nil.
	Env []string

	sem *semaphore.Weighted
}

// NewExecRunner returns a runner allowing at most maxConcurrent live hook
// processes. Non-positive maxConcurrent uses DefaultMaxConcurrent.
func NewExecRunner(maxConcurrent int64) *ExecRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &ExecRunner{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Run executes the spec's argv with stdin piped in, enforcing the spec's
// timeout. The error return covers spawn and wait failures; a non-zero exit
// is not an error, it is reported through RunResult.ExitCode.
func (r *ExecRunner) Run(ctx context.Context, spec Spec, stdin []byte) (RunResult, error) {
	if len(spec.Argv) == 0 {
		return RunResult{ExitCode: -1}, errors.New("hook spec has empty argv")
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return RunResult{ExitCode: -1}, err
	}
	defer r.sem.Release(1)

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = r.Dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr boundedBuffer
	stdout.limit = MaxCaptureBytes
	stderr.limit = MaxCaptureBytes
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		TimedOut: errors.Is(runCtx.Err(), context.DeadlineExceeded),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		err = nil
	default:
		// Spawn failure or kill before exec.
		res.ExitCode = -1
	}
	return res, err
}

// boundedBuffer retains the first limit bytes written and swallows the
// rest, tracking nothing beyond the retained prefix.
type boundedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *boundedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
