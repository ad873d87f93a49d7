// Package proc runs external tools under a scoped lifetime. Every process
// started through a Runner has its output fully drained, is sent SIGTERM
// when its context ends, is killed if it outlives the grace period, and is
// always waited on, so no code path can leave a zombie behind.
package proc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrToolNotFound is returned when the requested executable is not on PATH.
var ErrToolNotFound = errors.New("proc: tool not found")

// MaxLineBytes bounds one streamed stdout line. Longer lines are dropped
// and the stream carries on with the next one.
const MaxLineBytes = 1024 * 1024

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string
	Dir  string // working directory; empty means the current one
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Name, c.Args)
}

// Result is the drained output of a finished process. A non-zero ExitCode is
// not an error: callers decide what a given tool's exit status means.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// StreamResult summarizes a streamed run.
type StreamResult struct {
	Lines    int    // lines delivered to the callback
	Stopped  bool   // the callback asked to stop before EOF
	Skipped  int    // lines longer than MaxLineBytes, dropped unseen
	ExitCode int    // meaningless when Stopped is true
	Stderr   []byte // captured standard error
}

// Runner starts external processes.
// Implementations: ExecRunner (production), MockRunner (testing).
type Runner interface {
	// Run executes the command to completion and returns its output.
	// The error is non-nil only if the process could not be started or
	// ctx ended before it exited.
	Run(ctx context.Context, cmd Command) (*Result, error)

	// Stream delivers stdout line by line to fn. When fn returns false the
	// process is terminated and reaped, and Stream returns with Stopped set.
	Stream(ctx context.Context, cmd Command, fn func(line string) bool) (*StreamResult, error)

	// LookPath reports where the named tool lives, or ErrToolNotFound.
	LookPath(name string) (string, error)
}

// Options configures an ExecRunner.
type Options struct {
	// MaxProcesses bounds concurrently running children. Zero means 4.
	MaxProcesses int64

	// KillGrace is how long a terminated child may linger before SIGKILL.
	// Zero means 100ms.
	KillGrace time.Duration

	Logger *slog.Logger
}

// Compile-time check.
var _ Runner = (*ExecRunner)(nil)

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	sem       *semaphore.Weighted
	killGrace time.Duration
	logger    *slog.Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(opts Options) *ExecRunner {
	if opts.MaxProcesses <= 0 {
		opts.MaxProcesses = 4
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ExecRunner{
		sem:       semaphore.NewWeighted(opts.MaxProcesses),
		killGrace: opts.KillGrace,
		logger:    opts.Logger,
	}
}

// LookPath wraps exec.LookPath, mapping a miss to ErrToolNotFound.
func (r *ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return path, nil
}

// Run executes cmd to completion with stdout and stderr captured in memory.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	start := time.Now()
	cmd := r.command(ctx, c)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code, err := r.classify(ctx, c, err)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("process finished",
		slog.String("cmd", c.Name),
		slog.String("dir", c.Dir),
		slog.Int("exit", code),
		slog.Duration("duration", time.Since(start)),
	)

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: code,
	}, nil
}

// Stream executes cmd and feeds each stdout line to fn until fn returns
// false or output ends.
func (r *ExecRunner) Stream(ctx context.Context, c Command, fn func(line string) bool) (*StreamResult, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := r.command(runCtx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("proc: stdout pipe for %s: %w", c.Name, err)
	}
	if err := cmd.Start(); err != nil {
		_, err = r.classify(ctx, c, err)
		return nil, err
	}

	res := &StreamResult{}
	readErr := readLines(stdout, MaxLineBytes, func(line string) bool {
		if !fn(line) {
			res.Stopped = true
			return false
		}
		res.Lines++
		return true
	}, func() { res.Skipped++ })

	if res.Stopped || readErr != nil {
		// Terminates the child via cmd.Cancel; WaitDelay escalates to SIGKILL.
		cancel()
	}
	waitErr := cmd.Wait()
	res.Stderr = stderr.Bytes()

	if res.Skipped > 0 {
		r.logger.Warn("skipped overlong output lines",
			slog.String("cmd", c.Name),
			slog.Int("skipped", res.Skipped),
			slog.Int("max_bytes", MaxLineBytes),
		)
	}
	if readErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("proc: %s: %w", c.Name, ctx.Err())
		}
		return nil, fmt.Errorf("proc: read %s output: %w", c.Name, readErr)
	}
	if res.Stopped {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return res, nil
	}

	code, err := r.classify(ctx, c, waitErr)
	if err != nil {
		return nil, err
	}
	res.ExitCode = code
	return res, nil
}

// command builds an exec.Cmd whose cancellation sends SIGTERM and whose
// WaitDelay bounds how long Wait may block before the child is killed.
func (r *ExecRunner) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Cancel = func() error {
		err := cmd.Process.Signal(syscall.SIGTERM)
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return err
	}
	cmd.WaitDelay = r.killGrace
	return cmd
}

// classify turns the error from Run/Start/Wait into an exit code, or into an
// error when the process never ran or was cut short by ctx.
func (r *ExecRunner) classify(ctx context.Context, c Command, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, fmt.Errorf("proc: %s: %w", c.Name, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return -1, fmt.Errorf("%w: %s", ErrToolNotFound, c.Name)
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return -1, fmt.Errorf("%w: %s", ErrToolNotFound, c.Name)
	}
	return -1, fmt.Errorf("proc: %s: %w", c.Name, err)
}

// readLines splits r into lines without their terminators (a trailing \r is
// dropped too) and hands each to emit until emit returns false or r ends.
// Lines over limit bytes are discarded through skip instead of aborting the
// read, so the producer is always drained to EOF.
func readLines(r io.Reader, limit int, emit func(string) bool, skip func()) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	overlong := false
	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !overlong {
			if len(buf)+len(frag) > limit {
				overlong = true
				buf = buf[:0]
			} else {
				buf = append(buf, frag...)
			}
		}
		if isPrefix {
			continue
		}
		if overlong {
			overlong = false
			skip()
			continue
		}
		line := string(buf)
		buf = buf[:0]
		if !emit(line) {
			return nil
		}
	}
}
