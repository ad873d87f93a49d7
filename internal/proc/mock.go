package proc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"sync"
)

// Compile-time check.
var _ Runner = (*MockRunner)(nil)

// MockRunner is a Runner for tests. Nil funcs fall back to defaults: Run
// returns ErrToolNotFound, Stream replays the output of RunFunc, and
// LookPath reports every tool as present.
type MockRunner struct {
	RunFunc      func(ctx context.Context, cmd Command) (*Result, error)
	LookPathFunc func(name string) (string, error)

	mu    sync.Mutex
	calls []Command
}

// Calls returns a copy of every command passed to Run or Stream.
func (m *MockRunner) Calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.calls))
	copy(out, m.calls)
	return out
}

// Run records cmd and delegates to RunFunc.
func (m *MockRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	m.record(cmd)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.RunFunc == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, cmd.Name)
	}
	return m.RunFunc(ctx, cmd)
}

// Stream records cmd, obtains the full output from RunFunc and replays it
// one line at a time.
func (m *MockRunner) Stream(ctx context.Context, cmd Command, fn func(line string) bool) (*StreamResult, error) {
	m.record(cmd)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.RunFunc == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, cmd.Name)
	}
	res, err := m.RunFunc(ctx, cmd)
	if err != nil {
		return nil, err
	}

	out := &StreamResult{ExitCode: res.ExitCode, Stderr: res.Stderr}
	sc := bufio.NewScanner(bytes.NewReader(res.Stdout))
	for sc.Scan() {
		if !fn(sc.Text()) {
			out.Stopped = true
			return out, nil
		}
		out.Lines++
	}
	return out, nil
}

// LookPath delegates to LookPathFunc.
func (m *MockRunner) LookPath(name string) (string, error) {
	if m.LookPathFunc == nil {
		return "/usr/bin/" + name, nil
	}
	return m.LookPathFunc(name)
}

func (m *MockRunner) record(cmd Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cmd)
}
