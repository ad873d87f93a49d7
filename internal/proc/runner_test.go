package proc

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func newTestRunner() *ExecRunner {
	return NewExecRunner(Options{MaxProcesses: 2, KillGrace: 50 * time.Millisecond})
}

func TestExecRunner_Run_CapturesOutput(t *testing.T) {
	requireShell(t)
	r := newTestRunner()

	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
}

func TestExecRunner_Run_NonZeroExitIsNotAnError(t *testing.T) {
	requireShell(t)
	r := newTestRunner()

	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestExecRunner_Run_WorkingDirectory(t *testing.T) {
	requireShell(t)
	r := newTestRunner()
	dir := t.TempDir()

	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd"}, Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), filepath.Base(strings.TrimSpace(string(res.Stdout))))
}

func TestExecRunner_Run_MissingTool(t *testing.T) {
	r := newTestRunner()

	_, err := r.Run(context.Background(), Command{Name: "callscope-no-such-tool"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)

	_, err = r.LookPath("callscope-no-such-tool")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestExecRunner_Run_CancelReapsChild(t *testing.T) {
	requireShell(t)
	r := newTestRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "exec sleep 30"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecRunner_Stream_StopsEarly(t *testing.T) {
	requireShell(t)
	r := newTestRunner()

	var got []string
	res, err := r.Stream(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "i=0; while true; do echo line$i; i=$((i+1)); done"},
	}, func(line string) bool {
		if len(got) == 3 {
			return false
		}
		got = append(got, line)
		return true
	})
	require.NoError(t, err)

	assert.True(t, res.Stopped)
	assert.Equal(t, 3, res.Lines)
	assert.Equal(t, []string{"line0", "line1", "line2"}, got)
}

func TestExecRunner_Stream_ToEOF(t *testing.T) {
	requireShell(t)
	r := newTestRunner()

	var got []string
	res, err := r.Stream(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "printf 'a\\nb\\n'; exit 1"},
	}, func(line string) bool {
		got = append(got, line)
		return true
	})
	require.NoError(t, err)

	assert.False(t, res.Stopped)
	assert.Equal(t, 2, res.Lines)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestExecRunner_Stream_SkipsOverlongLine(t *testing.T) {
	requireShell(t)
	r := newTestRunner()

	// 2 MB line, then enough output to fill the pipe if nobody reads it.
	script := "head -c 2000000 /dev/zero | tr '\\0' a; echo; yes line | head -n 200000; echo done"

	var last string
	start := time.Now()
	res, err := r.Stream(context.Background(), Command{Name: "sh", Args: []string{"-c", script}},
		func(line string) bool {
			last = line
			return true
		})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 200001, res.Lines)
	assert.Equal(t, "done", last)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecRunner_Run_KillsChildIgnoringTerm(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(Options{MaxProcesses: 1, KillGrace: 200 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "trap '' TERM; while :; do :; done"}})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// SIGTERM is ignored, so the child only goes once the grace period ends.
	assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestReadLines(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int
		want    []string
		skipped int
	}{
		{"plain", "a\nb\n", 10, []string{"a", "b"}, 0},
		{"no trailing newline", "a\nb", 10, []string{"a", "b"}, 0},
		{"crlf", "a\r\nb\r\n", 10, []string{"a", "b"}, 0},
		{"empty lines kept", "a\n\nb\n", 10, []string{"a", "", "b"}, 0},
		{"overlong skipped", "short\n" + strings.Repeat("x", 11) + "\nafter\n", 10, []string{"short", "after"}, 1},
		{"exactly at limit", strings.Repeat("y", 10) + "\n", 10, []string{strings.Repeat("y", 10)}, 0},
		{"empty", "", 10, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			skipped := 0
			err := readLines(strings.NewReader(tt.input), tt.limit,
				func(line string) bool {
					got = append(got, line)
					return true
				},
				func() { skipped++ })
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.skipped, skipped)
		})
	}
}

func TestReadLines_OverlongAcrossBufferFill(t *testing.T) {
	// Longer than the reader's internal buffer, so the line arrives in
	// several fragments.
	input := strings.Repeat("z", 200*1024) + "\nok\n"

	var got []string
	skipped := 0
	err := readLines(strings.NewReader(input), 100*1024,
		func(line string) bool {
			got = append(got, line)
			return true
		},
		func() { skipped++ })
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got)
	assert.Equal(t, 1, skipped)
}

func TestMockRunner_RecordsAndReplays(t *testing.T) {
	m := &MockRunner{
		RunFunc: func(_ context.Context, cmd Command) (*Result, error) {
			return &Result{Stdout: []byte("one\ntwo\nthree\n")}, nil
		},
	}

	var lines []string
	res, err := m.Stream(context.Background(), Command{Name: "ag"}, func(line string) bool {
		lines = append(lines, line)
		return len(lines) < 2
	})
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Equal(t, []string{"one", "two"}, lines)

	require.Len(t, m.Calls(), 1)
	assert.Equal(t, "ag", m.Calls()[0].Name)
}
