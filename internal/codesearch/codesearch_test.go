package codesearch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/callscope/internal/proc"
)

func agOutput(n int) func(context.Context, proc.Command) (*proc.Result, error) {
	return func(context.Context, proc.Command) (*proc.Result, error) {
		var sb strings.Builder
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&sb, "src/f.c:%d:  target(%d);  \n", i, i)
		}
		return &proc.Result{Stdout: []byte(sb.String())}, nil
	}
}

// --- Search ---

func TestSearch_UnderLimit(t *testing.T) {
	runner := &proc.MockRunner{RunFunc: agOutput(3)}
	dir := t.TempDir()

	res, err := NewSearcher(runner, "", nil).Search(context.Background(), dir, "target", 50)
	require.NoError(t, err)
	assert.False(t, res.Limited)
	assert.Equal(t, []string{"src/f.c:1:  target(1);", "src/f.c:2:  target(2);", "src/f.c:3:  target(3);"}, res.Results)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ag", calls[0].Name)
	assert.Equal(t, []string{"--numbers", "--nogroup", "--nocolor", "--smart-case", "--", "target"}, calls[0].Args)
	assert.Equal(t, dir, calls[0].Dir)
}

func TestSearch_ExactlyAtLimit(t *testing.T) {
	res, err := NewSearcher(&proc.MockRunner{RunFunc: agOutput(5)}, "ag", nil).
		Search(context.Background(), t.TempDir(), "target", 5)
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)
	assert.False(t, res.Limited)
}

func TestSearch_OverLimit(t *testing.T) {
	res, err := NewSearcher(&proc.MockRunner{RunFunc: agOutput(500)}, "ag", nil).
		Search(context.Background(), t.TempDir(), "target", 5)
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)
	assert.True(t, res.Limited)
}

func TestSearch_Unlimited(t *testing.T) {
	res, err := NewSearcher(&proc.MockRunner{RunFunc: agOutput(120)}, "ag", nil).
		Search(context.Background(), t.TempDir(), "target", 0)
	require.NoError(t, err)
	assert.Len(t, res.Results, 120)
	assert.False(t, res.Limited)
}

func TestSearch_NoMatches(t *testing.T) {
	runner := &proc.MockRunner{RunFunc: func(context.Context, proc.Command) (*proc.Result, error) {
		return &proc.Result{ExitCode: 1}, nil
	}}
	res, err := NewSearcher(runner, "ag", nil).Search(context.Background(), t.TempDir(), "nothing", 10)
	require.NoError(t, err)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
}

func TestSearch_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewSearcher(&proc.MockRunner{}, "ag", nil)

	_, err := s.Search(ctx, "relative", "x", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Search(ctx, filepath.Join(t.TempDir(), "missing"), "x", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Search(ctx, t.TempDir(), "  ", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Search(ctx, t.TempDir(), "x", 1)
	assert.ErrorIs(t, err, proc.ErrToolNotFound)

	broken := &proc.MockRunner{RunFunc: func(context.Context, proc.Command) (*proc.Result, error) {
		return &proc.Result{ExitCode: 2, Stderr: []byte("ag: bad regex")}, nil
	}}
	_, err = NewSearcher(broken, "ag", nil).Search(ctx, t.TempDir(), "(", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad regex")
}

// --- File context ---

func writeLines(t *testing.T, dir, name string, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestReadContext_Window(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "main.c", 30)

	fc, err := ReadContext("main.c", 15, 2, dir)
	require.NoError(t, err)
	assert.Equal(t, "main.c", fc.FilePath)
	assert.Equal(t, "c", fc.FileType)
	assert.Equal(t, 15, fc.TargetLine)
	assert.Equal(t, 30, fc.TotalLines)
	require.Len(t, fc.Context, 5)
	assert.Equal(t, ContextLine{LineNumber: 13, Content: "line 13"}, fc.Context[0])
	assert.Equal(t, ContextLine{LineNumber: 15, Content: "line 15", IsMatch: true}, fc.Context[2])
	assert.Equal(t, 17, fc.Context[4].LineNumber)
}

func TestReadContext_ClampedAtEdges(t *testing.T) {
	dir := t.TempDir()
	path := writeLines(t, dir, "x.cpp", 4)

	fc, err := ReadContext(path, 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, "cpp", fc.FileType)
	require.Len(t, fc.Context, 4)
	assert.True(t, fc.Context[0].IsMatch)

	fc, err = ReadContext(path, 9, 2, "")
	require.NoError(t, err)
	assert.Empty(t, fc.Context)
	assert.Equal(t, 4, fc.TotalLines)
}

func TestReadContext_CleansPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	writeLines(t, dir, "a.h", 3)

	fc, err := ReadContext("sub/../a.h", 2, 0, dir)
	require.NoError(t, err)
	require.Len(t, fc.Context, 1)
	assert.Equal(t, "line 2", fc.Context[0].Content)
}

func TestReadContext_CRLFAndInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "w.c"), []byte("one\r\ntw\xffo\r\nthree"), 0o644))

	fc, err := ReadContext("w.c", 2, 1, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, fc.TotalLines)
	assert.Equal(t, "two", fc.Context[1].Content)
	assert.Equal(t, "three", fc.Context[2].Content)
}

func TestReadContext_Errors(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "a.c", 3)

	_, err := ReadContext("missing.c", 1, 1, dir)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ReadContext(dir, 1, 1, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ReadContext("a.c", 0, 1, dir)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ReadContext("a.c", 1, -1, dir)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ReadContext("", 1, 1, dir)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFileType(t *testing.T) {
	tests := map[string]string{
		"a.c": "c", "a.H": "c", "a.hpp": "c", "a.cc": "cpp", "a.cxx": "cpp",
		"a.py": "python", "a.jsx": "javascript", "README.markdown": "markdown",
		"i.htm": "html", "s.css": "css", "d.json": "json", "Makefile": "text", "a.rs": "text",
	}
	for path, want := range tests {
		assert.Equal(t, want, FileType(path), path)
	}
}
