package callgraph

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dusk-indust/callscope/internal/proc"
)

// Compile-time check.
var _ Locator = (*IndexLocator)(nil)

// IndexLocator queries a cscope cross-reference built by Indexer, using the
// "functions calling this function" query (-3).
type IndexLocator struct {
	runner proc.Runner
	tool   string
	logger *slog.Logger
}

// NewIndexLocator creates an IndexLocator running tool (normally "cscope").
func NewIndexLocator(runner proc.Runner, tool string, logger *slog.Logger) *IndexLocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexLocator{runner: runner, tool: tool, logger: logger}
}

// Backend returns BackendIndex.
func (l *IndexLocator) Backend() Backend { return BackendIndex }

// Locate runs `cscope -d -L -3 name` in the tree root. A spawn failure, a
// non-zero exit or empty output is reported as ErrIndexUnavailable so that a
// ChainLocator moves on to text search.
func (l *IndexLocator) Locate(ctx context.Context, name string, tree *SourceTree) ([]Occurrence, error) {
	res, err := l.runner.Run(ctx, proc.Command{
		Name: l.tool,
		Args: []string{"-d", "-L", "-3", name},
		Dir:  tree.Root,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s exited %d: %s", ErrIndexUnavailable, l.tool, res.ExitCode,
			strings.TrimSpace(string(res.Stderr)))
	}
	if len(bytes.TrimSpace(res.Stdout)) == 0 {
		return nil, fmt.Errorf("%w: no index results for %s", ErrIndexUnavailable, name)
	}

	var occs []Occurrence
	for _, line := range splitOutput(res.Stdout) {
		occ, ok := parseIndexLine(line)
		if !ok {
			l.logger.Debug("skipping malformed index line", slog.String("line", line))
			continue
		}
		occ.File = tree.Rel(occ.File)
		if tree.excluded(occ.File) {
			continue
		}
		occs = append(occs, occ)
	}
	return occs, nil
}
