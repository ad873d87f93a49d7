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
var _ Locator = (*GrepLocator)(nil)

// GrepLocator searches the tree with grep -rnE. It needs no index, but the
// occurrences it returns carry no enclosing-scope context.
type GrepLocator struct {
	runner         proc.Runner
	tool           string
	includeHeaders bool
	logger         *slog.Logger
}

// NewGrepLocator creates a GrepLocator running tool (normally "grep").
// Header files are searched only when includeHeaders is set.
func NewGrepLocator(runner proc.Runner, tool string, includeHeaders bool, logger *slog.Logger) *GrepLocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrepLocator{runner: runner, tool: tool, includeHeaders: includeHeaders, logger: logger}
}

// Backend returns BackendGrep.
func (l *GrepLocator) Backend() Backend { return BackendGrep }

// Args builds the grep argument list for name under root.
func (l *GrepLocator) Args(name, root string) []string {
	args := []string{"-rn", "-E", "--exclude-dir=.git"}
	for _, ext := range SourceExtensions {
		if headerExtensions[ext] && !l.includeHeaders {
			args = append(args, "--exclude=*"+ext)
			continue
		}
		args = append(args, "--include=*"+ext)
	}
	return append(args, "-e", callPattern(name), root)
}

// Locate runs grep. Exit status 1 means no match and yields an empty result;
// status 2 is an error unless grep still printed matches (some files were
// unreadable).
func (l *GrepLocator) Locate(ctx context.Context, name string, tree *SourceTree) ([]Occurrence, error) {
	res, err := l.runner.Run(ctx, proc.Command{
		Name: l.tool,
		Args: l.Args(name, tree.Root),
	})
	if err != nil {
		return nil, fmt.Errorf("grep search: %w", err)
	}

	switch {
	case res.ExitCode == 1:
		return nil, nil
	case res.ExitCode != 0 && len(bytes.TrimSpace(res.Stdout)) == 0:
		return nil, fmt.Errorf("grep search: %s exited %d: %s", l.tool, res.ExitCode,
			strings.TrimSpace(string(res.Stderr)))
	case res.ExitCode != 0:
		l.logger.Warn("grep reported errors, using partial output",
			slog.Int("exit", res.ExitCode),
			slog.String("stderr", strings.TrimSpace(string(res.Stderr))),
		)
	}

	var occs []Occurrence
	for _, line := range splitOutput(res.Stdout) {
		occ, ok := parseGrepLine(line)
		if !ok {
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
