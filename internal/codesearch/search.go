// Package codesearch provides free-text code search over a directory and
// line-context retrieval for a single file, the two lookups a browser needs
// next to a call hierarchy.
package codesearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/callscope/internal/proc"
)

// ErrInvalidInput reports a bad directory, pattern, file path or line.
var ErrInvalidInput = errors.New("invalid input")

// DefaultLimit is the number of result lines returned when none is given.
const DefaultLimit = 50

// SearchResult is the outcome of one search. Limited is set when more
// matches existed than were returned.
type SearchResult struct {
	Results []string `json:"results"`
	Limited bool     `json:"limited"`
}

// Searcher runs ag (The Silver Searcher) over a directory.
type Searcher struct {
	runner proc.Runner
	tool   string
	logger *slog.Logger
}

// NewSearcher creates a Searcher running tool (normally "ag").
func NewSearcher(runner proc.Runner, tool string, logger *slog.Logger) *Searcher {
	if tool == "" {
		tool = "ag"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{runner: runner, tool: tool, logger: logger}
}

// Search returns up to limit "file:line:text" lines matching pattern under
// root. A limit of zero or less means no limit. Output is read as it is
// produced, and the search is stopped as soon as one line beyond the limit
// has been seen.
func (s *Searcher) Search(ctx context.Context, root, pattern string, limit int) (*SearchResult, error) {
	if err := validateDir(root); err != nil {
		return nil, err
	}
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: empty search pattern", ErrInvalidInput)
	}

	out := &SearchResult{Results: []string{}}
	res, err := s.runner.Stream(ctx, proc.Command{
		Name: s.tool,
		Args: []string{"--numbers", "--nogroup", "--nocolor", "--smart-case", "--", pattern},
		Dir:  root,
	}, func(line string) bool {
		if limit > 0 && len(out.Results) == limit {
			out.Limited = true
			return false
		}
		out.Results = append(out.Results, strings.TrimSpace(line))
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", root, err)
	}

	// ag exits 1 when nothing matched.
	if !res.Stopped && res.ExitCode > 1 && len(out.Results) == 0 {
		return nil, fmt.Errorf("search %s: %s exited %d: %s", root, s.tool, res.ExitCode,
			strings.TrimSpace(string(res.Stderr)))
	}

	s.logger.Debug("search finished",
		slog.String("root", root),
		slog.String("pattern", pattern),
		slog.Int("results", len(out.Results)),
		slog.Bool("limited", out.Limited),
	)
	return out, nil
}

func validateDir(root string) error {
	if root == "" || !filepath.IsAbs(root) {
		return fmt.Errorf("%w: directory must be absolute: %q", ErrInvalidInput, root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: directory %s: %v", ErrInvalidInput, root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", ErrInvalidInput, root)
	}
	return nil
}
