package callgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Locator finds the lines of a source tree that mention a function name
// followed by an opening parenthesis.
// Implementations: IndexLocator (cscope), GrepLocator (grep), ScanLocator
// (in-process walk), ChainLocator (first that succeeds).
type Locator interface {
	// Locate returns occurrences in the order the backend produced them.
	Locate(ctx context.Context, name string, tree *SourceTree) ([]Occurrence, error)

	// Backend names the implementation, for logs and metrics.
	Backend() Backend
}

// functionName accepts plain and namespace-qualified C/C++ identifiers. The
// name ends up in regular expressions and on external command lines, so
// nothing else is let through.
var functionName = regexp.MustCompile(`^(?:[A-Za-z_]\w*::)*~?[A-Za-z_]\w*$`)

// ValidateFunctionName returns ErrInvalidInput for names that are not C/C++
// identifiers.
func ValidateFunctionName(name string) error {
	if !functionName.MatchString(name) {
		return fmt.Errorf("%w: invalid function name %q", ErrInvalidInput, name)
	}
	return nil
}

// callPattern is the text-search pattern shared by the grep and scan
// backends: the name followed by optional whitespace and '('.
func callPattern(name string) string {
	return regexp.QuoteMeta(name) + `\s*\(`
}

// --- Chain ---

// Compile-time check.
var _ Locator = (*ChainLocator)(nil)

// ChainLocator tries each locator in order and returns the first result
// that is not an error. A cancelled context stops the chain immediately.
type ChainLocator struct {
	locators []Locator
	logger   *slog.Logger
}

// NewChainLocator creates a ChainLocator over locators.
func NewChainLocator(logger *slog.Logger, locators ...Locator) *ChainLocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainLocator{locators: locators, logger: logger}
}

// Backend reports the first backend of the chain.
func (c *ChainLocator) Backend() Backend {
	if len(c.locators) == 0 {
		return ""
	}
	return c.locators[0].Backend()
}

// Locate runs the chain.
func (c *ChainLocator) Locate(ctx context.Context, name string, tree *SourceTree) ([]Occurrence, error) {
	var errs []error
	for _, l := range c.locators {
		occs, err := l.Locate(ctx, name, tree)
		if err == nil {
			recordLocate(l.Backend(), "ok")
			return occs, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		recordLocate(l.Backend(), "error")
		c.logger.Info("locator fell through",
			slog.String("backend", string(l.Backend())),
			slog.String("function", name),
			slog.String("error", err.Error()),
		)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("locate %s: no locator configured", name)
	}
	return nil, fmt.Errorf("locate %s: %w", name, errors.Join(errs...))
}

// --- Output parsing ---

// parseIndexLine splits one line of cscope -L output:
// "file context line code...". The first three fields are space-delimited;
// the remainder is the raw source line.
func parseIndexLine(line string) (Occurrence, bool) {
	parts := strings.SplitN(line, " ", 4)
	if len(parts) < 4 {
		return Occurrence{}, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return Occurrence{}, false
	}
	return Occurrence{File: parts[0], Context: parts[1], Line: n, Text: parts[3]}, true
}

// parseGrepLine splits one line of grep -n output: "file:line:code". Source
// text may contain colons, so only the first two are separators.
func parseGrepLine(line string) (Occurrence, bool) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 3 {
		return Occurrence{}, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 1 {
		return Occurrence{}, false
	}
	return Occurrence{File: parts[0], Line: n, Text: parts[2]}, true
}

// splitOutput yields the non-blank lines of tool output.
func splitOutput(out []byte) []string {
	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
