package callgraph

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

// Compile-time check.
var _ Locator = (*ScanLocator)(nil)

// ScanLocator is the in-process counterpart of GrepLocator: it walks the
// tree and applies the same pattern line by line. It is the last resort when
// neither an index nor a grep binary is available.
type ScanLocator struct {
	includeHeaders bool
	logger         *slog.Logger
}

// NewScanLocator creates a ScanLocator.
func NewScanLocator(includeHeaders bool, logger *slog.Logger) *ScanLocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanLocator{includeHeaders: includeHeaders, logger: logger}
}

// Backend returns BackendScan.
func (l *ScanLocator) Backend() Backend { return BackendScan }

// Locate returns matches in lexical file order, then line order.
func (l *ScanLocator) Locate(ctx context.Context, name string, tree *SourceTree) ([]Occurrence, error) {
	re, err := regexp.Compile(callPattern(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	files, err := tree.Files(ctx, l.includeHeaders)
	if err != nil {
		return nil, fmt.Errorf("scan search: %w", err)
	}

	var occs []Occurrence
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines, err := readLines(path)
		if err != nil {
			l.logger.Debug("skipping unreadable file", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		rel := tree.Rel(path)
		for i, text := range lines {
			if re.MatchString(text) {
				occs = append(occs, Occurrence{File: rel, Line: i + 1, Text: text})
			}
		}
	}
	return occs, nil
}
