package callgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/callscope/internal/proc"
)

// DefaultMaxDepth is the depth used when a request does not name one.
const DefaultMaxDepth = 10

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	CscopeTool     string   // default "cscope"
	GrepTool       string   // default "grep"
	IncludeHeaders bool     // search .h/.hpp files for call sites
	Fanout         int      // sibling expansions in flight per node, default 1
	Excludes       []string // doublestar patterns relative to the base path
	DisableIndex   bool     // skip the cscope build and query entirely
	Logger         *slog.Logger
}

// Engine answers call hierarchy requests. It is safe for concurrent use;
// every request gets its own source tree, locator chain and guard.
type Engine struct {
	runner proc.Runner
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an Engine that spawns external tools through runner.
func NewEngine(runner proc.Runner, opts Options) *Engine {
	if opts.CscopeTool == "" {
		opts.CscopeTool = "cscope"
	}
	if opts.GrepTool == "" {
		opts.GrepTool = "grep"
	}
	if opts.Fanout < 1 {
		opts.Fanout = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{runner: runner, opts: opts, logger: opts.Logger}
}

// GetCallHierarchy builds the reverse call tree of function under basePath.
// The index is rebuilt on every request; if that fails, occurrences come
// from grep, and from an in-process scan if grep is missing too.
func (e *Engine) GetCallHierarchy(ctx context.Context, function, basePath string, maxDepth int) (*Node, error) {
	start := time.Now()

	node, err := e.getCallHierarchy(ctx, function, basePath, maxDepth)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrInvalidInput):
		outcome = "invalid"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		outcome = "cancelled"
	case err != nil:
		outcome = "error"
	}
	resolveDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	resolveNodes.Observe(float64(node.Size()))
	return node, nil
}

func (e *Engine) getCallHierarchy(ctx context.Context, function, basePath string, maxDepth int) (*Node, error) {
	if err := ValidateFunctionName(function); err != nil {
		return nil, err
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: max depth must not be negative: %d", ErrInvalidInput, maxDepth)
	}
	tree, err := NewSourceTree(basePath, e.opts.Excludes)
	if err != nil {
		return nil, err
	}

	locator := e.Locator(ctx, tree)

	e.logger.Info("resolving call hierarchy",
		slog.String("function", function),
		slog.String("base_path", tree.Root),
		slog.Int("max_depth", maxDepth),
		slog.String("backend", string(locator.Backend())),
	)

	b := NewBuilder(locator, tree, BuilderOptions{Fanout: e.opts.Fanout, Logger: e.logger})
	return b.Resolve(ctx, function, maxDepth)
}

// Locator assembles the locator chain for tree: the index when it builds,
// grep when the binary is on PATH, and the in-process scan always.
func (e *Engine) Locator(ctx context.Context, tree *SourceTree) *ChainLocator {
	var chain []Locator

	if !e.opts.DisableIndex {
		if err := NewIndexer(e.runner, e.opts.CscopeTool, e.logger).Build(ctx, tree); err != nil {
			e.logger.Warn("index unavailable, using text search",
				slog.String("base_path", tree.Root),
				slog.String("error", err.Error()),
			)
		} else {
			chain = append(chain, NewIndexLocator(e.runner, e.opts.CscopeTool, e.logger))
		}
	}

	if _, err := e.runner.LookPath(e.opts.GrepTool); err == nil {
		chain = append(chain, NewGrepLocator(e.runner, e.opts.GrepTool, e.opts.IncludeHeaders, e.logger))
	} else {
		e.logger.Debug("grep not found", slog.String("tool", e.opts.GrepTool))
	}

	chain = append(chain, NewScanLocator(e.opts.IncludeHeaders, e.logger))
	return NewChainLocator(e.logger, chain...)
}
