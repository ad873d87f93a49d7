package callgraph

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Builder expands a function into its reverse call tree using a Locator and
// the line classifier. It holds no per-request mutable state, so one Builder
// may serve concurrent Resolve calls against the same tree.
type Builder struct {
	locator Locator
	tree    *SourceTree
	fanout  int
	logger  *slog.Logger
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// Fanout bounds how many sibling callers of one node are expanded at
	// once. Values below 1 mean sequential expansion.
	Fanout int

	Logger *slog.Logger
}

// NewBuilder creates a Builder over tree.
func NewBuilder(locator Locator, tree *SourceTree, opts BuilderOptions) *Builder {
	if opts.Fanout < 1 {
		opts.Fanout = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Builder{locator: locator, tree: tree, fanout: opts.Fanout, logger: opts.Logger}
}

// Resolve builds the caller tree of name, at most maxDepth levels deep.
func (b *Builder) Resolve(ctx context.Context, name string, maxDepth int) (*Node, error) {
	return b.resolve(ctx, name, maxDepth, Guard{}, 0)
}

func (b *Builder) resolve(ctx context.Context, name string, maxDepth int, guard Guard, depth int) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if depth >= maxDepth || guard.Has(name) {
		return &Node{
			FunctionName:    name,
			Depth:           depth,
			Callers:         []*Node{},
			IsRecursive:     guard.Has(name),
			MaxDepthReached: depth >= maxDepth-1,
		}, nil
	}

	path := guard.With(name)

	calls, err := b.CallSites(ctx, name)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("expanding function",
		slog.String("function", name),
		slog.Int("depth", depth),
		slog.Int("call_sites", len(calls)),
	)

	// Each caller owns its slot, so the result keeps locator order no matter
	// which expansion finishes first.
	callers := make([]*Node, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.fanout)
	for i, call := range calls {
		g.Go(func() error {
			node, err := b.expand(gctx, name, call, maxDepth, path, depth)
			if err != nil {
				return err
			}
			callers[i] = node
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Node{
		FunctionName:    name,
		Depth:           depth,
		Callers:         callers,
		TotalCallers:    len(callers),
		MaxDepthReached: depth >= maxDepth-1,
	}, nil
}

// expand turns one call site of target into a caller node. Call sites whose
// enclosing function is unknown, or is target itself, become leaves.
func (b *Builder) expand(ctx context.Context, target string, call ClassifiedOccurrence, maxDepth int, path Guard, depth int) (*Node, error) {
	site := &CallSite{
		File:    call.File,
		Line:    call.Line,
		Code:    call.Text,
		Context: call.Context,
	}

	if call.Caller == UnknownCaller || call.Caller == target {
		return &Node{
			FunctionName: call.Caller,
			Depth:        depth + 1,
			Callers:      []*Node{},
			Site:         site,
		}, nil
	}

	sub, err := b.resolve(ctx, call.Caller, maxDepth, path, depth+1)
	if err != nil {
		return nil, err
	}
	sub.Site = site
	return sub, nil
}

// CallSites locates every occurrence of name, classifies it, and returns the
// calls with their enclosing function filled in.
func (b *Builder) CallSites(ctx context.Context, name string) ([]ClassifiedOccurrence, error) {
	occs, err := b.locator.Locate(ctx, name, b.tree)
	if err != nil {
		return nil, err
	}

	m := NewMatcher(name)
	files := make(map[string][]string)
	var calls []ClassifiedOccurrence
	for _, occ := range occs {
		if !m.Classify(occ.Text).IsCall {
			continue
		}
		calls = append(calls, ClassifiedOccurrence{
			Occurrence: occ,
			Kind:       KindCall,
			Caller:     b.callerOf(occ, files),
		})
	}
	return calls, nil
}

// callerOf resolves the function containing occ. Index hits carry a scope
// name; text-search hits are resolved by scanning the file backwards. files
// caches file contents for the duration of one node.
func (b *Builder) callerOf(occ Occurrence, files map[string][]string) string {
	if occ.Context != "" {
		return callerFromContext(occ.Context, occ.Text)
	}

	lines, ok := files[occ.File]
	if !ok {
		var err error
		lines, err = b.readTreeFile(occ.File)
		if err != nil {
			b.logger.Debug("caller unresolved",
				slog.String("file", occ.File),
				slog.Int("line", occ.Line),
				slog.String("error", err.Error()),
			)
		}
		files[occ.File] = lines
	}
	if lines == nil {
		return UnknownCaller
	}
	return EnclosingFunction(lines, occ.Line)
}

func (b *Builder) readTreeFile(file string) ([]string, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(b.tree.Root, file)
	}
	return readLines(file)
}
