package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/callscope/internal/apierr"
	"github.com/dusk-indust/callscope/internal/callgraph"
	"github.com/dusk-indust/callscope/internal/codesearch"
	"github.com/dusk-indust/callscope/internal/export"
)

// Defaults fills in tool arguments the client leaves out.
// Zero fields select the package defaults (callgraph.DefaultMaxDepth,
// codesearch.DefaultLimit, codesearch.DefaultContextLines); config.Validate
// rejects zeros so a config file cannot ask for them and be ignored.
type Defaults struct {
	MaxDepth       int
	SearchLimit    int
	ContextLines   int
	RequestTimeout time.Duration // zero means no deadline
}

// Service holds the engines used by MCP tool handlers.
type Service struct {
	engine   *callgraph.Engine
	searcher *codesearch.Searcher
	defaults Defaults
	logger   *slog.Logger
}

// NewService creates a Service. Zero defaults fall back to the package
// defaults of callgraph and codesearch.
func NewService(engine *callgraph.Engine, searcher *codesearch.Searcher, defaults Defaults, logger *slog.Logger) *Service {
	if defaults.MaxDepth == 0 {
		defaults.MaxDepth = callgraph.DefaultMaxDepth
	}
	if defaults.SearchLimit == 0 {
		defaults.SearchLimit = codesearch.DefaultLimit
	}
	if defaults.ContextLines == 0 {
		defaults.ContextLines = codesearch.DefaultContextLines
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, searcher: searcher, defaults: defaults, logger: logger}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.defaults.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.defaults.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// GetCallHierarchy resolves the callers of a function. The JSON format
// returns the tree as structured content; tree and mermaid return text.
func (s *Service) GetCallHierarchy(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CallHierarchyInput,
) (*mcp.CallToolResult, any, error) {
	depth := s.defaults.MaxDepth
	if input.MaxDepth != nil {
		depth = *input.MaxDepth
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	root, err := s.engine.GetCallHierarchy(ctx, input.FunctionName, input.BasePath, depth)
	if err != nil {
		s.logger.Warn("get_call_hierarchy failed",
			slog.String("function", input.FunctionName),
			slog.String("error", err.Error()),
		)
		return nil, nil, apierr.From(err)
	}

	switch input.Format {
	case "", "json":
		return nil, root, nil
	case "tree":
		return textResult(export.GenerateTree(root)), nil, nil
	case "mermaid":
		return textResult(export.GenerateMermaid(root)), nil, nil
	default:
		return nil, nil, apierr.New(apierr.InvalidInput, fmt.Sprintf("unknown format %q", input.Format), nil)
	}
}

// SearchCode runs a free-text search over a directory.
func (s *Service) SearchCode(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchCodeInput,
) (*mcp.CallToolResult, codesearch.SearchResult, error) {
	limit := s.defaults.SearchLimit
	if input.Limit != nil {
		limit = *input.Limit
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.searcher.Search(ctx, input.Path, input.Pattern, limit)
	if err != nil {
		return nil, codesearch.SearchResult{}, apierr.From(err)
	}
	return nil, *res, nil
}

// GetFileContent returns the lines around one line of a file.
func (s *Service) GetFileContent(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input FileContentInput,
) (*mcp.CallToolResult, codesearch.FileContext, error) {
	lines := s.defaults.ContextLines
	if input.ContextLines != nil {
		lines = *input.ContextLines
	}

	fc, err := codesearch.ReadContext(input.FilePath, input.LineNumber, lines, input.BasePath)
	if err != nil {
		return nil, codesearch.FileContext{}, apierr.From(err)
	}
	return nil, *fc, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
