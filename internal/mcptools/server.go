package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the 3 code navigation tools registered.
func NewMCPServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "callscope",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_call_hierarchy",
		Description: "Find every caller of a C/C++ function, recursively, as a tree. Uses a cscope cross-reference when available and falls back to text search. Recursion stops at maxDepth or when a function reappears on its own path.",
	}, svc.GetCallHierarchy)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_code",
		Description: "Search a directory for a regular expression and return file:line:text matches, truncated to limit. The limited flag reports whether more matches exist.",
	}, svc.SearchCode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_file_content",
		Description: "Return the lines surrounding a line of a file, with the file's type and total line count.",
	}, svc.GetFileContent)

	return server
}

// NewHTTPHandler exposes server over the streamable HTTP transport.
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
