package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/callscope/internal/callgraph"
)

// HierarchyExport is the top-level JSON export structure.
type HierarchyExport struct {
	Function   string          `json:"function"`
	BasePath   string          `json:"basePath"`
	MaxDepth   int             `json:"maxDepth"`
	ExportedAt string          `json:"exportedAt"`
	Nodes      int             `json:"nodes"`
	Hierarchy  *callgraph.Node `json:"hierarchy"`
}

// NewHierarchyExport wraps a resolved tree with its request parameters.
func NewHierarchyExport(root *callgraph.Node, basePath string, maxDepth int) *HierarchyExport {
	return &HierarchyExport{
		Function:   root.FunctionName,
		BasePath:   basePath,
		MaxDepth:   maxDepth,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Nodes:      root.Size(),
		Hierarchy:  root,
	}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
