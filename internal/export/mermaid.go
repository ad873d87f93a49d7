package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/callscope/internal/callgraph"
)

// GenerateMermaid produces a Mermaid graph BT diagram of a caller tree.
// Every tree node gets its own Mermaid node, so a function reached through
// several paths appears once per path; arrows point from caller to callee
// and are labelled with the call site.
func GenerateMermaid(root *callgraph.Node) string {
	var sb strings.Builder
	sb.WriteString("graph BT\n")
	if root == nil {
		return sb.String()
	}

	nextID := 0
	var emit func(n *callgraph.Node) string
	emit = func(n *callgraph.Node) string {
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		fmt.Fprintf(&sb, "  %s%s\n", id, shape(n))
		for _, c := range n.Callers {
			cid := emit(c)
			if c.Site != nil {
				fmt.Fprintf(&sb, "  %s -->|\"%s\"| %s\n", cid, escape(siteLabel(c.Site)), id)
			} else {
				fmt.Fprintf(&sb, "  %s --> %s\n", cid, id)
			}
		}
		return id
	}
	emit(root)

	return sb.String()
}

// shape picks the node outline: the root is a stadium, recursion markers are
// hexagons, depth-truncated nodes are dashed-looking subroutines.
func shape(n *callgraph.Node) string {
	label := escape(n.FunctionName)
	switch {
	case n.Depth == 0:
		return fmt.Sprintf("([\"%s\"])", label)
	case n.IsRecursive:
		return fmt.Sprintf("{{\"%s ↺\"}}", label)
	case n.MaxDepthReached && len(n.Callers) == 0:
		return fmt.Sprintf("[[\"%s …\"]]", label)
	default:
		return fmt.Sprintf("[\"%s\"]", label)
	}
}

func siteLabel(s *callgraph.CallSite) string {
	return fmt.Sprintf("%s:%d", shortPath(s.File), s.Line)
}

// escape replaces characters Mermaid would read as syntax.
func escape(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;").Replace(s)
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return filepath.ToSlash(path)
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
