package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/callscope/internal/callgraph"
)

// GenerateTree renders a caller tree as indented ASCII, one node per line:
//
//	target
//	└── helper  (a.c:1)
//	    └── helper2  (b.c:1)
func GenerateTree(root *callgraph.Node) string {
	if root == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(nodeLine(root))
	sb.WriteByte('\n')
	writeCallers(&sb, root.Callers, "")
	return sb.String()
}

func writeCallers(sb *strings.Builder, callers []*callgraph.Node, prefix string) {
	for i, c := range callers {
		branch, indent := "├── ", "│   "
		if i == len(callers)-1 {
			branch, indent = "└── ", "    "
		}
		sb.WriteString(prefix + branch + nodeLine(c))
		sb.WriteByte('\n')
		writeCallers(sb, c.Callers, prefix+indent)
	}
}

func nodeLine(n *callgraph.Node) string {
	line := n.FunctionName
	if n.Site != nil {
		line += fmt.Sprintf("  (%s:%d)", n.Site.File, n.Site.Line)
	}
	switch {
	case n.IsRecursive:
		line += " [recursive]"
	case n.Depth > 0 && n.MaxDepthReached && len(n.Callers) == 0:
		line += " [max depth]"
	}
	return line
}
