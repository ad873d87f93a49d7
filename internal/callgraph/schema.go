package callgraph

// --- Enums ---

// Kind classifies an occurrence of a function name.
type Kind string

const (
	KindDeclaration Kind = "declaration"
	KindDefinition  Kind = "definition"
	KindCall        Kind = "call"
	// KindReference labels a line that names the function without calling
	// it: comments, preprocessor lines, address-of uses.
	KindReference Kind = "reference"
)

// UnknownCaller is the caller name used when the enclosing function of a
// call site cannot be determined.
const UnknownCaller = "unknown"

// Backend identifies which locator produced a set of occurrences.
type Backend string

const (
	BackendIndex Backend = "index"
	BackendGrep  Backend = "grep"
	BackendScan  Backend = "scan"
)

// --- Models ---

// Occurrence is one raw textual hit of a function name.
type Occurrence struct {
	File    string `json:"file_path"`   // relative to the tree root when under it
	Line    int    `json:"line_number"` // 1-based
	Text    string `json:"code_line"`
	Context string `json:"function_context,omitempty"` // enclosing scope as reported by the index
}

// ClassifiedOccurrence is an Occurrence labelled by the line classifier.
type ClassifiedOccurrence struct {
	Occurrence
	Kind   Kind   `json:"kind"`
	Caller string `json:"caller_function"`
}

// CallSite is the location that links a caller node to its parent.
type CallSite struct {
	File    string `json:"file_path"`
	Line    int    `json:"line_number"`
	Code    string `json:"code_line"`
	Context string `json:"function_context,omitempty"`
}

// Node is one function in a reverse call tree. The root is the target
// function; each entry in Callers is a call site of its parent, labelled
// with the function that contains it.
type Node struct {
	FunctionName    string    `json:"function_name"`
	Depth           int       `json:"depth"`
	Callers         []*Node   `json:"callers"`
	TotalCallers    int       `json:"total_callers"`
	IsRecursive     bool      `json:"is_recursive"`
	MaxDepthReached bool      `json:"max_depth_reached"`
	Site            *CallSite `json:"call_site,omitempty"`
}

// Walk visits n and every descendant in depth-first pre-order. Returning
// false from fn skips the node's callers.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Callers {
		c.Walk(fn)
	}
}

// Size returns the number of nodes in the tree rooted at n.
func (n *Node) Size() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
