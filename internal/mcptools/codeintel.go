package mcptools

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// CallHierarchyInput is the input for the get_call_hierarchy MCP tool.
type CallHierarchyInput struct {
	FunctionName string `json:"functionName" jsonschema:"C or C++ function whose callers to find, optionally namespace-qualified"`
	BasePath     string `json:"basePath" jsonschema:"absolute path of the source tree to search"`
	MaxDepth     *int   `json:"maxDepth,omitempty" jsonschema:"maximum caller levels to expand (default: 10)"`
	Format       string `json:"format,omitempty" jsonschema:"json (default), tree or mermaid"`
}

// SearchCodeInput is the input for the search_code MCP tool.
type SearchCodeInput struct {
	Path    string `json:"path" jsonschema:"absolute path of the directory to search"`
	Pattern string `json:"pattern" jsonschema:"regular expression, matched case-insensitively unless it contains upper case"`
	Limit   *int   `json:"limit,omitempty" jsonschema:"maximum result lines, 0 for no limit (default: 50)"`
}

// FileContentInput is the input for the get_file_content MCP tool.
type FileContentInput struct {
	FilePath     string `json:"filePath" jsonschema:"file to read, absolute or relative to basePath"`
	LineNumber   int    `json:"lineNumber" jsonschema:"1-based line to center the window on"`
	ContextLines *int   `json:"contextLines,omitempty" jsonschema:"lines to include on each side (default: 10)"`
	BasePath     string `json:"basePath,omitempty" jsonschema:"directory relative file paths are resolved against"`
}
