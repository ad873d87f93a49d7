package codesearch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultContextLines is the number of lines shown on each side of the
// target line when none is given.
const DefaultContextLines = 10

// ContextLine is one line of a FileContext window.
type ContextLine struct {
	LineNumber int    `json:"line_number"`
	Content    string `json:"content"`
	IsMatch    bool   `json:"is_match"`
}

// FileContext is a window of lines around a target line.
type FileContext struct {
	FilePath   string        `json:"file_path"`
	FileType   string        `json:"file_type"`
	TargetLine int           `json:"target_line"`
	TotalLines int           `json:"total_lines"`
	Context    []ContextLine `json:"context"`
}

var fileTypes = map[string]string{
	".c":        "c",
	".h":        "c",
	".hpp":      "c",
	".cpp":      "cpp",
	".cc":       "cpp",
	".cxx":      "cpp",
	".py":       "python",
	".js":       "javascript",
	".jsx":      "javascript",
	".md":       "markdown",
	".markdown": "markdown",
	".html":     "html",
	".htm":      "html",
	".css":      "css",
	".json":     "json",
}

// FileType names the syntax of path for highlighting, or "text".
func FileType(path string) string {
	if t, ok := fileTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "text"
}

// ReadContext returns line and up to contextLines lines on either side of it.
// A relative filePath is joined onto basePath when basePath is given. The
// returned FilePath is filePath as passed in.
func ReadContext(filePath string, line, contextLines int, basePath string) (*FileContext, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrInvalidInput)
	}
	if line < 1 {
		return nil, fmt.Errorf("%w: line number must be positive: %d", ErrInvalidInput, line)
	}
	if contextLines < 0 {
		return nil, fmt.Errorf("%w: context lines must not be negative: %d", ErrInvalidInput, contextLines)
	}

	full := filePath
	if basePath != "" && !filepath.IsAbs(filePath) {
		full = filepath.Join(basePath, filePath)
	}
	full = filepath.Clean(full)

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("%w: file not found: %s", ErrInvalidInput, full)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: path is not a file: %s", ErrInvalidInput, full)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", full, err)
	}
	lines := splitLines(data)

	total := len(lines)
	start := max(1, line-contextLines)
	end := min(total, line+contextLines)

	window := make([]ContextLine, 0, max(0, end-start+1))
	for n := start; n <= end; n++ {
		window = append(window, ContextLine{
			LineNumber: n,
			Content:    lines[n-1],
			IsMatch:    n == line,
		})
	}

	return &FileContext{
		FilePath:   filePath,
		FileType:   FileType(full),
		TargetLine: line,
		TotalLines: total,
		Context:    window,
	}, nil
}

// splitLines drops invalid UTF-8 and splits on \n, \r\n or \r. A trailing
// newline does not start another line.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := string(bytes.ToValidUTF8(data, nil))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
