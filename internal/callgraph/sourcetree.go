package callgraph

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SourceExtensions are the file extensions recognized as C/C++ source.
var SourceExtensions = []string{".c", ".cpp", ".cc", ".cxx", ".h", ".hpp"}

var headerExtensions = map[string]bool{".h": true, ".hpp": true}

// vcsDirs are never descended into.
var vcsDirs = map[string]bool{".git": true, ".hg": true, ".svn": true}

// SourceTree is the set of C/C++ files beneath an absolute root directory.
type SourceTree struct {
	Root     string
	Excludes []string // doublestar patterns matched against root-relative slash paths
}

// NewSourceTree validates root and the exclude patterns. root must be an
// absolute path to an existing directory.
func NewSourceTree(root string, excludes []string) (*SourceTree, error) {
	if root == "" || !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%w: base path must be absolute: %q", ErrInvalidInput, root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: base path %s: %v", ErrInvalidInput, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: base path is not a directory: %s", ErrInvalidInput, root)
	}
	for _, p := range excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: bad exclude pattern %q", ErrInvalidInput, p)
		}
	}
	return &SourceTree{Root: filepath.Clean(root), Excludes: excludes}, nil
}

// IsSource reports whether path has a recognized extension. Headers count
// only when includeHeaders is set.
func IsSource(path string, includeHeaders bool) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if headerExtensions[ext] {
		return includeHeaders
	}
	for _, e := range SourceExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Rel returns path relative to the root when it lies beneath it, and path
// unchanged otherwise.
func (t *SourceTree) Rel(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(t.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// Files walks the tree and returns the absolute paths of every source file in
// lexical directory order. An unreadable root is an error; unreadable
// subdirectories are skipped.
func (t *SourceTree) Files(ctx context.Context, includeHeaders bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(t.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == t.Root {
				return err
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel := t.Rel(path)
		if d.IsDir() {
			if path != t.Root && (vcsDirs[d.Name()] || t.excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsSource(path, includeHeaders) || t.excluded(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", t.Root, err)
	}
	return files, nil
}

func (t *SourceTree) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range t.Excludes {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
