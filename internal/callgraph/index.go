package callgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dusk-indust/callscope/internal/proc"
)

// FileListName is the file list the index tool reads, written under the
// tree root. Concurrent builds against the same root overwrite it; the last
// writer wins.
const FileListName = "cscope.files"

// Indexer builds the on-disk cscope cross-reference for a source tree.
type Indexer struct {
	runner proc.Runner
	tool   string
	logger *slog.Logger
}

// NewIndexer creates an Indexer running tool (normally "cscope").
func NewIndexer(runner proc.Runner, tool string, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{runner: runner, tool: tool, logger: logger}
}

// Build enumerates every source and header file, writes FileListName and
// runs `cscope -b -q -k` in the root. Every failure is returned wrapped in
// ErrIndexUnavailable; callers are expected to carry on with text search.
func (ix *Indexer) Build(ctx context.Context, tree *SourceTree) error {
	start := time.Now()

	files, err := tree.Files(ctx, true)
	if err != nil {
		recordIndexBuild("enumerate_failed")
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	listPath := filepath.Join(tree.Root, FileListName)
	if err := os.WriteFile(listPath, []byte(fileList(files)), 0o644); err != nil {
		recordIndexBuild("write_failed")
		return fmt.Errorf("%w: write %s: %v", ErrIndexUnavailable, listPath, err)
	}

	res, err := ix.runner.Run(ctx, proc.Command{
		Name: ix.tool,
		Args: []string{"-b", "-q", "-k"},
		Dir:  tree.Root,
	})
	if err != nil {
		recordIndexBuild("spawn_failed")
		ix.logger.Warn("index build failed",
			slog.String("root", tree.Root),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if res.ExitCode != 0 {
		recordIndexBuild("tool_failed")
		stderr := strings.TrimSpace(string(res.Stderr))
		ix.logger.Warn("index build returned non-zero",
			slog.String("root", tree.Root),
			slog.Int("exit", res.ExitCode),
			slog.String("stderr", stderr),
		)
		return fmt.Errorf("%w: %s exited %d: %s", ErrIndexUnavailable, ix.tool, res.ExitCode, stderr)
	}

	recordIndexBuild("ok")
	ix.logger.Debug("index built",
		slog.String("root", tree.Root),
		slog.Int("files", len(files)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// fileList renders one path per line. cscope reads whitespace-separated
// names, so paths containing blanks are double-quoted.
func fileList(files []string) string {
	var sb strings.Builder
	for _, f := range files {
		if strings.ContainsAny(f, " \t") {
			sb.WriteString(`"` + strings.ReplaceAll(f, `"`, `\"`) + `"`)
		} else {
			sb.WriteString(f)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
