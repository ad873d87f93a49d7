package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/callscope/internal/export"
)

func newHierarchyCmd(a *app) *cobra.Command {
	var (
		path   string
		depth  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "hierarchy <function>",
		Short: "Print the callers of a function",
		Long: `Resolve every caller of a C/C++ function under a source tree, recursively,
up to --depth levels.

Format options:
  - json: the full tree, with call sites (default)
  - tree: indented text
  - mermaid: a Mermaid graph BT diagram

Examples:
  callscope hierarchy --path /src/project target
  callscope hierarchy --path . --depth 3 --format tree parse_args`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("depth") {
				depth = a.cfg.MaxDepth
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if a.cfg.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.RequestTimeout)
				defer cancel()
			}

			root, err := a.engine().GetCallHierarchy(ctx, args[0], abs, depth)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return export.WriteJSON(out, export.NewHierarchyExport(root, abs, depth))
			case "tree":
				_, err = fmt.Fprint(out, export.GenerateTree(root))
			case "mermaid":
				_, err = fmt.Fprint(out, export.GenerateMermaid(root))
			default:
				return fmt.Errorf("unknown format %q (want json, tree or mermaid)", format)
			}
			return err
		},
	}

	wd, _ := os.Getwd()
	cmd.Flags().StringVar(&path, "path", wd, "source tree to search")
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum caller levels to expand (config maxDepth when unset)")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, tree, mermaid)")
	return cmd
}
