package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/callscope/internal/callgraph"
	"github.com/dusk-indust/callscope/internal/codesearch"
	"github.com/dusk-indust/callscope/internal/config"
	"github.com/dusk-indust/callscope/internal/mcptools"
	"github.com/dusk-indust/callscope/internal/proc"
)

// app carries the loaded configuration and the components built from it
// into every subcommand.
type app struct {
	configDir string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *slog.Logger
	runner proc.Runner
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "callscope",
		Short: "Reverse call hierarchies for C and C++ source trees",
		Long: `callscope finds every caller of a C/C++ function, recursively, using a
cscope cross-reference with grep and in-process text search as fallbacks.

It runs as a one-shot CLI, as an HTTP service with a browser UI, or as an
MCP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "directory containing callscope.yml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json (overrides config)")

	root.AddCommand(
		newHierarchyCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the config file, applies flag overrides and builds the shared
// logger and process runner.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
	a.runner = proc.NewExecRunner(proc.Options{
		MaxProcesses: cfg.MaxProcesses,
		KillGrace:    cfg.KillGrace,
		Logger:       a.logger,
	})
	return nil
}

func (a *app) engine() *callgraph.Engine {
	return callgraph.NewEngine(a.runner, callgraph.Options{
		CscopeTool:     a.cfg.Tools.Cscope,
		GrepTool:       a.cfg.Tools.Grep,
		IncludeHeaders: a.cfg.IncludeHeaders,
		Fanout:         a.cfg.Fanout,
		Excludes:       a.cfg.Excludes,
		DisableIndex:   a.cfg.DisableIndex,
		Logger:         a.logger,
	})
}

func (a *app) searcher() *codesearch.Searcher {
	return codesearch.NewSearcher(a.runner, a.cfg.Tools.Ag, a.logger)
}

func (a *app) mcpService() *mcptools.Service {
	return mcptools.NewService(a.engine(), a.searcher(), mcptools.Defaults{
		MaxDepth:       a.cfg.MaxDepth,
		SearchLimit:    a.cfg.SearchLimit,
		ContextLines:   a.cfg.ContextLines,
		RequestTimeout: a.cfg.RequestTimeout,
	}, a.logger)
}

// newLogger builds the slog handler selected by the log config.
func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
