package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/callscope/internal/httpapi"
	"github.com/dusk-indust/callscope/internal/mcptools"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service and browser UI",
		Long: `Serve the browser UI at /, the JSON endpoints /search, /file-content and
/call-hierarchy, Prometheus metrics at /metrics and the MCP streamable HTTP
transport at /mcp.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = a.cfg.Listen
			}

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mcpHandler := mcptools.NewHTTPHandler(mcptools.NewMCPServer(a.mcpService()))
			srv := httpapi.NewServer(a.engine(), a.searcher(), mcpHandler, httpapi.Defaults{
				MaxDepth:       a.cfg.MaxDepth,
				SearchLimit:    a.cfg.SearchLimit,
				ContextLines:   a.cfg.ContextLines,
				RequestTimeout: a.cfg.RequestTimeout,
			}, a.logger)
			return srv.ListenAndServe(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config, 127.0.0.1:8000)")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return mcptools.RunStdio(ctx, mcptools.NewMCPServer(a.mcpService()))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// The root's config loading is not needed here.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
