package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/odvcencio/parsley/internal/observability"
	"github.com/odvcencio/parsley/lsp"
	"github.com/odvcencio/parsley/mcptools"
	"github.com/odvcencio/parsley/web"
)

func newLSPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server on stdio",
		Long: `Run a Language Server Protocol server on stdin/stdout. It publishes
syntax diagnostics on open and change, and serves semantic tokens and
folding ranges. Every change is an incremental reparse.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			lsp.ConfigureLogging(e.cfg.LSP.Verbosity)
			srv := lsp.NewServer(lsp.Options{
				Version:      e.version,
				CommentLabel: e.cfg.Highlight.CommentLabel,
			})
			return srv.Run()
		},
	}
}

func newServeCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live parser over WebSocket",
		Long: `Serve a live parsing page and a JSON-RPC WebSocket endpoint at /ws.
Clients open documents, send edits and get back incremental parse results,
diagnostics, highlights and query captures. Prometheus metrics are served
at /metrics unless disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			providers, err := observability.Init(ctx, e.cfg.Tracing, "parsley-serve", e.version)
			if err != nil {
				return err
			}
			defer shutdownTracing(providers, e)

			opts := web.Options{
				Logger:       e.logger,
				Tracer:       providers.Tracer,
				CommentLabel: e.cfg.Highlight.CommentLabel,
			}
			if e.cfg.Server.Metrics && !noMetrics {
				opts.Metrics = web.NewMetrics()
			}
			return web.NewServer(opts).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")

	return cmd
}

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol server on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout for AI agents.

Tools:
  ` + mcptools.ToolNameParse + `      parse source into a syntax tree with diagnostics
  ` + mcptools.ToolNameHighlight + `  highlight source into labelled spans
  ` + mcptools.ToolNameQuery + `      run a tree-sitter query

Resources:
  ` + mcptools.NodeTypesURI,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)

			providers, err := observability.Init(cmd.Context(), e.cfg.Tracing, "parsley-mcp", e.version)
			if err != nil {
				return err
			}
			defer shutdownTracing(providers, e)

			srv := mcptools.NewServer(mcptools.ServerDeps{
				Version: e.version,
				Logger:  e.logger,
				Tracer:  providers.Tracer,
			})
			err = srv.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func shutdownTracing(p observability.Providers, e *env) {
	if err := p.Shutdown(context.Background()); err != nil {
		e.logger.Warn("flush spans", "error", err)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "parsley %s\n", envFrom(cmd).version)
		},
	}
}
