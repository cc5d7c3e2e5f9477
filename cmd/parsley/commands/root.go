// Package commands implements the parsley CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/parsley/editor"
	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/odvcencio/parsley/grammars"
	"github.com/odvcencio/parsley/internal/config"
)

type envKey struct{}

// env is the state shared by all commands, loaded before any runs.
type env struct {
	version string
	cfg     *config.Config
	logger  *slog.Logger
}

func envFrom(cmd *cobra.Command) *env {
	if e, ok := cmd.Context().Value(envKey{}).(*env); ok {
		return e
	}
	// A command run outside the root gets the defaults.
	cfg := config.Default()
	return &env{version: "dev", cfg: cfg, logger: cfg.NewLogger(cmd.ErrOrStderr())}
}

// NewRootCommand builds the parsley command tree.
func NewRootCommand(version string) *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "parsley",
		Short: "Incremental parser and toolkit for the Parsley language",
		Long: `parsley parses Parsley source into concrete syntax trees, highlights it,
runs structural queries, and serves the parser to editors and agents.

Commands:
  parse       print the syntax tree and diagnostics
  highlight   print source with ANSI colors
  query       run a tree-sitter query
  edit        apply an edit and reparse incrementally
  node-types  print or validate node-types.json
  conflicts   list the grammar conflicts and how they were resolved
  lsp         language server on stdio
  serve       live WebSocket server with metrics
  mcp         Model Context Protocol server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Log.Level = "debug"
			}
			e := &env{version: version, cfg: cfg, logger: cfg.NewLogger(cmd.ErrOrStderr())}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default .parsley.yaml in the working or home directory)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newParseCommand(),
		newHighlightCommand(),
		newQueryCommand(),
		newEditCommand(),
		newNodeTypesCommand(),
		newConflictsCommand(),
		newLSPCommand(),
		newServeCommand(),
		newMCPCommand(),
		newVersionCommand(),
	)

	return root
}

// ErrSyntax is returned by commands asked to fail on syntax errors.
var ErrSyntax = errors.New("syntax errors found")

// readSource reads path, or stdin when path is "-".
func readSource(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// languageFor resolves a grammar name; "" means Parsley.
func languageFor(name string) (*gotreesitter.Language, error) {
	if name == "" {
		return grammars.ParsleyLanguage(), nil
	}
	entry := grammars.LookupLanguage(name)
	if entry == nil {
		return nil, fmt.Errorf("unknown language %q", name)
	}
	return entry.Language(), nil
}

// openDocument reads and parses path. Files without an explicit language
// open through the editor so the document keeps its path for saving.
func openDocument(cmd *cobra.Command, path, language string) (*editor.Document, error) {
	e := envFrom(cmd)
	if path != "-" && language == "" {
		return editor.OpenDocument(path, editor.WithLogger(e.logger))
	}
	src, err := readSource(cmd, path)
	if err != nil {
		return nil, err
	}
	lang, err := languageFor(language)
	if err != nil {
		return nil, err
	}
	return editor.NewDocument(lang, string(src), editor.WithLogger(e.logger)), nil
}

// printDiagnostics writes one "path:line:col: message" line per syntax
// error and returns how many there were.
func printDiagnostics(w io.Writer, path string, doc *editor.Document) int {
	diags := doc.Diagnostics()
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s\n", path, d.StartPoint.Row+1, d.StartPoint.Column+1, d.Message)
	}
	return len(diags)
}
