// Command parsleygen compiles the Parsley grammar and writes its generated
// artifacts: node-types.json, grammar.json and the conflict report. With
// --check it verifies that checked-in copies are current instead.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	gg "github.com/odvcencio/parsley/grammargen"
	"github.com/odvcencio/parsley/grammars"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		outDir  string
		check   bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "parsleygen",
		Short:         "Generate Parsley grammar artifacts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return run(cmd.OutOrStdout(), logger, outDir, check)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "grammars/generated/parsley", "output directory")
	cmd.Flags().BoolVar(&check, "check", false, "fail if the files in --out differ from the generated ones")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each conflict resolution")

	return cmd
}

func run(w io.Writer, logger *slog.Logger, outDir string, check bool) error {
	g := grammars.ParsleyGrammar()
	c, err := gg.Compile(g, gg.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("compile %s: %w", g.Name, err)
	}
	arts, err := Artifacts(g, c)
	if err != nil {
		return err
	}

	if check {
		stale, err := CheckArtifacts(outDir, arts)
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
		for _, s := range stale {
			if s.Missing {
				fmt.Fprintf(w, "%s: missing\n", s.Name)
				continue
			}
			fmt.Fprintf(w, "%s: out of date\n%s\n", s.Name, s.Diff)
		}
		if len(stale) > 0 {
			return fmt.Errorf("%d of %d artifacts are stale; rerun parsleygen", len(stale), len(arts))
		}
		fmt.Fprintf(w, "%s: %d artifacts up to date\n", outDir, len(arts))
		return nil
	}

	if err := WriteArtifacts(outDir, arts); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	fmt.Fprintf(w, "Generated %s (%s grammar, %d states, %d productions, %d conflicts resolved)\n",
		outDir, g.Name, c.States, len(c.Productions), len(c.Conflicts))
	return nil
}
