package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/odvcencio/parsley/editor"
)

func newParseCommand() *cobra.Command {
	var (
		language    string
		stats       bool
		quiet       bool
		failOnError bool
	)

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Print the syntax tree of a file",
		Long: `Parse a file (or stdin with "-") and print its syntax tree as an
S-expression with field labels. Syntax errors are reported on stderr as
path:line:col: message.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDocument(cmd, args[0], language)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !quiet {
				fmt.Fprintln(out, doc.Tree().RootNode().String(doc.Language()))
			}
			if stats {
				printStats(cmd, doc)
			}
			if n := printDiagnostics(cmd.ErrOrStderr(), args[0], doc); n > 0 && failOnError {
				return fmt.Errorf("%w: %d in %s", ErrSyntax, n, args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "grammar name (default: by file extension, then parsley)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print parse statistics")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the tree")
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit non-zero when the tree has syntax errors")

	return cmd
}

func printStats(cmd *cobra.Command, doc *editor.Document) {
	st := doc.Stats()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "size:    %s\n", humanize.Bytes(uint64(len(doc.Text()))))
	fmt.Fprintf(w, "tokens:  %s\n", humanize.Comma(int64(st.Tokens)))
	fmt.Fprintf(w, "chunks:  %s (%s reused, %s shifted, %s with errors)\n",
		humanize.Comma(int64(st.Chunks)),
		humanize.Comma(int64(st.ReusedChunks)),
		humanize.Comma(int64(st.ShiftedChunks)),
		humanize.Comma(int64(st.ErrorChunks)))
	if st.Chunks > 0 && st.Incremental {
		reused := st.ReusedChunks + st.ShiftedChunks
		fmt.Fprintf(w, "reuse:   %s%%\n", humanize.FtoaWithDigits(100*float64(reused)/float64(st.Chunks), 1))
	}
}
