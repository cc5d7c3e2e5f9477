package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/odvcencio/parsley/editor"
)

// ErrIncrementalMismatch is returned by edit --verify when the
// incrementally reparsed tree differs from a fresh parse.
var ErrIncrementalMismatch = errors.New("incremental tree differs from a fresh parse")

func newEditCommand() *cobra.Command {
	var (
		language string
		start    int
		end      int
		at       string
		find     string
		text     string
		write    bool
		verify   bool
		showTree bool
	)

	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Apply an edit and reparse incrementally",
		Long: `Replace the bytes [--start, --end) of a file with --text, reparse the
previous tree incrementally and report how much of it was reused.
--at LINE:COL inserts at a 1-based position instead. --find replaces every
occurrence of a string, one incremental reparse per occurrence.
--verify compares the result against a fresh parse of the edited text.`,
		Example: `  parsley edit main.pars --start 8 --end 10 --text 43 --verify
  parsley edit main.pars --at 1:1 --text "// header\n" --write
  parsley edit main.pars --find old_name --text new_name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			doc, err := openDocument(cmd, path, language)
			if err != nil {
				return err
			}
			before := len(doc.Text())
			out := cmd.OutOrStdout()

			switch {
			case find != "":
				n := doc.ReplaceAll(find, text)
				fmt.Fprintf(out, "replaced %s occurrences of %q\n", humanize.Comma(int64(n)), find)
			default:
				if at != "" {
					var line, col int
					if _, err := fmt.Sscanf(at, "%d:%d", &line, &col); err != nil || line < 1 || col < 1 {
						return fmt.Errorf("--at must be LINE:COL, got %q", at)
					}
					start = doc.OffsetAt(line-1, col-1)
				}
				if end < 0 {
					end = start
				}
				if err := doc.ApplyEdit(start, end, text); err != nil {
					return err
				}
			}

			st := doc.Stats()
			fmt.Fprintf(out, "edited %s: %s -> %s\n", path,
				humanize.Bytes(uint64(before)), humanize.Bytes(uint64(len(doc.Text()))))
			fmt.Fprintf(out, "reused %s of %s chunks (%s shifted), lexed %s tokens\n",
				humanize.Comma(int64(st.ReusedChunks+st.ShiftedChunks)),
				humanize.Comma(int64(st.Chunks)),
				humanize.Comma(int64(st.ShiftedChunks)),
				humanize.Comma(int64(st.Tokens)))
			if showTree {
				fmt.Fprintln(out, doc.Tree().RootNode().String(doc.Language()))
			}
			printDiagnostics(cmd.ErrOrStderr(), path, doc)

			if verify {
				if err := verifyIncremental(cmd, doc); err != nil {
					return err
				}
				fmt.Fprintln(out, "verified: matches a fresh parse")
			}
			if write {
				if path == "-" {
					return errors.New("--write needs a file, not stdin")
				}
				save := doc.Save
				if doc.Untitled() {
					// Opened with --language: the path was not recorded.
					save = func() error { return doc.SaveAs(path) }
				}
				if err := save(); err != nil {
					return err
				}
				envFrom(cmd).logger.Debug("wrote file", "path", path, "bytes", len(doc.Text()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "grammar name (default: by file extension, then parsley)")
	cmd.Flags().IntVar(&start, "start", 0, "start byte of the replaced range")
	cmd.Flags().IntVar(&end, "end", -1, "end byte of the replaced range (default: --start, a pure insertion)")
	cmd.Flags().StringVar(&at, "at", "", "insert at a 1-based LINE:COL instead of --start")
	cmd.Flags().StringVar(&find, "find", "", "replace every occurrence of this string with --text")
	cmd.Flags().StringVar(&text, "text", "", "replacement text")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the edited text back to the file")
	cmd.Flags().BoolVar(&verify, "verify", false, "compare against a fresh parse")
	cmd.Flags().BoolVar(&showTree, "tree", false, "print the reparsed tree")
	cmd.MarkFlagsMutuallyExclusive("at", "start")
	cmd.MarkFlagsMutuallyExclusive("find", "start")
	cmd.MarkFlagsMutuallyExclusive("find", "at")

	return cmd
}

// verifyIncremental reparses doc's text from scratch and reports a line
// diff of the two trees when they differ.
func verifyIncremental(cmd *cobra.Command, doc *editor.Document) error {
	fresh := editor.NewDocument(doc.Language(), doc.Text())
	got := indentSExpr(doc.Tree().RootNode().String(doc.Language()))
	want := indentSExpr(fresh.Tree().RootNode().String(fresh.Language()))
	if got == want {
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			fmt.Fprintln(cmd.ErrOrStderr(), prefix+line)
		}
	}
	return ErrIncrementalMismatch
}

// indentSExpr puts each node of an S-expression on its own line, indented
// by depth, so that trees diff line by line.
func indentSExpr(s string) string {
	var b []byte
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '(':
			if i > 0 {
				b = append(b, '\n')
				for j := 0; j < depth; j++ {
					b = append(b, ' ', ' ')
				}
			}
			depth++
			b = append(b, c)
		case ')':
			depth--
			b = append(b, c)
		case ' ':
			if i+1 < len(s) && s[i+1] == '(' {
				continue
			}
			b = append(b, c)
		default:
			b = append(b, c)
		}
	}
	return string(b)
}
