package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/odvcencio/parsley/editor"
)

// ErrNoPattern is returned when neither a pattern argument nor
// --query-file is given.
var ErrNoPattern = errors.New("a query pattern or --query-file is required")

const maxCellText = 40

func newQueryCommand() *cobra.Command {
	var (
		language  string
		queryFile string
		format    string
		start     uint32
		end       uint32
	)

	cmd := &cobra.Command{
		Use:   "query <file|-> [pattern]",
		Short: "Run a tree-sitter query over a file",
		Long: `Run a tree-sitter query over a file and list its captures in document
order. The pattern is the second argument or the contents of --query-file.
--start and --end restrict captures to nodes intersecting the byte range.`,
		Example: `  parsley query main.pars '(let_statement pattern: (identifier) @name)'
  parsley query main.pars --query-file locals.scm --format json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := queryPattern(args, queryFile)
			if err != nil {
				return err
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be table or json, got %q", format)
			}

			doc, err := openDocument(cmd, args[0], language)
			if err != nil {
				return err
			}
			caps, err := doc.Query(pattern, start, end)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(capturesJSON(caps))
			}
			renderCaptures(cmd, caps)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "grammar name (default: by file extension, then parsley)")
	cmd.Flags().StringVarP(&queryFile, "query-file", "f", "", "read the pattern from a file")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	cmd.Flags().Uint32Var(&start, "start", 0, "start of the byte range")
	cmd.Flags().Uint32Var(&end, "end", 0, "end of the byte range (0: whole document)")

	return cmd
}

type captureJSON struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	Line      uint32 `json:"line"`
	Col       uint32 `json:"col"`
	Text      string `json:"text"`
}

func capturesJSON(caps []editor.CaptureInfo) []captureJSON {
	out := make([]captureJSON, 0, len(caps))
	for _, c := range caps {
		out = append(out, captureJSON{
			Name:      c.Name,
			Type:      c.Type,
			StartByte: c.StartByte,
			EndByte:   c.EndByte,
			Line:      c.StartPoint.Row + 1,
			Col:       c.StartPoint.Column + 1,
			Text:      c.Text,
		})
	}
	return out
}

func queryPattern(args []string, queryFile string) (string, error) {
	switch {
	case len(args) == 2 && queryFile != "":
		return "", errors.New("give either a pattern argument or --query-file, not both")
	case len(args) == 2:
		return args[1], nil
	case queryFile != "":
		data, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("read query: %w", err)
		}
		return string(data), nil
	}
	return "", ErrNoPattern
}

func renderCaptures(cmd *cobra.Command, caps []editor.CaptureInfo) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Capture", "Node", "Position", "Text"})
	for i, c := range caps {
		tbl.AppendRow(table.Row{
			i + 1,
			"@" + c.Name,
			c.Type,
			fmt.Sprintf("%d:%d-%d:%d", c.StartPoint.Row+1, c.StartPoint.Column+1, c.EndPoint.Row+1, c.EndPoint.Column+1),
			truncate(c.Text, maxCellText),
		})
	}
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d captures", len(caps))})
	tbl.Render()
}

// truncate shortens s to n runes on one line.
func truncate(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' {
			r = append(r[:i:i], '⏎')
			break
		}
	}
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return string(r)
}
