package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	gg "github.com/odvcencio/parsley/grammargen"
	"github.com/odvcencio/parsley/grammars"
)

func newNodeTypesCommand() *cobra.Command {
	var validate string

	cmd := &cobra.Command{
		Use:   "node-types",
		Short: "Print or validate the grammar's node-types.json",
		Long: `Print the node-types.json of the Parsley grammar: every visible node
type with its fields and children. With --validate, check a file against
the node-types schema instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if validate != "" {
				data, err := os.ReadFile(validate)
				if err != nil {
					return fmt.Errorf("read %s: %w", validate, err)
				}
				if err := gg.ValidateNodeTypesJSON(data); err != nil {
					return fmt.Errorf("%s: %w", validate, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", validate)
				return nil
			}
			_, err := cmd.OutOrStdout().Write(grammars.ParsleyNodeTypes())
			return err
		},
	}

	cmd.Flags().StringVar(&validate, "validate", "", "validate a node-types.json file")

	return cmd
}

func newConflictsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List the grammar's LR conflicts and their resolutions",
		Long: `Compile the Parsley grammar and list every shift/reduce and
reduce/reduce conflict the table builder resolved, with the action chosen
and the rule (precedence, associativity or rule order) that chose it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			compiled := grammars.ParsleyCompiled()
			out := cmd.OutOrStdout()

			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(compiled.Conflicts)
			case "table":
				tbl := table.NewWriter()
				tbl.SetOutputMirror(out)
				tbl.SetStyle(table.StyleLight)
				tbl.AppendHeader(table.Row{"State", "Lookahead", "Kind", "Chosen", "Rejected", "Reason"})
				for _, c := range compiled.Conflicts {
					tbl.AppendRow(table.Row{c.State, c.Lookahead, c.Kind, c.Chosen, c.Rejected, c.Reason})
				}
				tbl.AppendFooter(table.Row{"", "", "", "", "",
					fmt.Sprintf("%d conflicts, %d states", len(compiled.Conflicts), compiled.States)})
				tbl.Render()
				return nil
			default:
				return fmt.Errorf("--format must be table or yaml, got %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table or yaml")

	return cmd
}
