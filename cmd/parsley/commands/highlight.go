package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/odvcencio/parsley/editor"
	"github.com/odvcencio/parsley/gotreesitter"
)

var colorAttributes = map[string]color.Attribute{
	"black":     color.FgBlack,
	"red":       color.FgRed,
	"green":     color.FgGreen,
	"yellow":    color.FgYellow,
	"blue":      color.FgBlue,
	"magenta":   color.FgMagenta,
	"cyan":      color.FgCyan,
	"white":     color.FgWhite,
	"hiblack":   color.FgHiBlack,
	"hired":     color.FgHiRed,
	"higreen":   color.FgHiGreen,
	"hiyellow":  color.FgHiYellow,
	"hiblue":    color.FgHiBlue,
	"himagenta": color.FgHiMagenta,
	"hicyan":    color.FgHiCyan,
	"hiwhite":   color.FgHiWhite,
}

// palette maps capture labels to terminal styles.
type palette struct {
	styles map[string]*color.Color
	cache  map[string]*color.Color
}

func newPalette(theme map[string]string, mode string) *palette {
	p := &palette{styles: make(map[string]*color.Color, len(theme)), cache: map[string]*color.Color{}}
	for label, name := range theme {
		attr, ok := colorAttributes[name]
		if !ok {
			continue
		}
		c := color.New(attr)
		switch mode {
		case "always":
			c.EnableColor()
		case "never":
			c.DisableColor()
		}
		p.styles[label] = c
	}
	return p
}

// style returns the style for label, falling back through its dotted
// prefixes: "function.builtin" uses "function" when unset.
func (p *palette) style(label string) *color.Color {
	if c, ok := p.cache[label]; ok {
		return c
	}
	var found *color.Color
	for l := label; l != ""; {
		if c, ok := p.styles[l]; ok {
			found = c
			break
		}
		i := strings.LastIndexByte(l, '.')
		if i < 0 {
			break
		}
		l = l[:i]
	}
	p.cache[label] = found
	return found
}

// render writes src with each highlight range styled.
func (p *palette) render(w io.Writer, src string, ranges []gotreesitter.HighlightRange) error {
	pos := uint32(0)
	for _, r := range ranges {
		if r.StartByte > pos {
			if _, err := io.WriteString(w, src[pos:r.StartByte]); err != nil {
				return err
			}
		}
		text := src[r.StartByte:r.EndByte]
		if c := p.style(r.Capture); c != nil {
			text = c.Sprint(text)
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
		pos = r.EndByte
	}
	_, err := io.WriteString(w, src[pos:])
	return err
}

func newHighlightCommand() *cobra.Command {
	var (
		language string
		mode     string
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "highlight <file|->",
		Short: "Print a file with syntax colors",
		Long: `Highlight a file with its grammar's highlight query and print it with
ANSI colors from the highlight.theme configuration. With --list, print one
line per highlighted span instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case "auto", "always", "never":
			default:
				return fmt.Errorf("--color must be auto, always or never, got %q", mode)
			}

			doc, err := openDocument(cmd, args[0], language)
			if err != nil {
				return err
			}
			e := envFrom(cmd)
			h, err := gotreesitter.NewHighlighter(doc.Language(), editor.HighlightQuery(doc.Language()),
				gotreesitter.WithCommentLabel(e.cfg.Highlight.CommentLabel))
			if err != nil {
				return fmt.Errorf("highlight query: %w", err)
			}
			ranges := h.HighlightTree(doc.Tree())

			out := cmd.OutOrStdout()
			if list {
				for _, r := range ranges {
					pt := gotreesitter.PointAt([]byte(doc.Text()), r.StartByte)
					fmt.Fprintf(out, "%d:%d\t%s\t%q\n", pt.Row+1, pt.Column+1, r.Capture, doc.Text()[r.StartByte:r.EndByte])
				}
				return nil
			}
			return newPalette(e.cfg.Highlight.ThemeColors(), mode).render(out, doc.Text(), ranges)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "grammar name (default: by file extension, then parsley)")
	cmd.Flags().StringVar(&mode, "color", "auto", "color output: auto, always or never")
	cmd.Flags().BoolVar(&list, "list", false, "list spans instead of printing colored source")

	return cmd
}
