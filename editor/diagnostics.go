package editor

import (
	"fmt"
	"strings"

	"github.com/odvcencio/parsley/gotreesitter"
)

// Diagnostic is a syntax error found in a tree.
type Diagnostic struct {
	gotreesitter.Range
	Message string
	Missing bool
}

const maxSnippet = 24

// Diagnostics lists the ERROR and MISSING nodes of tree in document order.
// An ERROR node is reported once; errors nested inside it are not.
func Diagnostics(tree *gotreesitter.Tree) []Diagnostic {
	if tree == nil || tree.RootNode() == nil || !tree.RootNode().HasError() {
		return nil
	}
	lang := tree.Language()
	var out []Diagnostic
	tree.Walk(func(n *gotreesitter.Node, _ int) bool {
		switch {
		case !n.HasError():
			return false
		case n.IsMissing():
			name := n.Type(lang)
			if !n.IsNamed() {
				name = fmt.Sprintf("%q", name)
			}
			out = append(out, Diagnostic{Range: n.Range(), Message: "missing " + name, Missing: true})
			return false
		case n.IsError():
			out = append(out, Diagnostic{Range: n.Range(), Message: errorMessage(tree, n)})
			return false
		}
		return true
	})
	return out
}

func errorMessage(tree *gotreesitter.Tree, n *gotreesitter.Node) string {
	text := strings.TrimSpace(tree.NodeText(n))
	if text == "" {
		return "syntax error"
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + "…"
	}
	if r := []rune(text); len(r) > maxSnippet {
		text = string(r[:maxSnippet]) + "…"
	}
	return fmt.Sprintf("syntax error near %q", text)
}

// Diagnostics returns the syntax errors of the current tree.
func (d *Document) Diagnostics() []Diagnostic {
	return Diagnostics(d.tree)
}
