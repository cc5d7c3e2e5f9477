package editor

import (
	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/odvcencio/parsley/grammars"
)

// CaptureInfo is a query capture resolved against its tree.
type CaptureInfo struct {
	Name       string
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint gotreesitter.Point
	EndPoint   gotreesitter.Point
	Text       string
}

// Captures runs q over tree and returns its captures in document order.
// A non-zero end limits the walk to nodes intersecting [start, end).
func Captures(tree *gotreesitter.Tree, q *gotreesitter.Query, start, end uint32) []CaptureInfo {
	if tree == nil || tree.RootNode() == nil {
		return nil
	}
	cursor := gotreesitter.NewQueryCursor(q, tree)
	if end > 0 {
		cursor.SetByteRange(start, end)
	}
	lang := tree.Language()
	var out []CaptureInfo
	for {
		c, ok := cursor.NextCapture()
		if !ok {
			return out
		}
		n := c.Node
		out = append(out, CaptureInfo{
			Name:       c.Name,
			Type:       n.Type(lang),
			StartByte:  n.StartByte(),
			EndByte:    n.EndByte(),
			StartPoint: n.StartPoint(),
			EndPoint:   n.EndPoint(),
			Text:       tree.NodeText(n),
		})
	}
}

// HighlightQuery returns the highlight query registered for lang, or the
// Parsley query when lang is not registered.
func HighlightQuery(lang *gotreesitter.Language) string {
	for _, entry := range grammars.AllLanguages() {
		if entry.Language != nil && entry.Language() == lang && entry.HighlightQuery != "" {
			return entry.HighlightQuery
		}
	}
	return grammars.ParsleyHighlightQuery()
}

// Query compiles src against the document's language and returns its
// captures over the current tree.
func (d *Document) Query(src string, start, end uint32) ([]CaptureInfo, error) {
	q, err := gotreesitter.NewQuery(src, d.lang)
	if err != nil {
		return nil, err
	}
	return Captures(d.tree, q, start, end), nil
}
