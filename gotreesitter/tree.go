package gotreesitter

import (
	"strings"
	"sync"
)

// ErrorSymbol is the symbol of ERROR nodes produced by lexing and parse
// recovery.
const ErrorSymbol = Symbol(65535)

// Node is a syntax tree node. Nodes are immutable once built and may be
// shared by several tree versions, so a node has no parent pointer; use
// Tree.Parent.
type Node struct {
	symbol       Symbol
	startByte    uint32
	endByte      uint32
	startPoint   Point
	endPoint     Point
	children     []*Node
	fieldIDs     []FieldID // parallel to children, 0 = no field
	productionID uint16
	isNamed      bool
	isMissing    bool
	isExtra      bool
	hasError     bool
}

// Symbol returns the node's grammar symbol.
func (n *Node) Symbol() Symbol { return n.symbol }

// IsNamed reports whether this is a named node (as opposed to anonymous syntax like punctuation).
func (n *Node) IsNamed() bool { return n.isNamed }

// IsMissing reports whether this node was inserted by error recovery.
func (n *Node) IsMissing() bool { return n.isMissing }

// IsError reports whether this is an ERROR node.
func (n *Node) IsError() bool { return n.symbol == ErrorSymbol }

// IsExtra reports whether the node sits outside the grammar's structure,
// such as skipped input wrapped by recovery.
func (n *Node) IsExtra() bool { return n.isExtra }

// HasError reports whether this node or any descendant contains a parse error.
func (n *Node) HasError() bool { return n.hasError }

// StartByte returns the byte offset where this node begins.
func (n *Node) StartByte() uint32 { return n.startByte }

// EndByte returns the byte offset where this node ends (exclusive).
func (n *Node) EndByte() uint32 { return n.endByte }

// StartPoint returns the row/column position where this node begins.
func (n *Node) StartPoint() Point { return n.startPoint }

// EndPoint returns the row/column position where this node ends.
func (n *Node) EndPoint() Point { return n.endPoint }

// ProductionID returns the grammar production that built this node.
func (n *Node) ProductionID() uint16 { return n.productionID }

// Range returns the full span of this node as a Range.
func (n *Node) Range() Range {
	return Range{
		StartByte:  n.startByte,
		EndByte:    n.endByte,
		StartPoint: n.startPoint,
		EndPoint:   n.endPoint,
	}
}

// ChildCount returns the number of children (both named and anonymous).
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the i-th child, or nil if i is out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// NamedChildCount returns the number of named children.
func (n *Node) NamedChildCount() int {
	count := 0
	for _, c := range n.children {
		if c.isNamed {
			count++
		}
	}
	return count
}

// NamedChild returns the i-th named child (skipping anonymous children),
// or nil if i is out of range.
func (n *Node) NamedChild(i int) *Node {
	count := 0
	for _, c := range n.children {
		if c.isNamed {
			if count == i {
				return c
			}
			count++
		}
	}
	return nil
}

// Children returns a slice of all children. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// FieldIDForChild returns the field of the i-th child, or 0.
func (n *Node) FieldIDForChild(i int) FieldID {
	if i < 0 || i >= len(n.fieldIDs) {
		return 0
	}
	return n.fieldIDs[i]
}

// FieldNameForChild returns the field name of the i-th child, or "".
func (n *Node) FieldNameForChild(i int, lang *Language) string {
	fid := n.FieldIDForChild(i)
	if fid == 0 || int(fid) >= len(lang.FieldNames) {
		return ""
	}
	return lang.FieldNames[fid]
}

// ChildByFieldID returns the first child with the given field.
func (n *Node) ChildByFieldID(fid FieldID) *Node {
	if fid == 0 {
		return nil
	}
	for i, id := range n.fieldIDs {
		if id == fid && i < len(n.children) {
			return n.children[i]
		}
	}
	return nil
}

// ChildByFieldName returns the first child assigned to the given field name,
// or nil if no child has that field. The Language is needed to resolve field
// names to IDs.
func (n *Node) ChildByFieldName(name string, lang *Language) *Node {
	fid, ok := lang.FieldByName(name)
	if !ok {
		return nil
	}
	return n.ChildByFieldID(fid)
}

// ChildrenByFieldName returns every child assigned to the field.
func (n *Node) ChildrenByFieldName(name string, lang *Language) []*Node {
	fid, ok := lang.FieldByName(name)
	if !ok {
		return nil
	}
	var out []*Node
	for i, id := range n.fieldIDs {
		if id == fid && i < len(n.children) {
			out = append(out, n.children[i])
		}
	}
	return out
}

// Text returns the source text covered by this node.
func (n *Node) Text(source []byte) string {
	if int(n.endByte) > len(source) || n.startByte > n.endByte {
		return ""
	}
	return string(source[n.startByte:n.endByte])
}

// Type returns the node's type name from the language.
func (n *Node) Type(lang *Language) string {
	return lang.SymbolName(n.symbol)
}

// String renders the node as an S-expression of its named descendants,
// with field labels, in the format tree-sitter test corpora use.
func (n *Node) String(lang *Language) string {
	var b strings.Builder
	writeSExpr(&b, n, lang, "")
	return b.String()
}

func writeSExpr(b *strings.Builder, n *Node, lang *Language, field string) {
	if field != "" {
		b.WriteString(field)
		b.WriteString(": ")
	}
	b.WriteByte('(')
	if n.isMissing {
		b.WriteString("MISSING ")
		if n.isNamed {
			b.WriteString(n.Type(lang))
		} else {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(n.Type(lang), `"`, `\"`))
			b.WriteByte('"')
		}
	} else {
		b.WriteString(n.Type(lang))
	}
	for i, c := range n.children {
		if !c.isNamed && !c.isMissing {
			continue
		}
		b.WriteByte(' ')
		writeSExpr(b, c, lang, n.FieldNameForChild(i, lang))
	}
	b.WriteByte(')')
}

// DescendantForByteRange returns the smallest node that spans [start, end).
func (n *Node) DescendantForByteRange(start, end uint32) *Node {
	return n.descendantForByteRange(start, end, false)
}

// NamedDescendantForByteRange returns the smallest named node that spans
// [start, end).
func (n *Node) NamedDescendantForByteRange(start, end uint32) *Node {
	return n.descendantForByteRange(start, end, true)
}

func (n *Node) descendantForByteRange(start, end uint32, named bool) *Node {
	if start < n.startByte || end > n.endByte {
		return nil
	}
	best, cur := n, n
	for {
		var next *Node
		for _, c := range cur.children {
			if c.startByte <= start && end <= c.endByte {
				next = c
				break
			}
		}
		if next == nil {
			return best
		}
		cur = next
		if !named || cur.isNamed {
			best = cur
		}
	}
}

// initParent fills n as a non-terminal over children. Its span runs from
// the first child's start to the last child's end, and an error in any
// child marks the parent.
func initParent(n *Node, sym Symbol, named bool, children []*Node, fieldIDs []FieldID, productionID uint16) {
	*n = Node{
		symbol:       sym,
		isNamed:      named,
		children:     children,
		fieldIDs:     fieldIDs,
		productionID: productionID,
		hasError:     sym == ErrorSymbol,
	}
	if len(children) > 0 {
		first := children[0]
		last := children[len(children)-1]
		n.startByte = first.startByte
		n.endByte = last.endByte
		n.startPoint = first.startPoint
		n.endPoint = last.endPoint
		for _, c := range children {
			if c.hasError || c.isMissing {
				n.hasError = true
				break
			}
		}
	}
}

// Tree holds a complete syntax tree along with its source text and language.
// A Tree is immutable; reparsing produces a new Tree that may share nodes
// with this one.
type Tree struct {
	root     *Node
	source   []byte
	language *Language
	version  uint64
	chunks   []chunk

	parentsOnce sync.Once
	parents     map[*Node]*Node
}

// RootNode returns the tree's root node.
func (t *Tree) RootNode() *Node { return t.root }

// Source returns the source text the tree was parsed from.
func (t *Tree) Source() []byte { return t.source }

// Language returns the language used to parse this tree.
func (t *Tree) Language() *Language { return t.language }

// Version counts the reparses that led to this tree; a full parse is 0.
func (t *Tree) Version() uint64 { return t.version }

// NodeText returns the source text covered by n.
func (t *Tree) NodeText(n *Node) string { return n.Text(t.source) }

// Parent returns the parent of n within this tree, or nil for the root and
// for nodes that do not belong to the tree.
func (t *Tree) Parent(n *Node) *Node {
	t.parentsOnce.Do(t.buildParents)
	return t.parents[n]
}

func (t *Tree) buildParents() {
	t.parents = make(map[*Node]*Node)
	if t.root == nil {
		return
	}
	stack := []*Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range n.children {
			t.parents[c] = n
			stack = append(stack, c)
		}
	}
}

// Walk visits nodes in pre-order. Returning false from fn skips the
// node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	if t.root == nil {
		return
	}
	type frame struct {
		n     *Node
		depth int
	}
	stack := []frame{{t.root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.n, f.depth) {
			continue
		}
		for i := len(f.n.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.n.children[i], f.depth + 1})
		}
	}
}

// Comments returns the spans of comments in the source. Comments are
// trivia and have no nodes; they are recovered from the gaps between
// leaves.
func (t *Tree) Comments() []Range {
	if t.language == nil || t.language.Trivia == nil || t.root == nil {
		return nil
	}
	var out []Range
	var prevEnd uint32
	var prevPoint Point
	scanGap := func(end uint32) {
		if end <= prevEnd {
			return
		}
		for _, span := range t.language.Trivia(t.source[prevEnd:end]) {
			start := prevEnd + uint32(span[0])
			stop := prevEnd + uint32(span[1])
			out = append(out, Range{
				StartByte:  start,
				EndByte:    stop,
				StartPoint: advancePoint(prevPoint, t.source[prevEnd:start]),
				EndPoint:   advancePoint(prevPoint, t.source[prevEnd:stop]),
			})
		}
	}
	t.Walk(func(n *Node, _ int) bool {
		if len(n.children) > 0 {
			return true
		}
		if n.startByte > prevEnd {
			scanGap(n.startByte)
		}
		if n.endByte >= prevEnd {
			prevEnd, prevPoint = n.endByte, n.endPoint
		}
		return false
	})
	scanGap(uint32(len(t.source)))
	return out
}

// advancePoint returns the point reached after scanning text from p.
func advancePoint(p Point, text []byte) Point {
	for _, b := range text {
		if b == '\n' {
			p.Row++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return p
}

// PointAt computes the row/column of a byte offset.
func PointAt(source []byte, offset uint32) Point {
	if int(offset) > len(source) {
		offset = uint32(len(source))
	}
	return advancePoint(Point{}, source[:offset])
}
