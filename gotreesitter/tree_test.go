package gotreesitter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(sym Symbol, named bool, start, end uint32) *Node {
	return &Node{
		symbol:     sym,
		isNamed:    named,
		startByte:  start,
		endByte:    end,
		startPoint: Point{Column: start},
		endPoint:   Point{Column: end},
		hasError:   sym == ErrorSymbol,
	}
}

func parent(sym Symbol, named bool, children []*Node, fieldIDs []FieldID, productionID uint16) *Node {
	n := &Node{}
	initParent(n, sym, named, children, fieldIDs, productionID)
	return n
}

func TestParentNodeSpansChildren(t *testing.T) {
	t.Parallel()
	a := leaf(1, true, 2, 3)
	b := leaf(2, false, 4, 5)
	c := leaf(1, true, 6, 8)
	n := parent(3, true, []*Node{a, b, c}, []FieldID{1, 0, 2}, 1)

	assert.Equal(t, uint32(2), n.StartByte())
	assert.Equal(t, uint32(8), n.EndByte())
	assert.Equal(t, Point{Column: 8}, n.EndPoint())
	assert.Equal(t, 3, n.ChildCount())
	assert.Equal(t, 2, n.NamedChildCount())
	assert.Same(t, c, n.NamedChild(1))
	assert.Nil(t, n.NamedChild(2))
	assert.Nil(t, n.Child(-1))
	assert.False(t, n.HasError())
	assert.Equal(t, uint16(1), n.ProductionID())

	lang := buildSumLanguage()
	assert.Same(t, a, n.ChildByFieldName("left", lang))
	assert.Same(t, c, n.ChildByFieldName("right", lang))
	assert.Nil(t, n.ChildByFieldName("nope", lang))
	assert.Equal(t, "right", n.FieldNameForChild(2, lang))
	assert.Equal(t, "", n.FieldNameForChild(1, lang))
	assert.Equal(t, []*Node{a}, n.ChildrenByFieldName("left", lang))
}

func TestErrorPropagates(t *testing.T) {
	t.Parallel()
	bad := leaf(ErrorSymbol, true, 0, 1)
	assert.True(t, bad.IsError())
	assert.True(t, bad.HasError())

	mid := parent(3, true, []*Node{bad}, nil, 0)
	top := parent(4, true, []*Node{mid, leaf(1, true, 2, 3)}, nil, 0)
	assert.False(t, mid.IsError())
	assert.True(t, mid.HasError())
	assert.True(t, top.HasError())
}

func TestNodeString(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "1 + 2")
	lang := tree.Language()
	assert.Equal(t, "(program (expression left: (expression (number)) right: (number)))", tree.RootNode().String(lang))

	missing := parseSum(t, "1 +")
	assert.Contains(t, missing.RootNode().String(lang), "(MISSING number)")
}

func TestTreeParent(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "1 + 2\n3")
	root := tree.RootNode()
	sum := root.Child(0)
	two := sum.ChildByFieldName("right", tree.Language())

	assert.Nil(t, tree.Parent(root))
	assert.Same(t, root, tree.Parent(sum))
	assert.Same(t, sum, tree.Parent(two))
	assert.Nil(t, tree.Parent(leaf(1, true, 0, 1)))

	// The index is built once and safe to build from several goroutines.
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Same(t, sum, tree.Parent(two))
		}()
	}
	wg.Wait()
}

func TestTreeWalk(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "1 + 2")
	lang := tree.Language()
	var types []string
	var depths []int
	tree.Walk(func(n *Node, depth int) bool {
		types = append(types, n.Type(lang))
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"program", "expression", "expression", "number", "+", "number"}, types)
	assert.Equal(t, []int{0, 1, 2, 3, 2, 2}, depths)

	var visited int
	tree.Walk(func(n *Node, depth int) bool {
		visited++
		return depth < 1
	})
	assert.Equal(t, 2, visited)
}

func TestDescendantForByteRange(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "1 + 22")
	lang := tree.Language()
	root := tree.RootNode()

	n := root.DescendantForByteRange(4, 5)
	require.NotNil(t, n)
	assert.Equal(t, "number", n.Type(lang))
	assert.Equal(t, "22", tree.NodeText(n))

	n = root.DescendantForByteRange(2, 3)
	assert.Equal(t, "+", n.Type(lang))
	n = root.NamedDescendantForByteRange(2, 3)
	assert.Equal(t, "expression", n.Type(lang))
	assert.Equal(t, "1 + 22", tree.NodeText(n))

	assert.Nil(t, root.DescendantForByteRange(3, 40))
}

func TestPointAt(t *testing.T) {
	t.Parallel()
	src := []byte("ab\ncd\n\ne")
	assert.Equal(t, Point{}, PointAt(src, 0))
	assert.Equal(t, Point{Row: 0, Column: 2}, PointAt(src, 2))
	assert.Equal(t, Point{Row: 1, Column: 0}, PointAt(src, 3))
	assert.Equal(t, Point{Row: 3, Column: 1}, PointAt(src, 100))
	assert.True(t, Point{Row: 1, Column: 9}.Less(Point{Row: 2}))
	assert.False(t, Point{Row: 2}.Less(Point{Row: 2}))
}

func TestTreeSourceAndVersion(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "3")
	assert.Equal(t, "3", string(tree.Source()))
	assert.Equal(t, uint64(0), tree.Version())
	assert.Equal(t, "sum", tree.Language().Name)
	assert.Equal(t, Range{EndByte: 1, EndPoint: Point{Column: 1}}, tree.RootNode().Range())
}
