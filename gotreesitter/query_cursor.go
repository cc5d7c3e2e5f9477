package gotreesitter

// Capture is one captured node produced by a QueryCursor.
type Capture struct {
	PatternIndex int
	Name         string
	Node         *Node
}

// QueryCursor lazily walks a tree and yields captures in pre-order of the
// captured nodes. When several patterns capture the same node, only the
// capture from the earliest pattern is produced.
//
// A cursor holds its traversal state explicitly; Reset restarts it. It is
// not safe for concurrent use, but any number of cursors may share a Query
// and a Tree.
type QueryCursor struct {
	query *Query
	tree  *Tree

	startByte uint32
	endByte   uint32
	ranged    bool

	stack   []*Node
	pending map[*Node]Capture
	started bool
}

// NewQueryCursor returns a cursor over all captures of q in tree.
func NewQueryCursor(q *Query, tree *Tree) *QueryCursor {
	return &QueryCursor{query: q, tree: tree, pending: make(map[*Node]Capture)}
}

// SetByteRange restricts the cursor to nodes intersecting [start, end) and
// restarts it.
func (c *QueryCursor) SetByteRange(start, end uint32) {
	c.startByte, c.endByte, c.ranged = start, end, true
	c.Reset()
}

// Reset rewinds the cursor to the start of the tree.
func (c *QueryCursor) Reset() {
	c.stack = c.stack[:0]
	clear(c.pending)
	c.started = false
}

func (c *QueryCursor) inRange(n *Node) bool {
	if !c.ranged {
		return true
	}
	if n.startByte == n.endByte {
		return n.startByte >= c.startByte && n.startByte < c.endByte
	}
	return n.startByte < c.endByte && n.endByte > c.startByte
}

// NextCapture returns the next capture, or false when the traversal is
// done.
func (c *QueryCursor) NextCapture() (Capture, bool) {
	if c.tree == nil || c.tree.root == nil {
		return Capture{}, false
	}
	if !c.started {
		c.started = true
		c.stack = append(c.stack, c.tree.root)
	}
	for len(c.stack) > 0 {
		n := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		for i := len(n.children) - 1; i >= 0; i-- {
			if child := n.children[i]; c.inRange(child) {
				c.stack = append(c.stack, child)
			}
		}
		c.collect(n)

		capture, ok := c.pending[n]
		if !ok {
			continue
		}
		delete(c.pending, n)
		if c.inRange(n) {
			return capture, true
		}
	}
	return Capture{}, false
}

// collect runs the patterns rooted at n and records, per captured node,
// the capture of the lowest-numbered pattern.
func (c *QueryCursor) collect(n *Node) {
	q := c.query
	for _, pi := range q.rootPatternCandidates(n.symbol) {
		caps, ok := q.matchPattern(&q.patterns[pi], n, c.tree.source)
		if !ok {
			continue
		}
		for _, qc := range caps {
			if prev, seen := c.pending[qc.Node]; seen && prev.PatternIndex <= pi {
				continue
			}
			c.pending[qc.Node] = Capture{PatternIndex: pi, Name: qc.Name, Node: qc.Node}
		}
	}
}

// Captures drains the cursor into a slice.
func (c *QueryCursor) Captures() []Capture {
	var out []Capture
	for {
		capture, ok := c.NextCapture()
		if !ok {
			return out
		}
		out = append(out, capture)
	}
}
