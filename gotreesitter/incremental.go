package gotreesitter

import "bytes"

// reuseState walks the chunks of the previous tree while a reparse
// advances through the new text.
type reuseState struct {
	old     *Tree
	edit    InputEdit
	shifted bool
	next    int
}

// Reparse parses source, the result of applying edit to old's source,
// reusing the parts of old the edit cannot have affected. The result is
// the same tree a full Parse of source would produce; old is unchanged.
//
// Top-level items that end, lookahead included, before the edit are
// reused by reference. Items after the edit are reused as shifted copies
// once the token stream is back at the same position and lexer modes they
// were originally parsed with.
func (p *Parser) Reparse(old *Tree, edit InputEdit, source []byte) *Tree {
	if old == nil || old.language != p.language {
		return p.Parse(source)
	}
	fallback := func(reason string) *Tree {
		p.logger.Debug("parser: full reparse", "reason", reason)
		tree := p.Parse(source)
		tree.version = old.version + 1
		return tree
	}
	edit, ok := normalizeEdit(old.source, source, edit)
	if !ok {
		return fallback("edit does not match texts")
	}
	ts := p.tokenSource(source)
	if _, ok := ts.(ResumableTokenSource); !ok {
		return fallback("token source is not resumable")
	}

	r := p.newRun(source, ts, arenaClassIncremental)
	r.reuse = &reuseState{
		old:     old,
		edit:    edit,
		shifted: edit.Delta() != 0 || edit.OldEndPoint != edit.NewEndPoint,
	}
	r.stats.Incremental = true
	tree := r.run()
	tree.version = old.version + 1
	p.stats = r.stats
	p.logger.Debug("parser: reparse",
		"chunks", r.stats.Chunks, "reused", r.stats.ReusedChunks, "shifted", r.stats.ShiftedChunks)
	return tree
}

// normalizeEdit checks that edit describes the change from oldText to
// newText and recomputes its points from the texts.
func normalizeEdit(oldText, newText []byte, e InputEdit) (InputEdit, bool) {
	if e.StartByte > e.OldEndByte || int(e.OldEndByte) > len(oldText) ||
		e.StartByte > e.NewEndByte || int(e.NewEndByte) > len(newText) {
		return e, false
	}
	if len(newText)-int(e.NewEndByte) != len(oldText)-int(e.OldEndByte) {
		return e, false
	}
	if !bytes.Equal(oldText[:e.StartByte], newText[:e.StartByte]) ||
		!bytes.Equal(oldText[e.OldEndByte:], newText[e.NewEndByte:]) {
		return e, false
	}
	e.StartPoint = PointAt(oldText, e.StartByte)
	e.OldEndPoint = advancePoint(e.StartPoint, oldText[e.StartByte:e.OldEndByte])
	e.NewEndPoint = advancePoint(e.StartPoint, newText[e.StartByte:e.NewEndByte])
	return e, true
}

// find returns the old chunk starting at byte target. Targets must be
// requested in increasing order.
func (u *reuseState) find(target uint32) (chunk, bool) {
	chunks := u.old.chunks
	for u.next < len(chunks) && chunks[u.next].startByte < target {
		u.next++
	}
	if u.next < len(chunks) && chunks[u.next].startByte == target {
		return chunks[u.next], true
	}
	return chunk{}, false
}

// tryReuse attempts to take the next item from the previous tree instead
// of parsing it.
func (r *parseRun) tryReuse() bool {
	u := r.reuse
	e := u.edit
	pos := r.lookahead.StartByte
	if len(r.pending) > 0 || r.rs == nil {
		return false
	}

	var target uint32
	after := false
	switch {
	case pos < e.StartByte:
		target = pos
	case pos >= e.NewEndByte:
		target = uint32(int64(pos) - e.Delta())
		after = true
	default:
		return false
	}
	c, ok := u.find(target)
	if !ok || !c.startState.Equivalent(r.laState) {
		return false
	}
	if !after && c.examinedEnd > e.StartByte {
		return false
	}

	oldNodes := u.old.root.children[c.first : c.first+c.count]
	reused := chunk{
		startByte:   pos,
		first:       len(r.nodes),
		count:       c.count,
		startState:  r.laState,
		endState:    c.endState,
		examinedEnd: c.examinedEnd,
	}
	if after && u.shifted {
		for _, n := range oldNodes {
			r.nodes = append(r.nodes, r.shiftNode(n, e))
		}
		reused.endState = shiftLexerState(c.endState, e)
		reused.examinedEnd = uint32(int64(c.examinedEnd) + e.Delta())
		r.stats.ShiftedChunks++
	} else {
		r.nodes = append(r.nodes, oldNodes...)
		r.stats.ReusedChunks++
	}
	r.chunks = append(r.chunks, reused)
	last := r.nodes[len(r.nodes)-1]
	r.lastEnd, r.lastEndPoint = last.endByte, last.endPoint

	r.rs.Restore(reused.endState)
	r.examined = 0
	r.advance()
	return true
}

func shiftLexerState(st LexerState, e InputEdit) LexerState {
	st.Offset = uint32(int64(st.Offset) + e.Delta())
	st.Point = shiftPoint(st.Point, e)
	return st
}

// shiftNode copies a subtree that lies after the edit into new
// coordinates. Nodes store absolute positions, so every node of a moved
// chunk is copied; chunks are shared by reference only when the edit
// leaves their positions unchanged.
func (r *parseRun) shiftNode(n *Node, e InputEdit) *Node {
	c := r.arena.allocNode()
	*c = *n
	delta := e.Delta()
	c.startByte = uint32(int64(n.startByte) + delta)
	c.endByte = uint32(int64(n.endByte) + delta)
	c.startPoint = shiftPoint(n.startPoint, e)
	c.endPoint = shiftPoint(n.endPoint, e)
	if len(n.children) > 0 {
		kids := r.arena.allocChildren(n.children)
		for i, child := range kids {
			kids[i] = r.shiftNode(child, e)
		}
		c.children = kids
	}
	return c
}
