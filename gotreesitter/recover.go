package gotreesitter

// maxSimulationSteps bounds reductions performed while testing a repair.
const maxSimulationSteps = 512

// recover handles a lookahead with no action. It returns true when the
// current chunk was closed.
//
// Repairs are tried in order: insert a missing token (two at end of input)
// that lets the lookahead proceed; close the chunk as an ERROR node when
// the lookahead can begin a new item; otherwise skip the lookahead into an
// ERROR node.
func (r *parseRun) recover() bool {
	la := r.lookahead
	atEOF := la.IsEOF()
	canStart := r.lang.CanStartChunk(la.Symbol)

	if (atEOF || canStart) && !r.stack.onlyExtras() && r.missingAt != int64(la.StartByte) {
		depth := 1
		if atEOF {
			depth = 2
		}
		if syms := r.findInsertion(depth); syms != nil {
			r.missingAt = int64(la.StartByte)
			r.insertMissing(syms)
			return false
		}
	}
	if atEOF || canStart {
		r.closeWithError()
		return true
	}
	r.skipLookahead()
	return false
}

// simStack is a view of the parse stack's states for simulating actions.
// Pops walk down the shared entries; pushes go to a private overlay, so a
// simulation costs its own steps and not the stack depth.
type simStack struct {
	base []stackEntry
	n    int
	over []StateID
}

func (s simStack) top() StateID {
	if len(s.over) > 0 {
		return s.over[len(s.over)-1]
	}
	return s.base[s.n-1].state
}

// pop removes count grammar entries, reporting false if the stack runs out.
func (s *simStack) pop(count int) bool {
	for ; count > 0; count-- {
		if len(s.over) > 0 {
			s.over = s.over[:len(s.over)-1]
			continue
		}
		for s.n > 1 && s.base[s.n-1].extra {
			s.n--
		}
		if s.n <= 1 {
			return false
		}
		s.n--
	}
	return true
}

// simulate runs the table on st until sym is shifted or accepted.
func (r *parseRun) simulate(st simStack, sym Symbol) (simStack, ParseActionType) {
	st.over = append([]StateID(nil), st.over...)
	for step := 0; step < maxSimulationSteps; step++ {
		act, ok := r.lang.Action(st.top(), sym)
		if !ok {
			return simStack{}, ParseActionError
		}
		switch act.Type {
		case ParseActionShift:
			st.over = append(st.over, act.State)
			return st, ParseActionShift
		case ParseActionAccept:
			return st, ParseActionAccept
		case ParseActionReduce:
			if !st.pop(int(act.ChildCount)) {
				return simStack{}, ParseActionError
			}
			next, ok := r.lang.Goto(st.top(), act.Symbol)
			if !ok {
				return simStack{}, ParseActionError
			}
			st.over = append(st.over, next)
		}
	}
	return simStack{}, ParseActionError
}

func (r *parseRun) proceeds(st simStack, sym Symbol) bool {
	_, result := r.simulate(st, sym)
	if sym == 0 {
		return result == ParseActionAccept
	}
	return result == ParseActionShift || result == ParseActionAccept
}

// findInsertion searches, in symbol order, for up to depth tokens whose
// insertion lets the lookahead proceed.
func (r *parseRun) findInsertion(depth int) []Symbol {
	states := simStack{base: r.stack.entries, n: len(r.stack.entries)}
	la := r.lookahead.Symbol
	type candidate struct {
		sym    Symbol
		states simStack
	}
	var shifted []candidate
	for x := Symbol(1); uint32(x) < r.lang.TokenCount; x++ {
		after, result := r.simulate(states, x)
		if result != ParseActionShift {
			continue
		}
		if r.proceeds(after, la) {
			return []Symbol{x}
		}
		shifted = append(shifted, candidate{x, after})
	}
	if depth < 2 {
		return nil
	}
	for _, c := range shifted {
		for y := Symbol(1); uint32(y) < r.lang.TokenCount; y++ {
			after, result := r.simulate(c.states, y)
			if result != ParseActionShift {
				continue
			}
			if r.proceeds(after, la) {
				return []Symbol{c.sym, y}
			}
		}
	}
	return nil
}

// insertMissing queues zero-width MISSING tokens at the end of the last
// consumed token, ahead of the real lookahead.
func (r *parseRun) insertMissing(syms []Symbol) {
	queue := make([]Token, 0, len(syms)+1+len(r.pending))
	for _, sym := range syms {
		r.logger.Debug("parser: insert missing",
			"symbol", r.lang.SymbolName(sym), "byte", r.lastEnd)
		queue = append(queue, Token{
			Symbol:     sym,
			StartByte:  r.lastEnd,
			EndByte:    r.lastEnd,
			StartPoint: r.lastEndPoint,
			EndPoint:   r.lastEndPoint,
			missing:    true,
		})
	}
	queue = append(queue, r.lookahead)
	queue = append(queue, r.pending...)
	r.pending = queue[1:]
	r.lookahead = queue[0]
}

// closeWithError ends the current chunk, wrapping its stack in an ERROR
// node.
func (r *parseRun) closeWithError() {
	entries := r.stack.nodes()
	if len(entries) == 0 {
		return
	}
	if r.stack.onlyExtras() {
		nodes := make([]*Node, 0, len(entries))
		for _, e := range entries {
			nodes = append(nodes, e.node)
		}
		r.finishChunk(nodes)
		return
	}
	r.kids, r.fids = r.kids[:0], r.fids[:0]
	for _, e := range entries {
		if e.extra && e.node.IsError() && len(e.node.children) > 0 {
			// Absorb skipped-token ERROR nodes into the wrapper.
			r.kids = append(r.kids, e.node.children...)
			continue
		}
		r.splice(e.node, 0)
	}
	n := r.arena.allocNode()
	initParent(n, ErrorSymbol, true, r.arena.allocChildren(r.kids), nil, 0)
	r.logger.Debug("parser: close chunk with error",
		"start", n.startByte, "end", n.endByte)
	r.finishChunk([]*Node{n})
}

// skipLookahead consumes the lookahead into an ERROR node kept as an
// extra. Consecutive skipped tokens share one ERROR node, which grows in
// place while it stays on top of the stack.
func (r *parseRun) skipLookahead() {
	tok := r.lookahead
	leaf := r.leaf(tok)
	r.logger.Debug("parser: skip token",
		"symbol", r.lang.SymbolName(tok.Symbol), "byte", tok.StartByte)

	top := r.stack.top()
	switch {
	case !r.stack.empty() && top.extra && top.node == r.skipNode:
		r.skipped = append(r.skipped, leaf)
		r.skipNode.children = r.skipped
		r.skipNode.endByte, r.skipNode.endPoint = leaf.endByte, leaf.endPoint
	case !r.stack.empty() && top.extra && top.node.IsError():
		r.stack.entries = r.stack.entries[:len(r.stack.entries)-1]
		if len(top.node.children) == 0 {
			r.openSkipRun([]*Node{top.node, leaf})
		} else {
			r.openSkipRun(append(append(make([]*Node, 0, 2*len(top.node.children)+1), top.node.children...), leaf))
		}
	case tok.Symbol == ErrorSymbol:
		leaf.isExtra = true
		r.stack.pushExtra(leaf)
	default:
		r.openSkipRun([]*Node{leaf})
	}
	r.lastEnd, r.lastEndPoint = tok.EndByte, tok.EndPoint
	r.advance()
}

// openSkipRun pushes a new extra ERROR node over kids and makes it the
// node later skipped tokens are appended to.
func (r *parseRun) openSkipRun(kids []*Node) {
	n := r.arena.allocNode()
	initParent(n, ErrorSymbol, true, kids, nil, 0)
	n.isExtra = true
	r.stack.pushExtra(n)
	r.skipNode, r.skipped = n, kids
}
