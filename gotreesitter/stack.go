package gotreesitter

// stackEntry is one slot of the parse stack. Extra entries hold nodes the
// grammar does not account for (recovered ERROR nodes); they carry the
// state of the entry beneath them and are skipped when counting
// reduction children.
type stackEntry struct {
	state StateID
	node  *Node
	extra bool
}

// parseStack is the LR stack of the statement chunk being parsed.
type parseStack struct {
	entries []stackEntry
}

func newParseStack(initial StateID) parseStack {
	return parseStack{
		entries: []stackEntry{{state: initial}},
	}
}

func (s *parseStack) reset(initial StateID) {
	s.entries = append(s.entries[:0], stackEntry{state: initial})
}

func (s *parseStack) top() stackEntry {
	return s.entries[len(s.entries)-1]
}

func (s *parseStack) push(state StateID, n *Node, extra bool) {
	s.entries = append(s.entries, stackEntry{state: state, node: n, extra: extra})
}

// pushExtra pushes a node outside the grammar, keeping the current state.
func (s *parseStack) pushExtra(n *Node) {
	s.push(s.top().state, n, true)
}

func (s *parseStack) empty() bool {
	return len(s.entries) <= 1
}

// onlyExtras reports whether every entry above the base is an extra.
func (s *parseStack) onlyExtras() bool {
	for _, e := range s.entries[1:] {
		if !e.extra {
			return false
		}
	}
	return true
}

// popTrailingExtras removes extras above the last grammar entry and
// returns them in stack order.
func (s *parseStack) popTrailingExtras() []stackEntry {
	i := len(s.entries)
	for i > 1 && s.entries[i-1].extra {
		i--
	}
	if i == len(s.entries) {
		return nil
	}
	out := append([]stackEntry(nil), s.entries[i:]...)
	s.entries = s.entries[:i]
	return out
}

// popChildren removes entries until count grammar entries have been
// popped and returns them in stack order, extras in between included.
func (s *parseStack) popChildren(count int) []stackEntry {
	i := len(s.entries)
	for count > 0 && i > 1 {
		i--
		if !s.entries[i].extra {
			count--
		}
	}
	out := append([]stackEntry(nil), s.entries[i:]...)
	s.entries = s.entries[:i]
	return out
}

// nodes returns the nodes above the base entry.
func (s *parseStack) nodes() []stackEntry {
	return s.entries[1:]
}
