package grammargen

import (
	"math/bits"
	"slices"
	"strconv"
	"strings"
)

// bitset is a set of terminal symbols.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

func (b bitset) add(i int) bool {
	w, m := i/64, uint64(1)<<(uint(i)%64)
	if b[w]&m != 0 {
		return false
	}
	b[w] |= m
	return true
}

// union adds o to b and reports whether b changed.
func (b bitset) union(o bitset) bool {
	changed := false
	for i, w := range o {
		if b[i]|w != b[i] {
			b[i] |= w
			changed = true
		}
	}
	return changed
}

func (b bitset) clone() bitset { return append(bitset(nil), b...) }

func (b bitset) each(fn func(int)) {
	for wi, w := range b {
		for w != 0 {
			t := bits.TrailingZeros64(w)
			fn(wi*64 + t)
			w &^= 1 << uint(t)
		}
	}
}

// computeFirst computes nullable and FIRST for every symbol by fixpoint.
func (c *compiler) computeFirst() {
	n := len(c.symbols)
	c.nullable = make([]bool, n)
	c.first = make([]bitset, n)
	for i := range c.symbols {
		c.first[i] = newBitset(c.tokenCount)
		if c.symbols[i].terminal() {
			c.first[i].add(i)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, p := range c.prods {
			if p.lhs < 0 {
				continue
			}
			allNullable := true
			for _, s := range p.rhs {
				if c.first[p.lhs].union(c.first[s]) {
					changed = true
				}
				if !c.nullable[s] {
					allNullable = false
					break
				}
			}
			if allNullable && !c.nullable[p.lhs] {
				c.nullable[p.lhs] = true
				changed = true
			}
		}
	}
}

// firstOf returns FIRST(syms) and whether syms is nullable.
func (c *compiler) firstOf(syms []int) (bitset, bool) {
	out := newBitset(c.tokenCount)
	for _, s := range syms {
		out.union(c.first[s])
		if !c.nullable[s] {
			return out, false
		}
	}
	return out, true
}

type lrItem struct {
	prod, dot int
}

type lrState struct {
	kernel []lrItem
	la     map[lrItem]bitset
	trans  map[int]int
}

type closureItem struct {
	item lrItem
	la   bitset
}

func (c *compiler) next(it lrItem) (int, bool) {
	rhs := c.prods[it.prod].rhs
	if it.dot < len(rhs) {
		return rhs[it.dot], true
	}
	return 0, false
}

// closure expands a state's kernel, propagating lookaheads until nothing
// changes. Items are returned in discovery order.
func (c *compiler) closure(s *lrState) []closureItem {
	las := make(map[lrItem]bitset, len(s.kernel))
	var order []lrItem
	var work []lrItem
	for _, it := range s.kernel {
		las[it] = s.la[it].clone()
		order = append(order, it)
		work = append(work, it)
	}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]
		sym, ok := c.next(it)
		if !ok || c.symbols[sym].terminal() {
			continue
		}
		f, nullable := c.firstOf(c.prods[it.prod].rhs[it.dot+1:])
		if nullable {
			f.union(las[it])
		}
		for _, pi := range c.prodsByLHS[sym] {
			ni := lrItem{prod: pi}
			cur, seen := las[ni]
			if !seen {
				las[ni] = f.clone()
				order = append(order, ni)
				work = append(work, ni)
				continue
			}
			if cur.union(f) {
				work = append(work, ni)
			}
		}
	}
	out := make([]closureItem, len(order))
	for i, it := range order {
		out[i] = closureItem{item: it, la: las[it]}
	}
	return out
}

func coreKey(kernel []lrItem) string {
	var b strings.Builder
	for _, it := range kernel {
		b.WriteString(strconv.Itoa(it.prod))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(it.dot))
		b.WriteByte(' ')
	}
	return b.String()
}

func sortItems(items []lrItem) {
	slices.SortFunc(items, func(a, b lrItem) int {
		if a.prod != b.prod {
			return a.prod - b.prod
		}
		return a.dot - b.dot
	})
}

// buildAutomaton builds the LR(0) state graph with merged LALR(1)
// lookaheads. States are numbered in creation order; a state whose kernel
// lookaheads grow is processed again.
func (c *compiler) buildAutomaton() {
	aug := len(c.prods) - 1
	initLA := c.first[c.start].clone()
	initLA.add(0)
	init := &lrState{
		kernel: []lrItem{{prod: aug}},
		la:     map[lrItem]bitset{{prod: aug}: initLA},
	}
	c.states = []*lrState{init}
	index := map[string]int{coreKey(init.kernel): 0}
	queue := []int{0}
	queued := map[int]bool{0: true}

	for len(queue) > 0 {
		si := queue[0]
		queue = queue[1:]
		queued[si] = false
		s := c.states[si]
		items := c.closure(s)

		groups := make(map[int][]closureItem)
		var syms []int
		for _, ci := range items {
			sym, ok := c.next(ci.item)
			if !ok {
				continue
			}
			if _, seen := groups[sym]; !seen {
				syms = append(syms, sym)
			}
			groups[sym] = append(groups[sym], ci)
		}
		slices.Sort(syms)
		s.trans = make(map[int]int, len(syms))

		for _, sym := range syms {
			kernel := make([]lrItem, 0, len(groups[sym]))
			la := make(map[lrItem]bitset, len(groups[sym]))
			for _, ci := range groups[sym] {
				adv := lrItem{prod: ci.item.prod, dot: ci.item.dot + 1}
				if cur, ok := la[adv]; ok {
					cur.union(ci.la)
					continue
				}
				kernel = append(kernel, adv)
				la[adv] = ci.la.clone()
			}
			sortItems(kernel)
			key := coreKey(kernel)
			ti, exists := index[key]
			if !exists {
				ti = len(c.states)
				c.states = append(c.states, &lrState{kernel: kernel, la: la})
				index[key] = ti
				queue = append(queue, ti)
				queued[ti] = true
			} else {
				target := c.states[ti]
				changed := false
				for _, it := range kernel {
					if target.la[it].union(la[it]) {
						changed = true
					}
				}
				if changed && !queued[ti] {
					queue = append(queue, ti)
					queued[ti] = true
				}
			}
			s.trans[sym] = ti
		}
	}

	c.closures = make([][]closureItem, len(c.states))
	for i, s := range c.states {
		c.closures[i] = c.closure(s)
	}
}
