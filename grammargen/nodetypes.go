package grammargen

import (
	"sort"

	"github.com/odvcencio/parsley/gotreesitter"
)

// slotKey groups children by field. Unfielded children are split into
// named and anonymous slots; only the named one is reported as children.
type slotKey struct {
	field string
	anon  bool
}

type slot struct {
	types    map[gotreesitter.NodeTypeRef]bool
	min, max int
}

// summary describes the visible children a symbol can contribute. A nil
// summary means no derivation is known yet.
type summary map[slotKey]*slot

func capCount(n int) int { return min(n, 2) }

func (s *slot) clone() *slot {
	out := &slot{types: make(map[gotreesitter.NodeTypeRef]bool, len(s.types)), min: s.min, max: s.max}
	for t := range s.types {
		out.types[t] = true
	}
	return out
}

// addSibling merges o into s as children appearing alongside it.
func (s *slot) addSibling(o *slot) {
	for t := range o.types {
		s.types[t] = true
	}
	s.min = capCount(s.min + o.min)
	s.max = capCount(s.max + o.max)
}

func seqSummary(a, b summary) summary {
	if a == nil || b == nil {
		return nil
	}
	out := make(summary, len(a)+len(b))
	for k, s := range a {
		out[k] = s.clone()
	}
	for k, s := range b {
		if cur, ok := out[k]; ok {
			cur.addSibling(s)
		} else {
			out[k] = s.clone()
		}
	}
	return out
}

func choiceSummary(sums []summary) summary {
	var live []summary
	for _, s := range sums {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	out := make(summary)
	for _, s := range live {
		for k := range s {
			out[k] = &slot{types: make(map[gotreesitter.NodeTypeRef]bool), min: 2}
		}
	}
	for k, acc := range out {
		for _, s := range live {
			sl, ok := s[k]
			if !ok {
				acc.min = 0
				continue
			}
			for t := range sl.types {
				acc.types[t] = true
			}
			acc.min = min(acc.min, sl.min)
			acc.max = max(acc.max, sl.max)
		}
	}
	return out
}

func equalSummary(a, b summary) bool {
	if (a == nil) != (b == nil) || len(a) != len(b) {
		return false
	}
	for k, sa := range a {
		sb, ok := b[k]
		if !ok || sa.min != sb.min || sa.max != sb.max || len(sa.types) != len(sb.types) {
			return false
		}
		for t := range sa.types {
			if !sb.types[t] {
				return false
			}
		}
	}
	return true
}

type nodeTypeBuilder struct {
	c      *compiler
	hidden map[int]summary
}

func (b *nodeTypeBuilder) position(sym int, field string) summary {
	s := b.c.symbols[sym]
	if s.visible {
		ref := gotreesitter.NodeTypeRef{Type: s.name, Named: s.named}
		key := slotKey{field: field}
		if field == "" {
			key.anon = !s.named
		}
		return summary{key: {types: map[gotreesitter.NodeTypeRef]bool{ref: true}, min: 1, max: 1}}
	}
	inner := b.hidden[sym]
	if inner == nil || field == "" {
		return inner
	}
	out := make(summary, len(inner))
	for k, sl := range inner {
		nk := k
		if k.field == "" {
			nk = slotKey{field: field}
		}
		if cur, ok := out[nk]; ok {
			cur.addSibling(sl)
		} else {
			out[nk] = sl.clone()
		}
	}
	return out
}

func (b *nodeTypeBuilder) production(p production) summary {
	acc := summary{}
	for i, sym := range p.rhs {
		acc = seqSummary(acc, b.position(sym, p.fields[i]))
		if acc == nil {
			return nil
		}
	}
	return acc
}

func (b *nodeTypeBuilder) symbol(sym int) summary {
	prods := b.c.prodsByLHS[sym]
	sums := make([]summary, 0, len(prods))
	for _, pi := range prods {
		sums = append(sums, b.production(b.c.prods[pi]))
	}
	return choiceSummary(sums)
}

// nodeTypes derives the node-type schema from the productions. Hidden
// symbols are summarised by fixpoint since they may be recursive.
func (c *compiler) nodeTypes() []gotreesitter.NodeTypeInfo {
	b := &nodeTypeBuilder{c: c, hidden: make(map[int]summary)}
	var hiddenSyms []int
	for i, s := range c.symbols {
		if !s.terminal() && !s.visible {
			hiddenSyms = append(hiddenSyms, i)
		}
	}
	for round := 0; round < 64+len(hiddenSyms); round++ {
		changed := false
		for _, sym := range hiddenSyms {
			next := b.symbol(sym)
			if !equalSummary(next, b.hidden[sym]) {
				b.hidden[sym] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	var out []gotreesitter.NodeTypeInfo
	for i, s := range c.symbols {
		if s.terminal() || !s.visible {
			continue
		}
		var sum summary
		if i == c.root {
			sum = seqSummary(summary{}, b.position(c.start, ""))
			for _, sl := range sum {
				sl.min, sl.max = 0, 2
			}
		} else {
			sum = b.symbol(i)
		}
		out = append(out, nodeTypeInfo(s, sum))
	}
	for _, s := range c.symbols[1:c.tokenCount] {
		out = append(out, gotreesitter.NodeTypeInfo{Type: s.name, Named: s.named})
	}
	return out
}

func nodeTypeInfo(s symbol, sum summary) gotreesitter.NodeTypeInfo {
	info := gotreesitter.NodeTypeInfo{Type: s.name, Named: s.named}
	for k, sl := range sum {
		if len(sl.types) == 0 {
			continue
		}
		ct := gotreesitter.ChildTypeInfo{
			Multiple: sl.max >= 2,
			Required: sl.min >= 1,
			Types:    sortedRefs(sl.types),
		}
		switch {
		case k.field != "":
			if info.Fields == nil {
				info.Fields = make(map[string]gotreesitter.ChildTypeInfo)
			}
			info.Fields[k.field] = ct
		case !k.anon:
			info.Children = &ct
		}
	}
	return info
}

func sortedRefs(set map[gotreesitter.NodeTypeRef]bool) []gotreesitter.NodeTypeRef {
	out := make([]gotreesitter.NodeTypeRef, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Named != out[j].Named {
			return out[i].Named
		}
		return out[i].Type < out[j].Type
	})
	return out
}
