package grammargen

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

type symbolKind uint8

const (
	symEnd symbolKind = iota
	symToken
	symLiteral
	symRule
	symAux
)

type symbol struct {
	name    string
	kind    symbolKind
	visible bool
	named   bool
}

func (s symbol) terminal() bool { return s.kind <= symLiteral }

// alt is one flattened alternative of a rule expression.
type alt struct {
	syms    []int
	fields  []string
	prec    int
	assoc   Assoc
	hasPrec bool
}

type production struct {
	index  int
	lhs    int // -1 for the augmented start production
	rhs    []int
	fields []string
	prec   int
	assoc  Assoc
}

type compiler struct {
	g       *Grammar
	logger  *slog.Logger
	maxAlts int

	symbols    []symbol
	byName     map[string]int
	literals   map[string]int
	tokenCount int
	root       int
	start      int

	prods      []production
	prodsByLHS map[int][]int
	auxCount   map[string]int
	pending    []auxDef
	fieldSet   map[string]bool

	nullable []bool
	first    []bitset

	states    []*lrState
	closures  [][]closureItem
	actions   []map[int]action
	conflicts []Conflict
}

type auxDef struct {
	sym  int
	alts []alt
}

// declare assigns symbol IDs: end, named tokens, literal tokens in order
// of first appearance, rules, then repeat helpers as flattening creates
// them.
func (c *compiler) declare() error {
	if len(c.g.Rules) == 0 {
		return fmt.Errorf("%w: grammar %q has no rules", ErrInvalidRoot, c.g.Name)
	}
	c.byName = make(map[string]int)
	c.literals = make(map[string]int)
	c.symbols = append(c.symbols, symbol{name: "end", kind: symEnd})

	for _, name := range c.g.Tokens {
		if _, dup := c.byName[name]; dup {
			return fmt.Errorf("%w: token %q", ErrDuplicateName, name)
		}
		c.byName[name] = len(c.symbols)
		c.symbols = append(c.symbols, symbol{name: name, kind: symToken, visible: true, named: true})
	}
	for _, rd := range c.g.Rules {
		c.collectLiterals(rd.Rule)
	}
	c.tokenCount = len(c.symbols)

	for _, rd := range c.g.Rules {
		if _, dup := c.byName[rd.Name]; dup {
			return fmt.Errorf("%w: rule %q", ErrDuplicateName, rd.Name)
		}
		visible := !strings.HasPrefix(rd.Name, "_")
		c.byName[rd.Name] = len(c.symbols)
		c.symbols = append(c.symbols, symbol{name: rd.Name, kind: symRule, visible: visible, named: visible})
	}

	rootDef := c.g.Rules[0]
	c.root = c.byName[rootDef.Name]
	rep, ok := rootDef.Rule.(RepeatRule)
	if !ok {
		return fmt.Errorf("%w: rule %q", ErrInvalidRoot, rootDef.Name)
	}
	item, ok := rep.Content.(SymbolRule)
	if !ok {
		return fmt.Errorf("%w: rule %q", ErrInvalidRoot, rootDef.Name)
	}
	id, ok := c.byName[item.Name]
	if !ok {
		return fmt.Errorf("%w: %q in rule %q", ErrUndefinedSymbol, item.Name, rootDef.Name)
	}
	if c.symbols[id].terminal() || id == c.root {
		return fmt.Errorf("%w: item %q must be a rule", ErrInvalidRoot, item.Name)
	}
	if !c.symbols[c.root].visible {
		return fmt.Errorf("%w: root %q must be visible", ErrInvalidRoot, rootDef.Name)
	}
	c.start = id
	return nil
}

func (c *compiler) collectLiterals(r Rule) {
	switch r := r.(type) {
	case StringRule:
		if _, ok := c.literals[r.Value]; !ok {
			c.literals[r.Value] = len(c.symbols)
			c.symbols = append(c.symbols, symbol{name: r.Value, kind: symLiteral, visible: true})
		}
	case SeqRule:
		for _, m := range r.Members {
			c.collectLiterals(m)
		}
	case ChoiceRule:
		for _, m := range r.Members {
			c.collectLiterals(m)
		}
	case RepeatRule:
		c.collectLiterals(r.Content)
	case Repeat1Rule:
		c.collectLiterals(r.Content)
	case FieldRule:
		c.collectLiterals(r.Content)
	case PrecRule:
		c.collectLiterals(r.Content)
	}
}

// flatten expands every rule except the root into productions. A rule's
// productions are followed by those of the repeat helpers it created. The
// augmented start production is appended last.
func (c *compiler) flatten() error {
	c.prodsByLHS = make(map[int][]int)
	c.auxCount = make(map[string]int)
	c.fieldSet = make(map[string]bool)
	for _, rd := range c.g.Rules[1:] {
		alts, err := c.expand(rd.Rule, rd.Name)
		if err != nil {
			return err
		}
		c.addProductions(c.byName[rd.Name], alts)
		for _, aux := range c.pending {
			c.addProductions(aux.sym, aux.alts)
		}
		c.pending = c.pending[:0]
	}
	if len(c.prods) >= 1<<16 {
		return fmt.Errorf("%w: %d productions", ErrTableOverflow, len(c.prods))
	}
	for _, p := range c.prods {
		if len(p.rhs) > 255 {
			return fmt.Errorf("%w: production of %q has %d children", ErrTableOverflow, c.symbols[p.lhs].name, len(p.rhs))
		}
	}
	c.prods = append(c.prods, production{
		index:  len(c.prods),
		lhs:    -1,
		rhs:    []int{c.start},
		fields: []string{""},
	})
	return nil
}

func (c *compiler) addProductions(lhs int, alts []alt) {
	var seen []alt
	for _, a := range alts {
		if slices.ContainsFunc(seen, func(b alt) bool { return sameAlt(a, b) }) {
			continue
		}
		seen = append(seen, a)
		p := production{
			index:  len(c.prods),
			lhs:    lhs,
			rhs:    a.syms,
			fields: a.fields,
			prec:   a.prec,
			assoc:  a.assoc,
		}
		c.prods = append(c.prods, p)
		c.prodsByLHS[lhs] = append(c.prodsByLHS[lhs], p.index)
	}
}

func sameAlt(a, b alt) bool {
	return slices.Equal(a.syms, b.syms) && slices.Equal(a.fields, b.fields) &&
		a.prec == b.prec && a.assoc == b.assoc
}

func (c *compiler) expand(r Rule, owner string) ([]alt, error) {
	switch r := r.(type) {
	case BlankRule:
		return []alt{{}}, nil

	case StringRule:
		return []alt{{syms: []int{c.literals[r.Value]}, fields: []string{""}}}, nil

	case SymbolRule:
		id, ok := c.byName[r.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q in rule %q", ErrUndefinedSymbol, r.Name, owner)
		}
		if id == c.root {
			return nil, fmt.Errorf("%w: rule %q refers to the root", ErrInvalidRoot, owner)
		}
		return []alt{{syms: []int{id}, fields: []string{""}}}, nil

	case SeqRule:
		out := []alt{{}}
		for _, m := range r.Members {
			next, err := c.expand(m, owner)
			if err != nil {
				return nil, err
			}
			if len(out)*len(next) > c.maxAlts {
				return nil, fmt.Errorf("%w: rule %q", ErrTooManyAlternatives, owner)
			}
			product := make([]alt, 0, len(out)*len(next))
			for _, a := range out {
				for _, b := range next {
					product = append(product, concatAlt(a, b))
				}
			}
			out = product
		}
		return out, nil

	case ChoiceRule:
		var out []alt
		for _, m := range r.Members {
			alts, err := c.expand(m, owner)
			if err != nil {
				return nil, err
			}
			out = append(out, alts...)
			if len(out) > c.maxAlts {
				return nil, fmt.Errorf("%w: rule %q", ErrTooManyAlternatives, owner)
			}
		}
		return out, nil

	case RepeatRule:
		aux, err := c.repeatHelper(r.Content, owner)
		if err != nil {
			return nil, err
		}
		return []alt{{syms: []int{aux}, fields: []string{""}}, {}}, nil

	case Repeat1Rule:
		aux, err := c.repeatHelper(r.Content, owner)
		if err != nil {
			return nil, err
		}
		return []alt{{syms: []int{aux}, fields: []string{""}}}, nil

	case FieldRule:
		alts, err := c.expand(r.Content, owner)
		if err != nil {
			return nil, err
		}
		c.fieldSet[r.Name] = true
		for i := range alts {
			for j, f := range alts[i].fields {
				if f == "" {
					alts[i].fields[j] = r.Name
				}
			}
		}
		return alts, nil

	case PrecRule:
		alts, err := c.expand(r.Content, owner)
		if err != nil {
			return nil, err
		}
		for i := range alts {
			if !alts[i].hasPrec {
				alts[i].prec, alts[i].assoc, alts[i].hasPrec = r.Value, r.Assoc, true
			}
		}
		return alts, nil
	}
	return nil, fmt.Errorf("grammargen: unknown rule type %T in rule %q", r, owner)
}

// repeatHelper declares owner_repeatN with productions "aux -> aux x" and
// "aux -> x" for every alternative x of content.
func (c *compiler) repeatHelper(content Rule, owner string) (int, error) {
	alts, err := c.expand(content, owner)
	if err != nil {
		return 0, err
	}
	c.auxCount[owner]++
	aux := len(c.symbols)
	c.symbols = append(c.symbols, symbol{
		name: fmt.Sprintf("%s_repeat%d", owner, c.auxCount[owner]),
		kind: symAux,
	})
	var nonEmpty []alt
	for _, a := range alts {
		if len(a.syms) > 0 {
			nonEmpty = append(nonEmpty, a)
		}
	}
	if len(nonEmpty) == 0 {
		return 0, fmt.Errorf("grammargen: rule %q repeats an empty rule", owner)
	}
	def := auxDef{sym: aux}
	self := alt{syms: []int{aux}, fields: []string{""}}
	for _, a := range nonEmpty {
		def.alts = append(def.alts, concatAlt(self, a))
	}
	def.alts = append(def.alts, nonEmpty...)
	c.pending = append(c.pending, def)
	return aux, nil
}

// concatAlt joins two alternatives; the first precedence set wins.
func concatAlt(a, b alt) alt {
	out := alt{
		syms:   append(append(make([]int, 0, len(a.syms)+len(b.syms)), a.syms...), b.syms...),
		fields: append(append(make([]string, 0, len(a.fields)+len(b.fields)), a.fields...), b.fields...),
	}
	switch {
	case a.hasPrec:
		out.prec, out.assoc, out.hasPrec = a.prec, a.assoc, true
	case b.hasPrec:
		out.prec, out.assoc, out.hasPrec = b.prec, b.assoc, true
	}
	return out
}
