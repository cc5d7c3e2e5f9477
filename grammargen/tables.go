package grammargen

import (
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/odvcencio/parsley/gotreesitter"
)

// emitLanguage converts the resolved automaton into runtime tables.
func (c *compiler) emitLanguage() *gotreesitter.Language {
	aug := len(c.prods) - 1
	lang := &gotreesitter.Language{
		Name:              c.g.Name,
		Version:           gotreesitter.RuntimeVersion,
		SymbolCount:       uint32(len(c.symbols)),
		TokenCount:        uint32(c.tokenCount),
		StateCount:        uint32(len(c.states)),
		ProductionIDCount: uint32(aug),
		InitialState:      0,
		RootSymbol:        gotreesitter.Symbol(c.root),
	}
	for _, s := range c.symbols {
		lang.SymbolNames = append(lang.SymbolNames, s.name)
		lang.SymbolMetadata = append(lang.SymbolMetadata, gotreesitter.SymbolMetadata{
			Name:    s.name,
			Visible: s.visible,
			Named:   s.named,
		})
	}

	fields := make([]string, 0, len(c.fieldSet))
	for f := range c.fieldSet {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	lang.FieldNames = append([]string{""}, fields...)
	lang.FieldCount = uint32(len(fields))
	fieldID := make(map[string]gotreesitter.FieldID, len(fields))
	for i, f := range fields {
		fieldID[f] = gotreesitter.FieldID(i + 1)
	}

	for _, p := range c.prods[:aug] {
		lang.ProductionLHS = append(lang.ProductionLHS, gotreesitter.Symbol(p.lhs))
		start := len(lang.FieldMapEntries)
		for i, f := range p.fields {
			if f == "" {
				continue
			}
			lang.FieldMapEntries = append(lang.FieldMapEntries, gotreesitter.FieldMapEntry{
				FieldID:    fieldID[f],
				ChildIndex: uint8(i),
			})
		}
		n := len(lang.FieldMapEntries) - start
		if n == 0 {
			start = 0
		}
		lang.FieldMapSlices = append(lang.FieldMapSlices, [2]uint16{uint16(start), uint16(n)})
	}

	actionIndex := map[gotreesitter.ParseAction]uint16{{}: 0}
	lang.ParseActions = []gotreesitter.ParseAction{{}}
	intern := func(a gotreesitter.ParseAction) uint16 {
		if idx, ok := actionIndex[a]; ok {
			return idx
		}
		idx := uint16(len(lang.ParseActions))
		lang.ParseActions = append(lang.ParseActions, a)
		actionIndex[a] = idx
		return idx
	}

	lang.ParseTable = make([][]uint16, len(c.states))
	for si := range c.states {
		row := make([]uint16, len(c.symbols))
		syms := make([]int, 0, len(c.actions[si]))
		for sym := range c.actions[si] {
			syms = append(syms, sym)
		}
		slices.Sort(syms)
		for _, sym := range syms {
			a := c.actions[si][sym]
			var pa gotreesitter.ParseAction
			switch a.kind {
			case actShift:
				pa = gotreesitter.ParseAction{Type: gotreesitter.ParseActionShift, State: gotreesitter.StateID(a.target)}
			case actAccept:
				pa = gotreesitter.ParseAction{Type: gotreesitter.ParseActionAccept}
			case actReduce:
				p := c.prods[a.prod]
				pa = gotreesitter.ParseAction{
					Type:         gotreesitter.ParseActionReduce,
					Symbol:       gotreesitter.Symbol(p.lhs),
					ChildCount:   uint8(len(p.rhs)),
					ProductionID: uint16(p.index),
				}
			}
			row[sym] = intern(pa)
		}
		lang.ParseTable[si] = row
	}

	lang.LexStates = c.literalDFA()
	return lang
}

// literalDFA builds a trie over the punctuation and operator literals. Word
// literals are keywords, recognised by the token source after scanning an
// identifier.
func (c *compiler) literalDFA() []gotreesitter.LexState {
	states := []gotreesitter.LexState{{Default: -1}}
	for sym, s := range c.symbols[:c.tokenCount] {
		if s.kind != symLiteral || isWordLiteral(s.name) {
			continue
		}
		cur := 0
		for _, r := range s.name {
			next := -1
			for _, tr := range states[cur].Transitions {
				if tr.Lo == r {
					next = tr.NextState
					break
				}
			}
			if next < 0 {
				next = len(states)
				states = append(states, gotreesitter.LexState{Default: -1})
				states[cur].Transitions = append(states[cur].Transitions, gotreesitter.LexTransition{Lo: r, Hi: r, NextState: next})
			}
			cur = next
		}
		states[cur].AcceptToken = gotreesitter.Symbol(sym)
	}
	for i := range states {
		slices.SortFunc(states[i].Transitions, func(a, b gotreesitter.LexTransition) int {
			return int(a.Lo - b.Lo)
		})
	}
	return states
}

func isWordLiteral(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
