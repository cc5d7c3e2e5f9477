package gotreesitter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSumLanguage constructs a hand-built LR grammar for sums:
//
//	program    -> expression*
//	expression -> number
//	expression -> expression "+" number   (fields left, right)
//
// Each expression is a statement chunk parsed from state 0.
//
// Symbols:
//
//	0: end (hidden)
//	1: number (terminal, named)
//	2: "+" (terminal, anonymous)
//	3: expression (nonterminal, named)
//	4: program (root, named)
//
// States:
//
//	0: number -> shift 1, expression -> goto 2
//	1: reduce expression -> number on end, number, "+"
//	2: end/number -> accept, "+" -> shift 3
//	3: number -> shift 4
//	4: reduce expression -> expression "+" number on end, number, "+"
func buildSumLanguage() *Language {
	return &Language{
		Name:              "sum",
		Version:           RuntimeVersion,
		SymbolCount:       5,
		TokenCount:        3,
		StateCount:        5,
		FieldCount:        2,
		ProductionIDCount: 2,

		SymbolNames: []string{"end", "number", "+", "expression", "program"},
		SymbolMetadata: []SymbolMetadata{
			{Name: "end"},
			{Name: "number", Visible: true, Named: true},
			{Name: "+", Visible: true},
			{Name: "expression", Visible: true, Named: true},
			{Name: "program", Visible: true, Named: true},
		},
		FieldNames: []string{"", "left", "right"},

		ParseActions: []ParseAction{
			{}, // 0: none
			{Type: ParseActionShift, State: 1},
			{Type: ParseActionReduce, Symbol: 3, ChildCount: 1, ProductionID: 0},
			{Type: ParseActionShift, State: 2},
			{Type: ParseActionShift, State: 3},
			{Type: ParseActionAccept},
			{Type: ParseActionShift, State: 4},
			{Type: ParseActionReduce, Symbol: 3, ChildCount: 3, ProductionID: 1},
		},
		// Columns: end, number, "+", expression, program
		ParseTable: [][]uint16{
			{0, 1, 0, 3, 0},
			{2, 2, 2, 0, 0},
			{5, 5, 4, 0, 0},
			{0, 6, 0, 0, 0},
			{7, 7, 7, 0, 0},
		},
		LexStates: []LexState{
			{Default: -1, Transitions: []LexTransition{{Lo: '+', Hi: '+', NextState: 1}}},
			{AcceptToken: 2, Default: -1},
		},
		FieldMapSlices:  [][2]uint16{{0, 0}, {0, 2}},
		FieldMapEntries: []FieldMapEntry{{FieldID: 1, ChildIndex: 0}, {FieldID: 2, ChildIndex: 2}},
		ProductionLHS:   []Symbol{3, 3},
		InitialState:    0,
		RootSymbol:      4,
		Trivia:          slashComments,
	}
}

// slashComments reports // comments in a trivia run.
func slashComments(trivia []byte) [][2]int {
	var out [][2]int
	for i := 0; i+1 < len(trivia); i++ {
		if trivia[i] != '/' || trivia[i+1] != '/' {
			continue
		}
		j := i
		for j < len(trivia) && trivia[j] != '\n' {
			j++
		}
		out = append(out, [2]int{i, j})
		i = j
	}
	return out
}

func parseSum(t *testing.T, src string) *Tree {
	t.Helper()
	tree := NewParser(buildSumLanguage()).Parse([]byte(src))
	require.NotNil(t, tree)
	require.NotNil(t, tree.RootNode())
	return tree
}

// requireSameTree checks that two trees have identical shape, symbols,
// flags, fields and ranges.
func requireSameTree(t *testing.T, want, got *Tree) {
	t.Helper()
	lang := want.Language()
	require.Equal(t, want.RootNode().String(lang), got.RootNode().String(lang))
	var walk func(a, b *Node, path string)
	walk = func(a, b *Node, path string) {
		require.Equal(t, a.Symbol(), b.Symbol(), path)
		require.Equal(t, a.Range(), b.Range(), path)
		require.Equal(t, a.HasError(), b.HasError(), path)
		require.Equal(t, a.IsMissing(), b.IsMissing(), path)
		require.Equal(t, a.IsExtra(), b.IsExtra(), path)
		require.Equal(t, a.ChildCount(), b.ChildCount(), path)
		for i := 0; i < a.ChildCount(); i++ {
			require.Equal(t, a.FieldIDForChild(i), b.FieldIDForChild(i), path)
			walk(a.Child(i), b.Child(i), path+"/"+a.Child(i).Type(lang))
		}
	}
	walk(want.RootNode(), got.RootNode(), want.RootNode().Type(lang))
}
