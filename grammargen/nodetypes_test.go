package grammargen

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findType(t *testing.T, types []gotreesitter.NodeTypeInfo, name string, named bool) gotreesitter.NodeTypeInfo {
	t.Helper()
	for _, nt := range types {
		if nt.Type == name && nt.Named == named {
			return nt
		}
	}
	require.Failf(t, "missing node type", "%s (named=%v)", name, named)
	return gotreesitter.NodeTypeInfo{}
}

func ref(name string, named bool) gotreesitter.NodeTypeRef {
	return gotreesitter.NodeTypeRef{Type: name, Named: named}
}

func TestNodeTypesFields(t *testing.T) {
	t.Parallel()
	types := compile(t, arithGrammar()).NodeTypes

	expr := findType(t, types, "expression", true)
	assert.Equal(t, gotreesitter.ChildTypeInfo{
		Types: []gotreesitter.NodeTypeRef{ref("expression", true)},
	}, expr.Fields["left"])
	assert.Equal(t, gotreesitter.ChildTypeInfo{
		Types: []gotreesitter.NodeTypeRef{ref("*", false), ref("+", false), ref("^", false)},
	}, expr.Fields["operator"])
	require.NotNil(t, expr.Children)
	assert.Equal(t, []gotreesitter.NodeTypeRef{ref("number", true)}, expr.Children.Types)
	assert.False(t, expr.Children.Required)

	program := findType(t, types, "program", true)
	require.NotNil(t, program.Children)
	assert.True(t, program.Children.Multiple)
	assert.False(t, program.Children.Required)

	plus := findType(t, types, "+", false)
	assert.Nil(t, plus.Children)
	assert.Empty(t, plus.Fields)
}

func TestNodeTypesThroughHiddenRules(t *testing.T) {
	t.Parallel()
	types := compile(t, pairsGrammar()).NodeTypes

	pair := findType(t, types, "pair", true)
	assert.Equal(t, gotreesitter.ChildTypeInfo{
		Required: true,
		Types:    []gotreesitter.NodeTypeRef{ref("identifier", true)},
	}, pair.Fields["key"])
	assert.Equal(t, gotreesitter.ChildTypeInfo{
		Required: true,
		Types:    []gotreesitter.NodeTypeRef{ref("identifier", true), ref("list", true), ref("number", true)},
	}, pair.Fields["value"])
	assert.Nil(t, pair.Children, "anonymous children are not listed")

	list := findType(t, types, "list", true)
	require.NotNil(t, list.Children)
	assert.Equal(t, gotreesitter.ChildTypeInfo{
		Multiple: true,
		Types:    []gotreesitter.NodeTypeRef{ref("identifier", true), ref("list", true), ref("number", true)},
	}, *list.Children)

	for _, nt := range types {
		assert.False(t, strings.HasPrefix(nt.Type, "_"), "hidden rule %s has an entry", nt.Type)
		assert.NotContains(t, nt.Type, "_repeat")
	}
}

func TestNodeTypesMatchLanguage(t *testing.T) {
	t.Parallel()
	for _, g := range []*Grammar{sumGrammar(), arithGrammar(), pairsGrammar(), ifGrammar()} {
		c := compile(t, g)
		require.NoError(t, gotreesitter.ValidateNodeTypes(c.Language, c.NodeTypes), g.Name)

		data, err := MarshalNodeTypes(c.NodeTypes)
		require.NoError(t, err)
		require.NoError(t, ValidateNodeTypesJSON(data), g.Name)

		var back []gotreesitter.NodeTypeInfo
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Len(t, back, len(c.NodeTypes))
	}
}

func TestValidateNodeTypesJSONRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
	}{
		{"not an array", `{"type": "x", "named": true}`},
		{"missing named", `[{"type": "x"}]`},
		{"empty type", `[{"type": "", "named": true}]`},
		{"unknown key", `[{"type": "x", "named": true, "subtypes": []}]`},
		{"empty types list", `[{"type": "x", "named": true, "children": {"multiple": false, "required": false, "types": []}}]`},
		{"bad field", `[{"type": "x", "named": true, "fields": {"f": {"multiple": 1}}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateNodeTypesJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaInvalid), err.Error())
		})
	}
}

func TestGrammarJSON(t *testing.T) {
	t.Parallel()
	data, err := GrammarJSON(arithGrammar())
	require.NoError(t, err)

	var doc struct {
		Name  string                     `json:"name"`
		Rules map[string]json.RawMessage `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "arith", doc.Name)
	assert.Len(t, doc.Rules, 2)

	text := string(data)
	assert.Less(t, strings.Index(text, `"program"`), strings.Index(text, `"expression"`), "rules keep declaration order")
	assert.Contains(t, text, `"type": "PREC_LEFT"`)
	assert.Contains(t, text, `"type": "PREC_RIGHT"`)
	assert.Contains(t, text, `"type": "FIELD"`)
	assert.Contains(t, text, `"type": "REPEAT"`)
}
