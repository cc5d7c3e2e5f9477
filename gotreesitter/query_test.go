package gotreesitter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureTexts renders matches as "name=text" per capture.
func captureTexts(tree *Tree, matches []QueryMatch) [][]string {
	var out [][]string
	for _, m := range matches {
		var caps []string
		for _, c := range m.Captures {
			caps = append(caps, c.Name+"="+c.Node.Text(tree.Source()))
		}
		out = append(out, caps)
	}
	return out
}

func TestQueryExecute(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		src   string
		query string
		want  [][]string
	}{
		{
			name:  "named node",
			src:   "1 + 2",
			query: `(number) @n`,
			want:  [][]string{{"n=1"}, {"n=2"}},
		},
		{
			name:  "anonymous literal",
			src:   "1 + 2 + 3",
			query: `"+" @op`,
			want:  [][]string{{"op=+"}, {"op=+"}},
		},
		{
			name:  "fields",
			src:   "1 + 2 + 3",
			query: `(expression left: (expression) @l right: (number) @r)`,
			want:  [][]string{{"l=1 + 2", "r=3"}, {"l=1", "r=2"}},
		},
		{
			name:  "negated field",
			src:   "1 + 2",
			query: `(expression !left) @leaf`,
			want:  [][]string{{"leaf=1"}},
		},
		{
			name:  "named wildcard child",
			src:   "1 + 2",
			query: `(expression (_) @first)`,
			want:  [][]string{{"first=1"}, {"first=1"}},
		},
		{
			name:  "bare wildcard matches anonymous nodes",
			src:   "7",
			query: `(program _ @any)`,
			want:  [][]string{{"any=7"}},
		},
		{
			name:  "ordered children",
			src:   "1 + 2",
			query: `(expression (expression) @a "+" (number) @b)`,
			want:  [][]string{{"a=1", "b=2"}},
		},
		{
			name:  "children out of order do not match",
			src:   "1 + 2",
			query: `(expression (number) "+" (expression))`,
			want:  nil,
		},
		{
			name:  "alternation",
			src:   "1 + 2",
			query: `[(number) "+"] @x`,
			want:  [][]string{{"x=1"}, {"x=+"}, {"x=2"}},
		},
		{
			name:  "error nodes",
			src:   "1 + + 2",
			query: `(ERROR) @e`,
			want:  [][]string{{"e=+"}},
		},
		{
			name:  "eq literal",
			src:   "1 + 2",
			query: `((number) @n (#eq? @n "2"))`,
			want:  [][]string{{"n=2"}},
		},
		{
			name:  "trailing predicate",
			src:   "1 + 2",
			query: `(number) @n (#not-eq? @n "2")`,
			want:  [][]string{{"n=1"}},
		},
		{
			name:  "eq captures",
			src:   "1 + 1 + 2",
			query: `(expression left: (expression right: (number) @a) right: (number) @b (#eq? @a @b))`,
			want:  nil,
		},
		{
			name:  "match",
			src:   "10 + 2 + 30",
			query: `((number) @n (#match? @n "^[0-9]{2}$"))`,
			want:  [][]string{{"n=10"}, {"n=30"}},
		},
		{
			name:  "not match",
			src:   "10 + 2",
			query: `((number) @n (#not-match? @n "0"))`,
			want:  [][]string{{"n=2"}},
		},
		{
			name:  "any of",
			src:   "1 + 2 + 3",
			query: `((number) @n (#any-of? @n "1" "3"))`,
			want:  [][]string{{"n=1"}, {"n=3"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := parseSum(t, tt.src)
			q, err := NewQuery(tt.query, tree.Language())
			require.NoError(t, err)
			assert.Equal(t, tt.want, captureTexts(tree, q.Execute(tree)))
		})
	}
}

func TestQueryErrors(t *testing.T) {
	t.Parallel()
	lang := buildSumLanguage()
	tests := []struct {
		name   string
		query  string
		offset int
	}{
		{"unknown node type", `(number) (sum)`, 10},
		{"unknown literal", `"-" @op`, 0},
		{"unknown field", `(expression middle: (number))`, 12},
		{"unterminated", `(expression (number)`, 20},
		{"predicate first", `(#eq? @a "1")`, 0},
		{"unknown capture", `((number) @n (#eq? @m "1"))`, 0},
		{"bad regex", `((number) @n (#match? @n "("))`, 13},
		{"unsupported predicate", `((number) @n (#set! @n "x"))`, 13},
		{"quantifier", `(expression (number)*)`, 20},
		{"empty alternation", `[] @x`, 0},
		{"stray character", `(number) }`, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewQuery(tt.query, lang)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidQuery))
			var pe *PatternError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.offset, pe.Offset, pe.Error())
		})
	}
}

func TestQueryMetadata(t *testing.T) {
	t.Parallel()
	q, err := NewQuery(`
; numbers first
(number) @n
"+" @op
(expression left: (_) @lhs) @expr
`, buildSumLanguage())
	require.NoError(t, err)
	assert.Equal(t, 3, q.PatternCount())
	assert.Equal(t, []string{"n", "op", "lhs", "expr"}, q.CaptureNames())
	assert.Equal(t, 17, q.PatternOffset(0))
	assert.Equal(t, -1, q.PatternOffset(5))
}

func TestQueryCursorFirstPatternWins(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "1 + 2")
	q, err := NewQuery(`
(expression right: (number) @right)
(number) @number
(expression) @expression
`, tree.Language())
	require.NoError(t, err)

	var got []string
	for _, c := range NewQueryCursor(q, tree).Captures() {
		got = append(got, c.Name+"="+c.Node.Text(tree.Source()))
	}
	// Pre-order of captured nodes; "2" keeps the capture of pattern 0.
	assert.Equal(t, []string{"expression=1 + 2", "expression=1", "number=1", "right=2"}, got)
}

func TestQueryCursorRestartable(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "1 + 2\n3 + 4")
	q, err := NewQuery(`(number) @n`, tree.Language())
	require.NoError(t, err)

	c := NewQueryCursor(q, tree)
	first, ok := c.NextCapture()
	require.True(t, ok)
	assert.Equal(t, "1", first.Node.Text(tree.Source()))
	assert.Len(t, c.Captures(), 3)

	c.Reset()
	assert.Len(t, c.Captures(), 4)

	c.SetByteRange(6, 11)
	var texts []string
	for _, capture := range c.Captures() {
		texts = append(texts, capture.Node.Text(tree.Source()))
	}
	assert.Equal(t, []string{"3", "4"}, texts)
}

func TestQueryDeterministic(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "1 + 2 + x\n+ 3 4")
	q, err := NewQuery(`(number) @n (expression) @e (ERROR) @err "+" @op`, tree.Language())
	require.NoError(t, err)
	first := NewQueryCursor(q, tree).Captures()
	for range 5 {
		assert.Equal(t, first, NewQueryCursor(q, tree).Captures())
	}
}
