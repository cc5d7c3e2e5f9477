package gotreesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// opStates accepts "=" (1), "==" (2) and "==>" (3).
func opStates() []LexState {
	return []LexState{
		{Default: -1, Transitions: []LexTransition{{Lo: '=', Hi: '=', NextState: 1}}},
		{AcceptToken: 1, Default: -1, Transitions: []LexTransition{{Lo: '=', Hi: '=', NextState: 2}}},
		{AcceptToken: 2, Default: -1, Transitions: []LexTransition{{Lo: '>', Hi: '>', NextState: 3}}},
		{AcceptToken: 3, Default: -1},
	}
}

func TestMatchLiteralLongestMatch(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src      string
		sym      Symbol
		end      int
		examined int
		ok       bool
	}{
		{"= 1", 1, 1, 2, true},
		{"==x", 2, 2, 3, true},
		{"==>", 3, 3, 4, true}, // reaching the end counts as looking past it
		{"=", 1, 1, 2, true},
		{"x", 0, 0, 1, false},
	}
	for _, tt := range tests {
		sym, end, examined, ok := MatchLiteral(opStates(), []byte(tt.src), 0)
		assert.Equal(t, tt.ok, ok, tt.src)
		assert.Equal(t, tt.sym, sym, tt.src)
		assert.Equal(t, tt.end, end, tt.src)
		assert.Equal(t, tt.examined, examined, tt.src)
	}
}

func TestScannerTracksExamined(t *testing.T) {
	t.Parallel()
	sc := NewScanner([]byte("ab\ncd"))
	sc.MarkStart()
	sc.Advance()
	sc.Advance()
	assert.Equal(t, byte('\n'), sc.Peek(0))
	assert.Equal(t, byte('c'), sc.Peek(1))
	tok := sc.Token(7, 0)
	assert.Equal(t, "ab", tok.Text)
	assert.Equal(t, uint32(4), tok.LookaheadEnd)
	assert.Equal(t, Point{Column: 2}, tok.EndPoint)

	sc.Advance()
	assert.Equal(t, Point{Row: 1}, sc.Point())
	sc.ResetExamined()
	assert.True(t, sc.HasPrefix("cd"))
	assert.False(t, sc.HasPrefix("cde"))
	assert.Equal(t, 6, sc.Examined(), "peeking past the end examines one extra byte")

	sc.Seek(1, Point{Column: 1})
	assert.Equal(t, 'b', sc.Lookahead())
	assert.False(t, sc.EOF())
	sc.AdvanceN(10)
	assert.True(t, sc.EOF())
	assert.Equal(t, rune(0), sc.Lookahead())
}

func TestBasicTokenSource(t *testing.T) {
	t.Parallel()
	lang := buildSumLanguage()
	ts := NewBasicTokenSource([]byte(" 12+x é"), lang)

	tok := ts.Next()
	assert.Equal(t, Symbol(1), tok.Symbol)
	assert.Equal(t, "12", tok.Text)
	assert.Equal(t, uint32(0), tok.TriviaStart)

	st := ts.State()
	tok = ts.Next()
	assert.Equal(t, Symbol(2), tok.Symbol)

	tok = ts.Next()
	assert.Equal(t, ErrorSymbol, tok.Symbol, "no identifier token in this language")
	assert.Equal(t, "x", tok.Text)

	tok = ts.Next()
	assert.Equal(t, ErrorSymbol, tok.Symbol)
	assert.Equal(t, "é", tok.Text)
	assert.True(t, ts.Next().IsEOF())
	assert.True(t, ts.Next().IsEOF())

	ts.Restore(st)
	assert.Equal(t, "+", ts.Next().Text)
}
