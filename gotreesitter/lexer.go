package gotreesitter

import (
	"bytes"
	"unicode/utf8"
	"unsafe"
)

// Point is a row/column position in source text. Columns count bytes.
type Point struct {
	Row    uint32
	Column uint32
}

// Less reports whether p is before q.
func (p Point) Less(q Point) bool {
	return p.Row < q.Row || (p.Row == q.Row && p.Column < q.Column)
}

// Range is a half-open byte span with its points.
type Range struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
}

// Token is a lexed token with position info.
type Token struct {
	Symbol     Symbol
	Text       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point

	// TriviaStart is where the whitespace and comments preceding the
	// token begin.
	TriviaStart uint32
	// LookaheadEnd is one past the furthest byte the scanner examined to
	// produce this token, trivia included.
	LookaheadEnd uint32

	missing bool
}

// IsEOF reports whether t is the end-of-input token.
func (t Token) IsEOF() bool { return t.Symbol == 0 }

// TokenSource produces a token stream. After the input is exhausted Next
// keeps returning a zero-width token with Symbol 0.
type TokenSource interface {
	Next() Token
}

// LexerState is a restartable snapshot of a token source taken between two
// tokens: the byte offset and point where scanning resumes, and an opaque
// mode payload. Two states with equal Data lex identical bytes the same
// way.
type LexerState struct {
	Offset uint32
	Point  Point
	Data   []byte
}

// Equivalent reports whether s and o carry the same lexer modes.
func (s LexerState) Equivalent(o LexerState) bool {
	return bytes.Equal(s.Data, o.Data)
}

// ResumableTokenSource is a TokenSource that can snapshot and restore its
// position. Incremental reparse requires it.
type ResumableTokenSource interface {
	TokenSource
	State() LexerState
	Restore(LexerState)
}

// TriviaScanner finds comment spans inside a run of skipped bytes. Offsets
// are relative to the start of the run.
type TriviaScanner func(trivia []byte) [][2]int

func bytesToStringNoCopy(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// MatchLiteral runs the literal-token DFA from byte offset pos and returns
// the longest accepted token and its end offset. examined is one past the
// last byte the DFA looked at. ok is false when no token matched.
func MatchLiteral(states []LexState, source []byte, pos int) (sym Symbol, end int, examined int, ok bool) {
	if len(states) == 0 {
		return 0, pos, pos, false
	}
	cur := 0
	scan := pos
	end = -1
	examined = pos
	if states[0].AcceptToken > 0 {
		sym, end = states[0].AcceptToken, pos
	}
	for {
		if scan >= len(source) {
			// Reaching the end is an observation too: more input could
			// extend the match.
			examined = max(examined, len(source)+1)
			break
		}
		r, size := utf8.DecodeRune(source[scan:])
		if scan+size > examined {
			examined = scan + size
		}
		next := -1
		st := &states[cur]
		for i := range st.Transitions {
			tr := &st.Transitions[i]
			if r >= tr.Lo && r <= tr.Hi {
				next = tr.NextState
				break
			}
		}
		if next < 0 && st.Default >= 0 {
			next = st.Default
		}
		if next < 0 {
			break
		}
		scan += size
		cur = next
		if states[cur].AcceptToken > 0 {
			sym, end = states[cur].AcceptToken, scan
		}
	}
	if end < 0 {
		return 0, pos, examined, false
	}
	return sym, end, examined, true
}
