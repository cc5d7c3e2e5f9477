package gotreesitter

import "bytes"

// basicTokenSource is the token source used when a Language has no
// factory: whitespace and single-line comments found by the language's
// TriviaScanner are trivia, words are keywords or "identifier", digit runs
// are "number", and everything else goes through the literal-token DFA.
type basicTokenSource struct {
	lang       *Language
	sc         *Scanner
	identifier Symbol
	number     Symbol
}

// NewBasicTokenSource returns a resumable token source for simple
// grammars whose tokens are literals, identifiers and integers.
func NewBasicTokenSource(source []byte, lang *Language) ResumableTokenSource {
	ts := &basicTokenSource{lang: lang, sc: NewScanner(source)}
	if syms := lang.TokenSymbolsByName("identifier"); len(syms) > 0 {
		ts.identifier = syms[0]
	}
	if syms := lang.TokenSymbolsByName("number"); len(syms) > 0 {
		ts.number = syms[0]
	}
	return ts
}

func (ts *basicTokenSource) State() LexerState {
	return LexerState{Offset: uint32(ts.sc.Pos()), Point: ts.sc.Point()}
}

func (ts *basicTokenSource) Restore(st LexerState) {
	ts.sc.Seek(int(st.Offset), st.Point)
}

func (ts *basicTokenSource) Next() Token {
	sc := ts.sc
	trivia := sc.Pos()
	sc.ResetExamined()
	for {
		switch sc.Peek(0) {
		case ' ', '\t', '\n', '\r', '\f':
			sc.Advance()
			continue
		}
		if ts.skipComment() {
			continue
		}
		break
	}
	sc.MarkStart()
	if sc.EOF() {
		return sc.Token(0, trivia)
	}
	c := sc.Peek(0)
	switch {
	case isWordByte(c) && !(c >= '0' && c <= '9'):
		for isWordByte(sc.Peek(0)) {
			sc.Advance()
		}
		tok := sc.Token(ErrorSymbol, trivia)
		if sym, ok := ts.lang.KeywordSymbol(tok.Text); ok {
			tok.Symbol = sym
		} else if ts.identifier != 0 {
			tok.Symbol = ts.identifier
		}
		return tok
	case c >= '0' && c <= '9' && ts.number != 0:
		for c := sc.Peek(0); c >= '0' && c <= '9'; c = sc.Peek(0) {
			sc.Advance()
		}
		return sc.Token(ts.number, trivia)
	}
	if sym, end, examined, ok := MatchLiteral(ts.lang.LexStates, sc.Source(), sc.Pos()); ok {
		sc.Extend(examined)
		sc.AdvanceN(end - sc.Pos())
		return sc.Token(sym, trivia)
	}
	sc.AdvanceRune()
	return sc.Token(ErrorSymbol, trivia)
}

// skipComment consumes a comment starting at the cursor. Comments end at
// a newline and their openers are at most two bytes long.
func (ts *basicTokenSource) skipComment() bool {
	if ts.lang.Trivia == nil || ts.sc.EOF() {
		return false
	}
	src := ts.sc.Source()
	pos := ts.sc.Pos()
	end := bytes.IndexByte(src[pos:], '\n')
	if end < 0 {
		end = len(src) - pos
	}
	spans := ts.lang.Trivia(src[pos : pos+end])
	if len(spans) == 0 || spans[0][0] != 0 || spans[0][1] == 0 {
		ts.sc.Extend(min(pos+2, len(src)+1))
		return false
	}
	ts.sc.Extend(min(pos+spans[0][1]+1, len(src)+1))
	ts.sc.AdvanceN(spans[0][1])
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
