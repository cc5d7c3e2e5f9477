package grammars

import (
	"fmt"

	"github.com/odvcencio/parsley/gotreesitter"
)

// Lexer modes kept on the mode stack. The top entry decides how the next
// token is scanned: the quote modes scan string bodies, the others scan
// code inside an interpolation.
const (
	modeDouble   byte = '"'
	modeTemplate byte = '`'
	modeRaw      byte = '\''
	modeInterp   byte = 'i' // after "{" inside a "..." or `...` string
	modeRawInt   byte = 'r' // after "@{" inside a '...' string
	modeBrace    byte = 'b' // a nested "{" inside an interpolation
	modePath     byte = 'p' // inside @( ... )
	modeTagName  byte = 'n' // after "<" of a tag
	modeTag      byte = 't' // attributes of an open tag
	modeSpread   byte = 's' // after "..." among tag attributes
	modeTagBody  byte = 'c' // children of an open tag
	modeTagClose byte = 'e' // after "</"
)

var (
	stateOperand = []byte{1}
	stateOther   = []byte{0}
)

var atWords = map[string]string{
	"now": "time_now_literal", "today": "time_now_literal",
	"timeNow": "time_now_literal", "dateNow": "time_now_literal",
	"sqlite": "connection_literal", "postgres": "connection_literal", "mysql": "connection_literal",
	"sftp": "connection_literal", "shell": "connection_literal", "DB": "connection_literal",
	"schema": "schema_literal",
	"table":  "table_literal",
	"query":  "query_literal", "insert": "query_literal", "update": "query_literal",
	"delete": "query_literal", "transaction": "query_literal",
	"SEARCH": "context_literal", "env": "context_literal", "args": "context_literal", "params": "context_literal",
	"stdin": "stdio_literal", "stdout": "stdio_literal", "stderr": "stdio_literal",
}

var urlSchemes = map[string]bool{"http": true, "https": true, "ftp": true, "file": true}

// ParsleyTokenSource lexes Parsley source. It is resumable: a LexerState
// carries the previous token class, which decides between a regex literal
// and division, and the mode stack for strings, interpolations, tags and
// path templates.
type ParsleyTokenSource struct {
	lang *gotreesitter.Language
	sc   *gotreesitter.Scanner

	modes       []byte
	prevOperand bool

	identifier, number, escape, content gotreesitter.Symbol
	regex, money, datetime, duration    gotreesitter.Symbol
	path, url, stdio, stdlib            gotreesitter.Symbol
	dquote, backtick, squote            gotreesitter.Symbol
	lbrace, rbrace, rawOpen             gotreesitter.Symbol

	tagName, attrName, tagText   gotreesitter.Symbol
	lt, gt, selfClose, closeOpen gotreesitter.Symbol
	eq, spread, slash            gotreesitter.Symbol
	pathOpen, rparen             gotreesitter.Symbol

	atSymbols map[string]gotreesitter.Symbol
	operand   map[gotreesitter.Symbol]bool
}

// NewParsleyTokenSource returns a token source over src for lang, which
// must be the compiled Parsley language.
func NewParsleyTokenSource(src []byte, lang *gotreesitter.Language) (*ParsleyTokenSource, error) {
	if lang == nil {
		return nil, fmt.Errorf("parsley lexer: language is nil")
	}
	tl := newTokenLookup(lang, "parsley")
	ts := &ParsleyTokenSource{
		lang:       lang,
		sc:         gotreesitter.NewScanner(src),
		identifier: tl.require("identifier"),
		number:     tl.require("number"),
		escape:     tl.require("escape_sequence"),
		content:    tl.require("string_content"),
		regex:      tl.require("regex"),
		money:      tl.require("money"),
		datetime:   tl.require("datetime_literal"),
		duration:   tl.require("duration_literal"),
		path:       tl.require("path_literal"),
		url:        tl.require("url_literal"),
		stdio:      tl.require("stdio_literal"),
		stdlib:     tl.require("stdlib_import"),
		dquote:     tl.require(`"`),
		backtick:   tl.require("`"),
		squote:     tl.require("'"),
		lbrace:     tl.require("{"),
		rbrace:     tl.require("}"),
		rawOpen:    tl.require("@{"),
		tagName:    tl.require("tag_name"),
		attrName:   tl.require("attribute_name"),
		tagText:    tl.require("tag_text"),
		lt:         tl.require("<"),
		gt:         tl.require(">"),
		selfClose:  tl.require("/>"),
		closeOpen:  tl.require("</"),
		eq:         tl.require("="),
		spread:     tl.require("..."),
		slash:      tl.require("/"),
		pathOpen:   tl.require("@("),
		rparen:     tl.require(")"),
		atSymbols:  make(map[string]gotreesitter.Symbol, len(atWords)),
		operand:    make(map[gotreesitter.Symbol]bool),
	}
	for word, name := range atWords {
		ts.atSymbols[word] = tl.require(name)
	}
	for _, name := range parsleyTokens {
		if name != "escape_sequence" && name != "string_content" {
			ts.operand[tl.require(name)] = true
		}
	}
	for _, name := range []string{")", "]", "}", "true", "false", "null"} {
		ts.operand[tl.require(name)] = true
	}
	if err := tl.err(); err != nil {
		return nil, err
	}
	return ts, nil
}

// NewParsleyTokenSourceOrEOF returns a token source for callers that
// cannot surface constructor errors.
func NewParsleyTokenSourceOrEOF(src []byte, lang *gotreesitter.Language) gotreesitter.TokenSource {
	ts, err := NewParsleyTokenSource(src, lang)
	if err != nil {
		return tokenSourceInitError{sourceLen: uint32(len(src))}
	}
	return ts
}

// State snapshots the scan position and modes.
func (ts *ParsleyTokenSource) State() gotreesitter.LexerState {
	st := gotreesitter.LexerState{Offset: uint32(ts.sc.Pos()), Point: ts.sc.Point()}
	switch {
	case len(ts.modes) > 0:
		st.Data = make([]byte, 1+len(ts.modes))
		if ts.prevOperand {
			st.Data[0] = 1
		}
		copy(st.Data[1:], ts.modes)
	case ts.prevOperand:
		st.Data = stateOperand
	default:
		st.Data = stateOther
	}
	return st
}

// Restore resumes scanning from a snapshot taken by State.
func (ts *ParsleyTokenSource) Restore(st gotreesitter.LexerState) {
	ts.sc.Seek(int(st.Offset), st.Point)
	ts.prevOperand = len(st.Data) > 0 && st.Data[0] == 1
	ts.modes = ts.modes[:0]
	if len(st.Data) > 1 {
		ts.modes = append(ts.modes, st.Data[1:]...)
	}
}

func (ts *ParsleyTokenSource) top() byte {
	if len(ts.modes) == 0 {
		return 0
	}
	return ts.modes[len(ts.modes)-1]
}

func (ts *ParsleyTokenSource) push(m byte) { ts.modes = append(ts.modes, m) }

func (ts *ParsleyTokenSource) pop() {
	if len(ts.modes) > 0 {
		ts.modes = ts.modes[:len(ts.modes)-1]
	}
}

func (ts *ParsleyTokenSource) setTop(m byte) {
	if len(ts.modes) > 0 {
		ts.modes[len(ts.modes)-1] = m
	}
}

// Next returns the next token. Unknown input becomes an ERROR token; the
// end of input is a zero-width token with symbol 0.
func (ts *ParsleyTokenSource) Next() gotreesitter.Token {
	ts.sc.ResetExamined()
	switch ts.top() {
	case modeDouble, modeTemplate, modeRaw:
		return ts.stringToken(ts.top())
	case modePath:
		return ts.pathTemplateToken()
	case modeTagName, modeTag, modeSpread, modeTagBody, modeTagClose:
		return ts.tagToken(ts.top())
	}
	trivia := ts.sc.Pos()
	ts.skipTrivia()
	ts.sc.MarkStart()
	if ts.sc.EOF() {
		return ts.sc.Token(0, trivia)
	}
	tok := ts.codeToken(trivia)
	switch tok.Symbol {
	case ts.dquote, ts.backtick, ts.squote:
		ts.prevOperand = false
	default:
		ts.prevOperand = ts.operand[tok.Symbol]
	}
	return tok
}

func (ts *ParsleyTokenSource) skipTrivia() {
	sc := ts.sc
	for {
		switch c := sc.Peek(0); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			sc.Advance()
		case c == '/' && sc.Peek(1) == '/':
			for !sc.EOF() && sc.Peek(0) != '\n' {
				sc.Advance()
			}
		default:
			return
		}
	}
}

func (ts *ParsleyTokenSource) codeToken(trivia int) gotreesitter.Token {
	sc := ts.sc
	c := sc.Peek(0)
	switch {
	case isASCIIWordStart(c):
		if n := ts.codeMoney(); n > 0 {
			sc.AdvanceN(n)
			return sc.Token(ts.money, trivia)
		}
		for isIdentPart(sc.Peek(0)) {
			sc.Advance()
		}
		tok := sc.Token(ts.identifier, trivia)
		if sym, ok := ts.lang.KeywordSymbol(tok.Text); ok {
			tok.Symbol = sym
		}
		return tok

	case isASCIIDigit(c):
		sc.AdvanceN(ts.digits(0))
		if sc.Peek(0) == '.' && isASCIIDigit(sc.Peek(1)) {
			sc.Advance()
			sc.AdvanceN(ts.digits(0))
		}
		return sc.Token(ts.number, trivia)

	case c == '"' || c == '`' || c == '\'':
		sc.Advance()
		ts.push(c)
		switch c {
		case '"':
			return sc.Token(ts.dquote, trivia)
		case '`':
			return sc.Token(ts.backtick, trivia)
		}
		return sc.Token(ts.squote, trivia)

	case c == '{':
		if len(ts.modes) > 0 {
			ts.push(modeBrace)
		}
		sc.Advance()
		return sc.Token(ts.lbrace, trivia)

	case c == '}':
		ts.pop()
		sc.Advance()
		return sc.Token(ts.rbrace, trivia)

	case c == '<' && !ts.prevOperand && isASCIIAlpha(sc.Peek(1)):
		sc.Advance()
		ts.push(modeTagName)
		return sc.Token(ts.lt, trivia)

	case c == '@' && sc.Peek(1) == '(':
		sc.AdvanceN(2)
		ts.push(modePath)
		return sc.Token(ts.pathOpen, trivia)

	case c == '@':
		if sym, n, ok := ts.atLiteral(); ok {
			sc.AdvanceN(1 + n)
			return sc.Token(sym, trivia)
		}

	case c == '/' && !ts.prevOperand:
		if n := ts.regexLength(); n > 0 {
			sc.AdvanceN(n)
			return sc.Token(ts.regex, trivia)
		}
	}

	if n := ts.symbolMoney(); n > 0 {
		sc.AdvanceN(n)
		return sc.Token(ts.money, trivia)
	}
	// "</" and "/>" only delimit tags.
	if c == '<' && sc.Peek(1) == '/' {
		sc.Advance()
		return sc.Token(ts.lt, trivia)
	}
	if c == '/' && sc.Peek(1) == '>' {
		sc.Advance()
		return sc.Token(ts.slash, trivia)
	}
	if sym, end, examined, ok := gotreesitter.MatchLiteral(ts.lang.LexStates, sc.Source(), sc.Pos()); ok {
		sc.Extend(examined)
		sc.AdvanceN(end - sc.Pos())
		return sc.Token(sym, trivia)
	}
	sc.AdvanceRune()
	return sc.Token(gotreesitter.ErrorSymbol, trivia)
}

// stringToken scans inside a string literal delimited by q.
func (ts *ParsleyTokenSource) stringToken(q byte) gotreesitter.Token {
	sc := ts.sc
	trivia := sc.Pos()
	sc.MarkStart()
	if sc.EOF() {
		sc.Peek(0)
		return sc.Token(0, trivia)
	}
	c := sc.Peek(0)
	switch {
	case c == q:
		sc.Advance()
		ts.pop()
		ts.prevOperand = true
		return sc.Token(ts.quoteSymbol(q), trivia)
	case c == '\\':
		sc.Advance()
		if sc.EOF() {
			sc.Peek(0)
			return sc.Token(gotreesitter.ErrorSymbol, trivia)
		}
		sc.AdvanceRune()
		return sc.Token(ts.escape, trivia)
	case q != modeRaw && c == '{':
		sc.Advance()
		ts.push(modeInterp)
		ts.prevOperand = false
		return sc.Token(ts.lbrace, trivia)
	case q == modeRaw && c == '@' && sc.Peek(1) == '{':
		sc.AdvanceN(2)
		ts.push(modeRawInt)
		ts.prevOperand = false
		return sc.Token(ts.rawOpen, trivia)
	}
	for !sc.EOF() {
		c := sc.Peek(0)
		if c == q || c == '\\' {
			break
		}
		if q != modeRaw && c == '{' {
			break
		}
		if q == modeRaw && c == '@' && sc.Peek(1) == '{' {
			break
		}
		sc.Advance()
	}
	sc.Peek(0)
	return sc.Token(ts.content, trivia)
}

// pathTemplateToken scans the text of an @( ... ) template.
func (ts *ParsleyTokenSource) pathTemplateToken() gotreesitter.Token {
	sc := ts.sc
	trivia := sc.Pos()
	sc.MarkStart()
	if sc.EOF() {
		sc.Peek(0)
		return sc.Token(0, trivia)
	}
	switch sc.Peek(0) {
	case ')':
		sc.Advance()
		ts.pop()
		ts.prevOperand = true
		return sc.Token(ts.rparen, trivia)
	case '{':
		sc.Advance()
		ts.push(modeInterp)
		ts.prevOperand = false
		return sc.Token(ts.lbrace, trivia)
	case '}', '(':
		sc.Advance()
		return sc.Token(gotreesitter.ErrorSymbol, trivia)
	}
	for !sc.EOF() {
		if c := sc.Peek(0); c == '{' || c == '}' || c == '(' || c == ')' {
			break
		}
		sc.Advance()
	}
	sc.Peek(0)
	return sc.Token(ts.content, trivia)
}

// tagToken scans inside a tag in mode m. Whitespace between tag tokens is
// trivia.
func (ts *ParsleyTokenSource) tagToken(m byte) gotreesitter.Token {
	sc := ts.sc
	trivia := sc.Pos()
	for c := sc.Peek(0); c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'; c = sc.Peek(0) {
		sc.Advance()
	}
	sc.MarkStart()
	if sc.EOF() {
		sc.Peek(0)
		return sc.Token(0, trivia)
	}
	c := sc.Peek(0)
	if m == modeSpread {
		ts.pop()
		if isASCIIWordStart(c) {
			for isIdentPart(sc.Peek(0)) {
				sc.Advance()
			}
			return sc.Token(ts.identifier, trivia)
		}
		m = modeTag
	}

	switch m {
	case modeTagName, modeTagClose:
		if isASCIIAlpha(c) {
			sc.Advance()
			for c := sc.Peek(0); isASCIIAlpha(c) || isASCIIDigit(c) || c == '-'; c = sc.Peek(0) {
				sc.Advance()
			}
			if m == modeTagName {
				ts.setTop(modeTag)
			}
			return sc.Token(ts.tagName, trivia)
		}
		if m == modeTagClose && c == '>' {
			sc.Advance()
			ts.pop()
			ts.prevOperand = true
			return sc.Token(ts.gt, trivia)
		}
		if m == modeTagName {
			ts.pop()
		}

	case modeTag:
		switch {
		case c == '/' && sc.Peek(1) == '>':
			sc.AdvanceN(2)
			ts.pop()
			ts.prevOperand = true
			return sc.Token(ts.selfClose, trivia)
		case c == '>':
			sc.Advance()
			ts.setTop(modeTagBody)
			return sc.Token(ts.gt, trivia)
		case c == '=':
			sc.Advance()
			return sc.Token(ts.eq, trivia)
		case c == '"':
			sc.Advance()
			ts.push(modeDouble)
			return sc.Token(ts.dquote, trivia)
		case c == '{':
			sc.Advance()
			ts.push(modeInterp)
			ts.prevOperand = false
			return sc.Token(ts.lbrace, trivia)
		case sc.HasPrefix("..."):
			sc.AdvanceN(3)
			ts.push(modeSpread)
			return sc.Token(ts.spread, trivia)
		case isASCIIAlpha(c):
			sc.Advance()
			for c := sc.Peek(0); isIdentPart(c) || c == '-'; c = sc.Peek(0) {
				sc.Advance()
			}
			return sc.Token(ts.attrName, trivia)
		}

	case modeTagBody:
		switch c {
		case '<':
			if sc.Peek(1) == '/' {
				sc.AdvanceN(2)
				ts.setTop(modeTagClose)
				return sc.Token(ts.closeOpen, trivia)
			}
			sc.Advance()
			ts.push(modeTagName)
			return sc.Token(ts.lt, trivia)
		case '{':
			sc.Advance()
			ts.push(modeInterp)
			ts.prevOperand = false
			return sc.Token(ts.lbrace, trivia)
		case '"':
			sc.Advance()
			ts.push(modeDouble)
			return sc.Token(ts.dquote, trivia)
		}
		for !sc.EOF() {
			if c := sc.Peek(0); c == '<' || c == '{' || c == '"' {
				break
			}
			sc.Advance()
		}
		sc.Peek(0)
		return sc.Token(ts.tagText, trivia)
	}
	sc.AdvanceRune()
	return sc.Token(gotreesitter.ErrorSymbol, trivia)
}

func (ts *ParsleyTokenSource) quoteSymbol(q byte) gotreesitter.Symbol {
	switch q {
	case modeDouble:
		return ts.dquote
	case modeTemplate:
		return ts.backtick
	}
	return ts.squote
}

// digits counts the ASCII digits starting k bytes ahead.
func (ts *ParsleyTokenSource) digits(k int) int {
	n := 0
	for isASCIIDigit(ts.sc.Peek(k + n)) {
		n++
	}
	return n
}

func (ts *ParsleyTokenSource) letters(k int) int {
	n := 0
	for isASCIIAlpha(ts.sc.Peek(k + n)) {
		n++
	}
	return n
}

// moneyAmount returns the length of \d+(\.\d{1,2})? starting k bytes
// ahead, or 0.
func (ts *ParsleyTokenSource) moneyAmount(k int) int {
	d := ts.digits(k)
	if d == 0 {
		return 0
	}
	n := d
	if ts.sc.Peek(k+n) == '.' {
		if frac := min(ts.digits(k+n+1), 2); frac > 0 {
			n += 1 + frac
		}
	}
	return n
}

// codeMoney matches a currency-code amount such as USD#12.50.
func (ts *ParsleyTokenSource) codeMoney() int {
	sc := ts.sc
	for i := 0; i < 3; i++ {
		if c := sc.Peek(i); c < 'A' || c > 'Z' {
			return 0
		}
	}
	if sc.Peek(3) != '#' {
		return 0
	}
	if n := ts.moneyAmount(4); n > 0 {
		return 4 + n
	}
	return 0
}

// symbolMoney matches a currency-sign amount such as $12.50 or €3.
func (ts *ParsleyTokenSource) symbolMoney() int {
	for _, sign := range []string{"$", "£", "€", "¥"} {
		if !ts.sc.HasPrefix(sign) {
			continue
		}
		if n := ts.moneyAmount(len(sign)); n > 0 {
			return len(sign) + n
		}
		return 0
	}
	return 0
}

// regexLength matches /body/flags at the cursor. The body may not contain
// a slash or a newline.
func (ts *ParsleyTokenSource) regexLength() int {
	sc := ts.sc
	n := 1
	for {
		c := sc.Peek(n)
		if c == '/' || c == '\n' || (c == 0 && sc.Pos()+n >= len(sc.Source())) {
			break
		}
		n++
	}
	if n == 1 || sc.Peek(n) != '/' {
		return 0
	}
	n++
	for isRegexFlag(sc.Peek(n)) {
		n++
	}
	return n
}

// atLiteral matches the text after an '@'. n is the length after the '@'.
func (ts *ParsleyTokenSource) atLiteral() (sym gotreesitter.Symbol, n int, ok bool) {
	sc := ts.sc
	p := func(k int) byte { return sc.Peek(1 + k) }
	digits := func(k int) int { return ts.digits(1 + k) }

	if n := ts.datetimeLength(p, digits); n > 0 {
		return ts.datetime, n, true
	}
	if n := ts.durationLength(p, digits); n > 0 {
		return ts.duration, n, true
	}
	switch p(0) {
	case '-':
		if isASCIIDigit(p(1)) {
			return 0, 0, false
		}
		return ts.stdio, 1, true
	case '.', '/':
		return ts.path, 1 + ts.pathChars(2), true
	case '~':
		if p(1) == '/' {
			return ts.path, 2 + ts.pathChars(3), true
		}
		return 0, 0, false
	}

	w := ts.letters(1)
	if w == 0 {
		return 0, 0, false
	}
	word := string(sc.Source()[sc.Pos()+1 : sc.Pos()+1+w])
	switch {
	case urlSchemes[word] && p(w) == ':' && p(w+1) == '/' && p(w+2) == '/':
		return ts.url, w + 3 + ts.pathChars(1+w+3), true
	case word == "std" || word == "basil":
		if p(w) == '/' {
			if m := ts.letters(1 + w + 1); m > 0 {
				return ts.stdlib, w + 1 + m, true
			}
		}
		return ts.stdlib, w, true
	}
	if sym, ok := ts.atSymbols[word]; ok {
		return sym, w, true
	}
	return 0, 0, false
}

// datetimeLength matches YYYY-MM-DD[THH:MM[:SS][.frac][zone]] or
// H:MM[:SS].
func (ts *ParsleyTokenSource) datetimeLength(p func(int) byte, digits func(int) int) int {
	d := digits(0)
	if d == 4 && p(4) == '-' && digits(5) == 2 && p(7) == '-' && digits(8) == 2 {
		n := 10
		if p(n) == 'T' && digits(n+1) == 2 && p(n+3) == ':' && digits(n+4) == 2 {
			n += 6
			if p(n) == ':' && digits(n+1) == 2 {
				n += 3
			}
			if p(n) == '.' && digits(n+1) > 0 {
				n += 1 + digits(n+1)
			}
			switch c := p(n); {
			case c == 'Z':
				n++
			case (c == '+' || c == '-') && digits(n+1) == 2 && p(n+3) == ':' && digits(n+4) == 2:
				n += 6
			}
		}
		return n
	}
	if (d == 1 || d == 2) && p(d) == ':' && digits(d+1) == 2 {
		n := d + 3
		if p(n) == ':' && digits(n+1) == 2 {
			n += 3
		}
		return n
	}
	return 0
}

// durationLength matches -?\d+ followed by a unit and further
// digit/unit runs, e.g. 2h30m, -7d, 1y6mo.
func (ts *ParsleyTokenSource) durationLength(p func(int) byte, digits func(int) int) int {
	k := 0
	if p(0) == '-' {
		k = 1
	}
	d := digits(k)
	if d == 0 || !isDurationUnit(p(k+d)) {
		return 0
	}
	n := k + d + 1
	for {
		c := p(n)
		switch {
		case isASCIIDigit(c) || isDurationUnit(c):
			n++
		case c == 'o' && p(n-1) == 'm':
			n++
		default:
			return n
		}
	}
}

// pathChars counts path characters starting k bytes ahead.
func (ts *ParsleyTokenSource) pathChars(k int) int {
	n := 0
	for isPathChar(ts.sc.Peek(k + n)) {
		n++
	}
	return n
}

// ParsleyTrivia reports the // comments inside a run of skipped bytes.
func ParsleyTrivia(trivia []byte) [][2]int {
	var out [][2]int
	for i := 0; i+1 < len(trivia); i++ {
		if trivia[i] != '/' || trivia[i+1] != '/' {
			continue
		}
		j := i + 2
		for j < len(trivia) && trivia[j] != '\n' {
			j++
		}
		out = append(out, [2]int{i, j})
		i = j
	}
	return out
}
