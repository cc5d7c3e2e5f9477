package grammars

import (
	"fmt"

	"github.com/odvcencio/parsley/gotreesitter"
)

func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isASCIIWordStart(b byte) bool {
	return isASCIIAlpha(b) || b == '_'
}

func isIdentPart(b byte) bool {
	return isASCIIWordStart(b) || isASCIIDigit(b)
}

func isRegexFlag(b byte) bool {
	switch b {
	case 'g', 'i', 'm', 's', 'u', 'v', 'y':
		return true
	}
	return false
}

func isDurationUnit(b byte) bool {
	switch b {
	case 'y', 'M', 'w', 'd', 'h', 'm', 's':
		return true
	}
	return false
}

// isPathChar reports whether b may appear in a path or URL literal.
// Parentheses, commas and semicolons end the literal so that a path can be
// passed as a call argument.
func isPathChar(b byte) bool {
	switch b {
	case 0, ' ', '\t', '\n', '\r', '\f',
		'<', '>', '"', '{', '}', '|', '\\', '^', '`', '[', ']',
		'(', ')', ',', ';':
		return false
	}
	return true
}

// tokenSourceInitError stands in for a token source whose language is
// missing required symbols. It reports end of input at the end of the
// source so the parser still produces a tree.
type tokenSourceInitError struct {
	sourceLen uint32
}

func (e tokenSourceInitError) Next() gotreesitter.Token {
	return gotreesitter.Token{
		StartByte:    e.sourceLen,
		EndByte:      e.sourceLen,
		TriviaStart:  e.sourceLen,
		LookaheadEnd: e.sourceLen + 1,
	}
}

type tokenLookup struct {
	lang      *gotreesitter.Language
	lexerName string
	firstErr  error
}

func newTokenLookup(lang *gotreesitter.Language, lexerName string) *tokenLookup {
	return &tokenLookup{lang: lang, lexerName: lexerName}
}

func (tl *tokenLookup) require(name string) gotreesitter.Symbol {
	syms := tl.lang.TokenSymbolsByName(name)
	if len(syms) == 0 {
		if tl.firstErr == nil {
			tl.firstErr = fmt.Errorf("%s lexer: token symbol %q not found", tl.lexerName, name)
		}
		return 0
	}
	return syms[0]
}

func (tl *tokenLookup) err() error {
	return tl.firstErr
}
