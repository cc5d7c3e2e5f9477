package grammars

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/odvcencio/parsley/gotreesitter"
	gg "github.com/odvcencio/parsley/grammargen"
)

//go:embed queries/parsley/highlights.scm
var parsleyHighlightQuery string

var (
	parsleyOnce      sync.Once
	parsleyCompiled  *gg.Compiled
	parsleyNodeTypes []byte
)

func loadParsley() {
	c, err := gg.Compile(ParsleyGrammar())
	if err != nil {
		panic(fmt.Sprintf("grammars: compile parsley: %v", err))
	}
	c.Language.TokenSourceFactory = func(src []byte, lang *gotreesitter.Language) gotreesitter.TokenSource {
		return NewParsleyTokenSourceOrEOF(src, lang)
	}
	c.Language.Trivia = ParsleyTrivia
	if _, err := NewParsleyTokenSource(nil, c.Language); err != nil {
		panic(fmt.Sprintf("grammars: parsley lexer: %v", err))
	}
	data, err := gg.MarshalNodeTypes(c.NodeTypes)
	if err != nil {
		panic(fmt.Sprintf("grammars: parsley node types: %v", err))
	}
	if err := gg.ValidateNodeTypesJSON(data); err != nil {
		panic(fmt.Sprintf("grammars: parsley node types: %v", err))
	}
	parsleyCompiled = c
	parsleyNodeTypes = data
}

// ParsleyLanguage returns the compiled Parsley language. The grammar is
// compiled once on first use; the result is shared and read-only.
func ParsleyLanguage() *gotreesitter.Language {
	parsleyOnce.Do(loadParsley)
	return parsleyCompiled.Language
}

// ParsleyCompiled returns the full compiler output for Parsley: the
// language, its productions, and the conflicts resolved while building
// the tables.
func ParsleyCompiled() *gg.Compiled {
	parsleyOnce.Do(loadParsley)
	return parsleyCompiled
}

// ParsleyNodeTypes returns Parsley's node-types.json document.
func ParsleyNodeTypes() []byte {
	parsleyOnce.Do(loadParsley)
	return parsleyNodeTypes
}

// ParsleyHighlightQuery returns the highlight query for Parsley.
func ParsleyHighlightQuery() string {
	return parsleyHighlightQuery
}

func init() {
	Register(LangEntry{
		Name:               "parsley",
		Extensions:         []string{".pars", ".parsley"},
		Language:           ParsleyLanguage,
		HighlightQuery:     parsleyHighlightQuery,
		TokenSourceFactory: func(src []byte, lang *gotreesitter.Language) gotreesitter.TokenSource {
			return NewParsleyTokenSourceOrEOF(src, lang)
		},
	})
}
