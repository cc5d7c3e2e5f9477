package lsp

import (
	"strings"

	"github.com/odvcencio/parsley/gotreesitter"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Token types and modifiers advertised in the semantic tokens legend. The
// index of each entry is its wire value.
var (
	tokenTypes = []string{
		"keyword", "operator", "function", "method", "parameter", "property",
		"namespace", "number", "string", "regexp", "variable", "comment",
		"type",
	}
	tokenModifiers = []string{"declaration", "readonly", "defaultLibrary"}
)

const (
	modDeclaration uint32 = 1 << iota
	modReadonly
	modDefaultLibrary
)

type tokenKind struct {
	typ       string
	modifiers uint32
}

// captureKinds maps highlight capture names to semantic token kinds.
// Captures with no entry fall back to their prefix before the last dot;
// punctuation has no semantic token.
var captureKinds = map[string]tokenKind{
	"keyword":             {typ: "keyword"},
	"boolean":             {typ: "keyword"},
	"operator":            {typ: "operator"},
	"punctuation.special": {typ: "operator"},
	"function":            {typ: "function", modifiers: modDeclaration},
	"function.call":       {typ: "function"},
	"function.method":     {typ: "method"},
	"variable":            {typ: "variable"},
	"variable.parameter":  {typ: "parameter"},
	"variable.builtin":    {typ: "variable", modifiers: modDefaultLibrary},
	"constant":            {typ: "variable", modifiers: modReadonly},
	"constant.builtin":    {typ: "variable", modifiers: modReadonly | modDefaultLibrary},
	"property":            {typ: "property"},
	"namespace":           {typ: "namespace"},
	"number":              {typ: "number"},
	"string":              {typ: "string"},
	"string.regex":        {typ: "regexp"},
	"comment":             {typ: "comment"},
	"tag":                 {typ: "type"},
	"attribute":           {typ: "property"},
}

var tokenTypeIndex = func() map[string]uint32 {
	m := make(map[string]uint32, len(tokenTypes))
	for i, t := range tokenTypes {
		m[t] = uint32(i)
	}
	return m
}()

func semanticLegend() protocol.SemanticTokensLegend {
	return protocol.SemanticTokensLegend{
		TokenTypes:     tokenTypes,
		TokenModifiers: tokenModifiers,
	}
}

func kindForCapture(capture string) (tokenKind, bool) {
	for {
		if k, ok := captureKinds[capture]; ok {
			return k, true
		}
		dot := strings.LastIndexByte(capture, '.')
		if dot < 0 {
			return tokenKind{}, false
		}
		capture = capture[:dot]
	}
}

// encodeSemanticTokens converts highlight ranges to the relative
// five-integer encoding of textDocument/semanticTokens. Ranges spanning
// lines are split at each newline.
func encodeSemanticTokens(text string, ranges []gotreesitter.HighlightRange) []protocol.UInteger {
	li := newLineIndex(text)
	var data []protocol.UInteger
	var prevLine, prevChar protocol.UInteger
	emit := func(start, end int, kind tokenKind) {
		if end <= start {
			return
		}
		pos := li.position(start)
		length := utf16Len(text[start:end])
		deltaChar := pos.Character
		if pos.Line == prevLine {
			deltaChar -= prevChar
		}
		data = append(data,
			pos.Line-prevLine,
			deltaChar,
			protocol.UInteger(length),
			tokenTypeIndex[kind.typ],
			kind.modifiers,
		)
		prevLine, prevChar = pos.Line, pos.Character
	}
	for _, r := range ranges {
		kind, ok := kindForCapture(r.Capture)
		if !ok {
			continue
		}
		start, end := int(r.StartByte), min(int(r.EndByte), len(text))
		for start < end {
			nl := strings.IndexByte(text[start:end], '\n')
			if nl < 0 {
				emit(start, end, kind)
				break
			}
			emit(start, start+nl, kind)
			start += nl + 1
		}
	}
	return data
}
