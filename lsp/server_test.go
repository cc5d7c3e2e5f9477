package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/parsley/editor"
)

const testURI = "file:///work/main.pars"

type notification struct {
	method string
	params any
}

func testContext(sent *[]notification) *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			*sent = append(*sent, notification{method: method, params: params})
		},
	}
}

func lastDiagnostics(t *testing.T, sent []notification) *protocol.PublishDiagnosticsParams {
	t.Helper()
	require.NotEmpty(t, sent)
	last := sent[len(sent)-1]
	require.Equal(t, protocol.ServerTextDocumentPublishDiagnostics, last.method)
	params, ok := last.params.(*protocol.PublishDiagnosticsParams)
	require.True(t, ok, "params type %T", last.params)
	return params
}

func openDoc(t *testing.T, srv *Server, ctx *glsp.Context, text string) {
	t.Helper()
	require.NoError(t, srv.didOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: testURI, LanguageID: "parsley", Text: text},
	}))
}

func docText(t *testing.T, srv *Server) string {
	t.Helper()
	var text string
	require.True(t, srv.store.With(testURI, func(d *editor.Document) { text = d.Text() }))
	return text
}

func TestDocumentStore(t *testing.T) {
	store := NewDocumentStore()
	assert.False(t, store.With("file:///none", func(*editor.Document) { t.Fatal("called for missing doc") }))

	store.Set(testURI, editor.NewDocument(languageFor(testURI), "let a = 1"))
	assert.Equal(t, 1, store.Len())
	store.Delete(testURI)
	assert.Equal(t, 0, store.Len())
}

func TestInitializeAdvertisesLegend(t *testing.T) {
	srv := NewServer(Options{Version: "1.2.3"})
	res, err := srv.initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)

	result, ok := res.(protocol.InitializeResult)
	require.True(t, ok)
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "parsley", result.ServerInfo.Name)
	assert.Equal(t, "1.2.3", *result.ServerInfo.Version)

	opts, ok := result.Capabilities.SemanticTokensProvider.(protocol.SemanticTokensOptions)
	require.True(t, ok)
	assert.Equal(t, tokenTypes, opts.Legend.TokenTypes)
	assert.Equal(t, tokenModifiers, opts.Legend.TokenModifiers)
	assert.NotNil(t, result.Capabilities.FoldingRangeProvider)
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	var sent []notification
	ctx := testContext(&sent)
	srv := NewServer(Options{})

	openDoc(t, srv, ctx, "let x = 42\nlet y =")
	params := lastDiagnostics(t, sent)
	assert.Equal(t, testURI, params.URI)
	require.Len(t, params.Diagnostics, 1)

	d := params.Diagnostics[0]
	assert.Equal(t, "missing identifier", d.Message)
	assert.Equal(t, protocol.Position{Line: 1, Character: 7}, d.Range.Start)
	assert.Equal(t, d.Range.Start, d.Range.End)
	require.NotNil(t, d.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
}

func TestDidChangeRangedEdit(t *testing.T) {
	var sent []notification
	ctx := testContext(&sent)
	srv := NewServer(Options{})
	openDoc(t, srv, ctx, "let x = 42\nlet y =")

	err := srv.didChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEvent{
				Range: &protocol.Range{
					Start: protocol.Position{Line: 1, Character: 7},
					End:   protocol.Position{Line: 1, Character: 7},
				},
				Text: " x + 1",
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "let x = 42\nlet y = x + 1", docText(t, srv))
	assert.Empty(t, lastDiagnostics(t, sent).Diagnostics)
}

func TestDidChangeWholeDocument(t *testing.T) {
	var sent []notification
	ctx := testContext(&sent)
	srv := NewServer(Options{})
	openDoc(t, srv, ctx, "let a = 1\n")

	require.NoError(t, srv.didChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "let = 1\n"}},
	}))

	assert.Equal(t, "let = 1\n", docText(t, srv))
	assert.NotEmpty(t, lastDiagnostics(t, sent).Diagnostics)
}

func TestDidChangeUnopenedDocument(t *testing.T) {
	var sent []notification
	srv := NewServer(Options{})
	require.NoError(t, srv.didChange(testContext(&sent), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "x"}},
	}))
	assert.Empty(t, sent)
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	var sent []notification
	ctx := testContext(&sent)
	srv := NewServer(Options{})
	openDoc(t, srv, ctx, "let =")

	require.NoError(t, srv.didClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))
	assert.Empty(t, lastDiagnostics(t, sent).Diagnostics)
	assert.Equal(t, 0, srv.store.Len())
}

func TestSemanticTokensFull(t *testing.T) {
	var sent []notification
	ctx := testContext(&sent)
	srv := NewServer(Options{})
	openDoc(t, srv, ctx, "let x = 42 // n\n")

	tokens, err := srv.semanticTokensFull(ctx, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)

	want := []protocol.UInteger{
		0, 0, 3, tokenTypeIndex["keyword"], 0,
		0, 4, 1, tokenTypeIndex["variable"], 0,
		0, 2, 1, tokenTypeIndex["operator"], 0,
		0, 2, 2, tokenTypeIndex["number"], 0,
		0, 3, 4, tokenTypeIndex["comment"], 0,
	}
	assert.Equal(t, want, tokens.Data)
}

func TestKindForCapture(t *testing.T) {
	for capture, want := range map[string]string{
		"tag":              "type",
		"tag.delimiter":    "type",
		"attribute":        "property",
		"string.special":   "string",
		"function.call":    "function",
		"keyword.operator": "keyword",
	} {
		k, ok := kindForCapture(capture)
		require.True(t, ok, capture)
		assert.Equal(t, want, k.typ, capture)
	}
	_, ok := kindForCapture("punctuation.bracket")
	assert.False(t, ok)
}

func TestSemanticTokensUnknownDocument(t *testing.T) {
	srv := NewServer(Options{})
	tokens, err := srv.semanticTokensFull(&glsp.Context{}, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Nil(t, tokens)
}

func TestFoldingRange(t *testing.T) {
	var sent []notification
	ctx := testContext(&sent)
	srv := NewServer(Options{})
	openDoc(t, srv, ctx, "let f = fn(a) {\n  let b = a\n  b\n}\n")

	ranges, err := srv.foldingRange(ctx, &protocol.FoldingRangeParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, protocol.UInteger(0), ranges[0].StartLine)
	assert.Equal(t, protocol.UInteger(3), ranges[0].EndLine)
}

func TestLanguageFor(t *testing.T) {
	assert.NotNil(t, languageFor("file:///a/b.parsley"))
	assert.Equal(t, languageFor("file:///a/b.pars"), languageFor("untitled:Untitled-1"))
}
