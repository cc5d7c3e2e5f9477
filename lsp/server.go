// Package lsp provides a Language Server Protocol server for Parsley
// documents. It publishes syntax diagnostics and serves semantic tokens and
// folding ranges, all derived from incrementally reparsed trees.
package lsp

import (
	"net/url"
	"sync"

	"github.com/odvcencio/parsley/editor"
	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/odvcencio/parsley/grammars"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const lsName = "parsley"

// Options configures a Server.
type Options struct {
	Version      string
	CommentLabel string // highlight label for comments; "" keeps the default
}

// Server implements the Parsley language server.
type Server struct {
	store   *DocumentStore
	handler protocol.Handler
	opts    Options
	log     commonlog.Logger

	hlMu         sync.Mutex
	highlighters map[*gotreesitter.Language]*gotreesitter.Highlighter
}

// NewServer creates a language server with default handlers.
func NewServer(opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	srv := &Server{
		store:        NewDocumentStore(),
		opts:         opts,
		log:          commonlog.GetLogger("parsley.lsp"),
		highlighters: make(map[*gotreesitter.Language]*gotreesitter.Highlighter),
	}

	srv.handler = protocol.Handler{
		Initialize:                     srv.initialize,
		Initialized:                    srv.initialized,
		Shutdown:                       srv.shutdown,
		SetTrace:                       srv.setTrace,
		TextDocumentDidOpen:            srv.didOpen,
		TextDocumentDidChange:          srv.didChange,
		TextDocumentDidClose:           srv.didClose,
		TextDocumentSemanticTokensFull: srv.semanticTokensFull,
		TextDocumentFoldingRange:       srv.foldingRange,
	}

	return srv
}

// ConfigureLogging sets the commonlog verbosity. Logs go to stderr; stdout
// carries the protocol.
func ConfigureLogging(verbosity int) {
	commonlog.Configure(verbosity, nil)
}

// Run serves the protocol on stdio until the client disconnects.
func (srv *Server) Run() error {
	return server.NewServer(&srv.handler, lsName, false).RunStdio()
}

func (srv *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.ClientInfo != nil {
		srv.log.Infof("initialize from %s", params.ClientInfo.Name)
	}
	capabilities := srv.handler.CreateServerCapabilities()
	capabilities.SemanticTokensProvider = protocol.SemanticTokensOptions{
		Legend: semanticLegend(),
		Full:   true,
	}
	version := srv.opts.Version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := editor.NewDocument(languageFor(uri), params.TextDocument.Text)
	srv.store.Set(uri, doc)
	srv.log.Debugf("opened %s (%d bytes)", uri, len(params.TextDocument.Text))
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	found := srv.store.With(uri, func(doc *editor.Document) {
		for _, change := range params.ContentChanges {
			srv.applyChange(doc, change)
		}
		stats := doc.Stats()
		srv.log.Debugf("reparsed %s: %d chunks, %d reused", uri, stats.Chunks, stats.ReusedChunks)
	})
	if !found {
		srv.log.Warningf("change for unopened document %s", uri)
		return nil
	}
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) applyChange(doc *editor.Document, change any) {
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEvent:
		if c.Range == nil {
			doc.SetText(c.Text)
			return
		}
		li := newLineIndex(doc.Text())
		start, end := li.offset(c.Range.Start), li.offset(c.Range.End)
		if err := doc.ApplyEdit(start, max(start, end), c.Text); err != nil {
			srv.log.Errorf("apply change: %s", err.Error())
		}
	case protocol.TextDocumentContentChangeEventWhole:
		doc.SetText(c.Text)
	default:
		srv.log.Warningf("unsupported content change %T", change)
	}
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Delete(uri)
	// Clear stale diagnostics in the client.
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	return nil
}

func (srv *Server) semanticTokensFull(_ *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	var tokens *protocol.SemanticTokens
	srv.store.With(params.TextDocument.URI, func(doc *editor.Document) {
		h, err := srv.highlighter(doc.Language())
		if err != nil {
			srv.log.Errorf("highlighter: %s", err.Error())
			return
		}
		tokens = &protocol.SemanticTokens{
			Data: encodeSemanticTokens(doc.Text(), h.HighlightTree(doc.Tree())),
		}
	})

	return tokens, nil
}

func (srv *Server) foldingRange(_ *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	var ranges []protocol.FoldingRange
	srv.store.With(params.TextDocument.URI, func(doc *editor.Document) {
		for _, r := range doc.FoldRegions() {
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: protocol.UInteger(r.StartLine),
				EndLine:   protocol.UInteger(r.EndLine),
			})
		}
	})

	return ranges, nil
}

func (srv *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	diagnostics := []protocol.Diagnostic{}
	srv.store.With(uri, func(doc *editor.Document) {
		li := newLineIndex(doc.Text())
		severity := protocol.DiagnosticSeverityError
		source := lsName
		for _, d := range doc.Diagnostics() {
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    li.rangeOf(int(d.StartByte), int(d.EndByte)),
				Severity: &severity,
				Source:   &source,
				Message:  d.Message,
			})
		}
	})

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// highlighter returns the cached highlighter for lang.
func (srv *Server) highlighter(lang *gotreesitter.Language) (*gotreesitter.Highlighter, error) {
	srv.hlMu.Lock()
	defer srv.hlMu.Unlock()

	if h, ok := srv.highlighters[lang]; ok {
		return h, nil
	}
	var opts []gotreesitter.HighlighterOption
	if srv.opts.CommentLabel != "" {
		opts = append(opts, gotreesitter.WithCommentLabel(srv.opts.CommentLabel))
	}
	h, err := gotreesitter.NewHighlighter(lang, editor.HighlightQuery(lang), opts...)
	if err != nil {
		return nil, err
	}
	srv.highlighters[lang] = h

	return h, nil
}

// languageFor picks the registered language for a document URI by file
// extension, falling back to Parsley.
func languageFor(uri string) *gotreesitter.Language {
	path := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		path = u.Path
	}
	if entry := grammars.DetectLanguage(path); entry != nil {
		return entry.Language()
	}
	return grammars.ParsleyLanguage()
}
