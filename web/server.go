// Package web serves Parsley documents over a WebSocket JSON-RPC channel.
// Each connection owns its documents; every update is an incremental
// reparse, and diagnostics are pushed back as notifications.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/odvcencio/parsley/editor"
	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/odvcencio/parsley/grammars"
)

//go:embed static/*
var staticFS embed.FS

const tracerName = "github.com/odvcencio/parsley/web"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// Options configures a Server.
type Options struct {
	Logger       *slog.Logger
	Tracer       trace.Tracer
	Metrics      *Metrics // nil disables /metrics
	CommentLabel string   // "" keeps the highlighter default
}

// Server provides the HTTP + WebSocket endpoint.
type Server struct {
	opts     Options
	log      *slog.Logger
	tracer   trace.Tracer
	metrics  *Metrics
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// session is the per-connection state.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex // guards writes to conn
	docs map[string]*editor.Document
	hls  map[*gotreesitter.Language]*gotreesitter.Highlighter
}

type rpcRequest struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     any       `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcNotification struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// NewServer creates a server. Zero options give a discarding logger, the
// global otel tracer and no metrics endpoint.
func NewServer(opts Options) *Server {
	s := &Server{
		opts:    opts,
		log:     opts.Logger,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	s.mux.HandleFunc("/ws", s.handleWebSocket)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}
	if sub, err := fs.Sub(staticFS, "static"); err == nil {
		s.mux.Handle("/", http.FileServer(http.FS(sub)))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr, "metrics", s.metrics != nil)

	select {
	case err := <-errc:
		return fmt.Errorf("web: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web: shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "error", err)
		return
	}
	sess := &session{
		conn: conn,
		docs: make(map[string]*editor.Document),
		hls:  make(map[*gotreesitter.Language]*gotreesitter.Highlighter),
	}
	s.log.Debug("client connected", "remote", r.RemoteAddr)

	defer func() {
		conn.Close()
		if s.metrics != nil {
			s.metrics.documents.Sub(float64(len(sess.docs)))
		}
		s.log.Debug("client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			sess.write(rpcResponse{Error: &rpcError{Code: codeParseError, Message: err.Error()}})
			continue
		}
		sess.write(s.handleRPC(r.Context(), sess, req))
	}
}

func (sess *session) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_ = sess.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) handleRPC(ctx context.Context, sess *session, req rpcRequest) rpcResponse {
	_, span := s.tracer.Start(ctx, "rpc "+req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("rpc.method", req.Method)),
	)
	defer span.End()

	var (
		result any
		rerr   *rpcError
	)
	switch req.Method {
	case "open":
		result, rerr = s.rpcOpen(sess, req.Params, span)
	case "update":
		result, rerr = s.rpcUpdate(sess, req.Params, span)
	case "undo":
		result, rerr = s.rpcHistory(sess, req.Params, span, (*editor.Document).Undo)
	case "redo":
		result, rerr = s.rpcHistory(sess, req.Params, span, (*editor.Document).Redo)
	case "close":
		result, rerr = s.rpcClose(sess, req.Params)
	case "highlight":
		result, rerr = s.rpcHighlight(sess, req.Params)
	case "query":
		result, rerr = s.rpcQuery(sess, req.Params)
	case "tree":
		result, rerr = s.rpcTree(sess, req.Params)
	default:
		rerr = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)}
	}

	if rerr != nil {
		span.SetStatus(codes.Error, rerr.Message)
		s.log.Debug("rpc failed", "method", req.Method, "error", rerr.Message)
	}
	if s.metrics != nil {
		s.metrics.observeRequest(req.Method, rerr)
	}
	return rpcResponse{ID: req.ID, Result: result, Error: rerr}
}

type docParams struct {
	URI string `json:"uri"`
}

func decodeParams(raw json.RawMessage, v any) *rpcError {
	if len(raw) == 0 || string(raw) == "null" {
		return &rpcError{Code: codeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (sess *session) doc(uri string) (*editor.Document, *rpcError) {
	d, ok := sess.docs[uri]
	if !ok {
		return nil, &rpcError{Code: codeServerError, Message: fmt.Sprintf("document not open: %s", uri)}
	}
	return d, nil
}

// parseResult summarizes a parse for the client.
type parseResult struct {
	Version      uint64 `json:"version"`
	HasError     bool   `json:"hasError"`
	Incremental  bool   `json:"incremental"`
	Chunks       int    `json:"chunks"`
	ReusedChunks int    `json:"reusedChunks"`
}

func (s *Server) afterParse(sess *session, uri string, d *editor.Document, elapsed time.Duration, span trace.Span) parseResult {
	stats := d.Stats()
	if s.metrics != nil {
		s.metrics.observeParse(stats, elapsed.Seconds())
	}
	span.SetAttributes(
		attribute.String("parsley.uri", uri),
		attribute.Int("parsley.bytes", len(d.Text())),
		attribute.Int("parsley.chunks", stats.Chunks),
		attribute.Int("parsley.reused_chunks", stats.ReusedChunks+stats.ShiftedChunks),
		attribute.Bool("parsley.incremental", stats.Incremental),
	)
	sess.write(rpcNotification{Method: "diagnostics", Params: diagnosticsParams(uri, d)})
	return parseResult{
		Version:      d.Version(),
		HasError:     d.Tree().RootNode().HasError(),
		Incremental:  stats.Incremental,
		Chunks:       stats.Chunks,
		ReusedChunks: stats.ReusedChunks + stats.ShiftedChunks,
	}
}

type diagnostic struct {
	StartByte uint32             `json:"startByte"`
	EndByte   uint32             `json:"endByte"`
	Start     gotreesitter.Point `json:"start"`
	End       gotreesitter.Point `json:"end"`
	Message   string             `json:"message"`
	Missing   bool               `json:"missing,omitempty"`
}

func diagnosticsParams(uri string, d *editor.Document) map[string]any {
	diags := []diagnostic{}
	for _, dg := range d.Diagnostics() {
		diags = append(diags, diagnostic{
			StartByte: dg.StartByte,
			EndByte:   dg.EndByte,
			Start:     dg.StartPoint,
			End:       dg.EndPoint,
			Message:   dg.Message,
			Missing:   dg.Missing,
		})
	}
	return map[string]any{"uri": uri, "diagnostics": diags}
}

func (s *Server) rpcOpen(sess *session, raw json.RawMessage, span trace.Span) (any, *rpcError) {
	var p struct {
		URI      string `json:"uri"`
		Text     string `json:"text"`
		Language string `json:"language,omitempty"`
	}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	lang := grammars.ParsleyLanguage()
	if p.Language != "" {
		entry := grammars.LookupLanguage(p.Language)
		if entry == nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("unknown language: %s", p.Language)}
		}
		lang = entry.Language()
	} else if entry := grammars.DetectLanguage(p.URI); entry != nil {
		lang = entry.Language()
	}

	start := time.Now()
	d := editor.NewDocument(lang, p.Text, editor.WithLogger(s.log))
	elapsed := time.Since(start)
	if _, reopened := sess.docs[p.URI]; !reopened && s.metrics != nil {
		s.metrics.documents.Inc()
	}
	sess.docs[p.URI] = d
	return s.afterParse(sess, p.URI, d, elapsed, span), nil
}

func (s *Server) rpcUpdate(sess *session, raw json.RawMessage, span trace.Span) (any, *rpcError) {
	// Either a whole new text, or a byte range replacement when End is set.
	var p struct {
		URI   string `json:"uri"`
		Text  string `json:"text"`
		Start *int   `json:"start,omitempty"`
		End   *int   `json:"end,omitempty"`
	}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	d, rerr := sess.doc(p.URI)
	if rerr != nil {
		return nil, rerr
	}

	start := time.Now()
	if p.Start != nil || p.End != nil {
		if p.Start == nil || p.End == nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: "start and end must be given together"}
		}
		if err := d.ApplyEdit(*p.Start, *p.End, p.Text); err != nil {
			code := codeServerError
			if errors.Is(err, editor.ErrOutOfRange) {
				code = codeInvalidParams
			}
			return nil, &rpcError{Code: code, Message: err.Error()}
		}
	} else if !d.SetText(p.Text) {
		return parseResult{Version: d.Version(), HasError: d.Tree().RootNode().HasError()}, nil
	}
	return s.afterParse(sess, p.URI, d, time.Since(start), span), nil
}

// rpcHistory steps the document's edit history. Nothing to step is not
// an error; the result reports applied=false and no parse happens.
func (s *Server) rpcHistory(sess *session, raw json.RawMessage, span trace.Span, step func(*editor.Document) bool) (any, *rpcError) {
	var p docParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	d, rerr := sess.doc(p.URI)
	if rerr != nil {
		return nil, rerr
	}
	start := time.Now()
	if !step(d) {
		return historyResult{parseResult: parseResult{Version: d.Version(), HasError: d.Tree().RootNode().HasError()}, Text: d.Text()}, nil
	}
	res := s.afterParse(sess, p.URI, d, time.Since(start), span)
	return historyResult{parseResult: res, Applied: true, Text: d.Text()}, nil
}

// historyResult carries the text so clients can resync their buffer.
type historyResult struct {
	parseResult
	Applied bool   `json:"applied"`
	Text    string `json:"text"`
}

func (s *Server) rpcClose(sess *session, raw json.RawMessage) (any, *rpcError) {
	var p docParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if _, rerr := sess.doc(p.URI); rerr != nil {
		return nil, rerr
	}
	delete(sess.docs, p.URI)
	if s.metrics != nil {
		s.metrics.documents.Dec()
	}
	return map[string]string{"status": "closed"}, nil
}

type highlightRange struct {
	Start   uint32 `json:"start"`
	End     uint32 `json:"end"`
	Capture string `json:"capture"`
}

func (s *Server) rpcHighlight(sess *session, raw json.RawMessage) (any, *rpcError) {
	var p docParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	d, rerr := sess.doc(p.URI)
	if rerr != nil {
		return nil, rerr
	}
	h, ok := sess.hls[d.Language()]
	if !ok {
		var opts []gotreesitter.HighlighterOption
		if s.opts.CommentLabel != "" {
			opts = append(opts, gotreesitter.WithCommentLabel(s.opts.CommentLabel))
		}
		var err error
		h, err = gotreesitter.NewHighlighter(d.Language(), editor.HighlightQuery(d.Language()), opts...)
		if err != nil {
			return nil, &rpcError{Code: codeServerError, Message: err.Error()}
		}
		sess.hls[d.Language()] = h
	}
	ranges := []highlightRange{}
	for _, r := range h.HighlightTree(d.Tree()) {
		ranges = append(ranges, highlightRange{Start: r.StartByte, End: r.EndByte, Capture: r.Capture})
	}
	return map[string]any{"version": d.Version(), "ranges": ranges}, nil
}

type captureResult struct {
	Name  string             `json:"name"`
	Type  string             `json:"type"`
	Start uint32             `json:"start"`
	End   uint32             `json:"end"`
	Point gotreesitter.Point `json:"point"`
	Text  string             `json:"text"`
}

func (s *Server) rpcQuery(sess *session, raw json.RawMessage) (any, *rpcError) {
	var p struct {
		URI   string `json:"uri"`
		Query string `json:"query"`
		Start uint32 `json:"start,omitempty"`
		End   uint32 `json:"end,omitempty"`
	}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	d, rerr := sess.doc(p.URI)
	if rerr != nil {
		return nil, rerr
	}
	caps, err := d.Query(p.Query, p.Start, p.End)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	out := []captureResult{}
	for _, c := range caps {
		out = append(out, captureResult{
			Name: c.Name, Type: c.Type, Start: c.StartByte, End: c.EndByte, Point: c.StartPoint, Text: c.Text,
		})
	}
	return map[string]any{"captures": out}, nil
}

func (s *Server) rpcTree(sess *session, raw json.RawMessage) (any, *rpcError) {
	var p docParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	d, rerr := sess.doc(p.URI)
	if rerr != nil {
		return nil, rerr
	}
	return map[string]any{
		"version": d.Version(),
		"sexp":    d.Tree().RootNode().String(d.Language()),
	}, nil
}
