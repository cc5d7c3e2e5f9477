package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testClient struct {
	t      *testing.T
	conn   *websocket.Conn
	nextID int
	notes  []map[string]any
}

func dial(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn}
}

// call sends a request and returns its response, collecting any
// notifications that arrive first.
func (c *testClient) call(method string, params any) rpcResponseJSON {
	c.t.Helper()
	c.nextID++
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"id": c.nextID, "method": method, "params": params}))
	for {
		require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg rpcResponseJSON
		require.NoError(c.t, c.conn.ReadJSON(&msg))
		if msg.Method != "" {
			c.notes = append(c.notes, msg.Params)
			continue
		}
		require.EqualValues(c.t, c.nextID, msg.ID)
		return msg
	}
}

type rpcResponseJSON struct {
	ID     float64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params map[string]any  `json:"params"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(opts))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenUpdateTree(t *testing.T) {
	c := dial(t, newTestServer(t, Options{}))

	resp := c.call("open", map[string]any{"uri": "a.pars", "text": "let a = 1\nlet b = 2\n"})
	require.Nil(t, resp.Error)
	opened := decode[parseResult](t, resp.Result)
	assert.False(t, opened.HasError)
	assert.False(t, opened.Incremental)

	resp = c.call("update", map[string]any{"uri": "a.pars", "start": 18, "end": 19, "text": "3"})
	require.Nil(t, resp.Error)
	updated := decode[parseResult](t, resp.Result)
	assert.True(t, updated.Incremental)
	assert.Positive(t, updated.ReusedChunks)
	assert.Greater(t, updated.Version, opened.Version)

	resp = c.call("tree", map[string]any{"uri": "a.pars"})
	require.Nil(t, resp.Error)
	tree := decode[map[string]any](t, resp.Result)
	assert.Equal(t,
		"(source_file (let_statement pattern: (identifier) value: (number)) (let_statement pattern: (identifier) value: (number)))",
		tree["sexp"])
	assert.Len(t, c.notes, 2, "one diagnostics notification per parse")
}

func TestUndoRedo(t *testing.T) {
	c := dial(t, newTestServer(t, Options{}))
	require.Nil(t, c.call("open", map[string]any{"uri": "a.pars", "text": "let a = 1\n"}).Error)

	resp := c.call("undo", map[string]any{"uri": "a.pars"})
	require.Nil(t, resp.Error)
	assert.False(t, decode[historyResult](t, resp.Result).Applied, "nothing to undo")

	resp = c.call("update", map[string]any{"uri": "a.pars", "start": 8, "end": 9, "text": ""})
	require.Nil(t, resp.Error)
	assert.True(t, decode[parseResult](t, resp.Result).HasError)

	resp = c.call("undo", map[string]any{"uri": "a.pars"})
	require.Nil(t, resp.Error)
	undone := decode[historyResult](t, resp.Result)
	assert.True(t, undone.Applied)
	assert.True(t, undone.Incremental)
	assert.False(t, undone.HasError)
	assert.Equal(t, "let a = 1\n", undone.Text)

	resp = c.call("redo", map[string]any{"uri": "a.pars"})
	require.Nil(t, resp.Error)
	redone := decode[historyResult](t, resp.Result)
	assert.True(t, redone.Applied)
	assert.True(t, redone.HasError)
	assert.Equal(t, "let a = \n", redone.Text)

	resp = c.call("undo", map[string]any{"uri": "missing.pars"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeServerError, resp.Error.Code)
}

func TestUpdateFullTextPublishesDiagnostics(t *testing.T) {
	c := dial(t, newTestServer(t, Options{}))
	require.Nil(t, c.call("open", map[string]any{"uri": "a.pars", "text": "let x = 42\n"}).Error)

	resp := c.call("update", map[string]any{"uri": "a.pars", "text": "let x ="})
	require.Nil(t, resp.Error)
	assert.True(t, decode[parseResult](t, resp.Result).HasError)

	require.NotEmpty(t, c.notes)
	last := c.notes[len(c.notes)-1]
	diags, ok := last["diagnostics"].([]any)
	require.True(t, ok)
	require.Len(t, diags, 1)
	assert.Equal(t, "missing identifier", diags[0].(map[string]any)["message"])
}

func TestHighlightAndQuery(t *testing.T) {
	c := dial(t, newTestServer(t, Options{}))
	require.Nil(t, c.call("open", map[string]any{"uri": "a.pars", "text": "let x = 42"}).Error)

	resp := c.call("highlight", map[string]any{"uri": "a.pars"})
	require.Nil(t, resp.Error)
	hl := decode[struct {
		Ranges []highlightRange `json:"ranges"`
	}](t, resp.Result)
	assert.Equal(t, []highlightRange{
		{Start: 0, End: 3, Capture: "keyword"},
		{Start: 4, End: 5, Capture: "variable"},
		{Start: 6, End: 7, Capture: "operator"},
		{Start: 8, End: 10, Capture: "number"},
	}, hl.Ranges)

	resp = c.call("query", map[string]any{"uri": "a.pars", "query": "(number) @n"})
	require.Nil(t, resp.Error)
	q := decode[struct {
		Captures []captureResult `json:"captures"`
	}](t, resp.Result)
	require.Len(t, q.Captures, 1)
	assert.Equal(t, "42", q.Captures[0].Text)
	assert.Equal(t, "number", q.Captures[0].Type)

	resp = c.call("query", map[string]any{"uri": "a.pars", "query": "(bogus) @n"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "query:")
}

func TestRPCErrors(t *testing.T) {
	c := dial(t, newTestServer(t, Options{}))

	tests := []struct {
		method string
		params any
		code   int
	}{
		{"nope", map[string]any{}, codeMethodNotFound},
		{"tree", nil, codeInvalidParams},
		{"tree", map[string]any{"uri": "missing.pars"}, codeServerError},
		{"open", map[string]any{"uri": "a", "text": "", "language": "cobol"}, codeInvalidParams},
	}
	for _, tt := range tests {
		resp := c.call(tt.method, tt.params)
		require.NotNil(t, resp.Error, tt.method)
		assert.Equal(t, tt.code, resp.Error.Code, tt.method)
	}

	require.Nil(t, c.call("open", map[string]any{"uri": "a.pars", "text": "let a = 1"}).Error)
	resp := c.call("update", map[string]any{"uri": "a.pars", "start": 5, "end": 99, "text": "x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = c.call("update", map[string]any{"uri": "a.pars", "start": 5, "text": "x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := NewMetrics()
	srv := newTestServer(t, Options{Metrics: metrics})
	c := dial(t, srv)

	require.Nil(t, c.call("open", map[string]any{"uri": "a.pars", "text": "let a = 1\n"}).Error)
	require.Nil(t, c.call("update", map[string]any{"uri": "a.pars", "text": "let a = 2\n"}).Error)
	c.call("nope", nil)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.documents), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.requests.WithLabelValues("open", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.requests.WithLabelValues("nope", "error")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.parseDuration))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "parsley_parse_duration_seconds")
	assert.Contains(t, string(body), `parsley_rpc_requests_total{method="update",status="ok"} 1`)

	require.Nil(t, c.call("close", map[string]any{"uri": "a.pars"}).Error)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.documents), 0)
}

func TestNoMetricsEndpointByDefault(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSpansPerRequest(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := dial(t, newTestServer(t, Options{Tracer: tp.Tracer("test")}))
	require.Nil(t, c.call("open", map[string]any{"uri": "a.pars", "text": "let a = 1"}).Error)
	c.call("tree", map[string]any{"uri": "gone.pars"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "rpc open", spans[0].Name)
	assert.Equal(t, "rpc tree", spans[1].Name)
	assert.Equal(t, "Error", spans[1].Status.Code.String())

	var sawURI bool
	for _, kv := range spans[0].Attributes {
		if kv.Key == "parsley.uri" && kv.Value.AsString() == "a.pars" {
			sawURI = true
		}
	}
	assert.True(t, sawURI, "open span should carry the document uri")
}
