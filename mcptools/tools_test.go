package mcptools

import (
	"context"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func resultText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleParse(t *testing.T) {
	t.Parallel()

	result, out, err := handleParse(context.Background(), &mcpsdk.CallToolRequest{},
		ParseInput{Code: "let x = 42\nexport greeting = \"Hello, world!\"\n"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "parsley", out.Language)
	assert.False(t, out.HasError)
	assert.Empty(t, out.Diagnostics)
	assert.Equal(t,
		"(source_file (let_statement pattern: (identifier) value: (number)) (export_statement name: (identifier) value: (string (string_content))))",
		out.Tree)
	assert.Contains(t, resultText(t, result), `"tree"`)
}

func TestHandleParseDiagnostics(t *testing.T) {
	t.Parallel()

	_, out, err := handleParse(context.Background(), &mcpsdk.CallToolRequest{}, ParseInput{Code: "let x ="})
	require.NoError(t, err)
	assert.True(t, out.HasError)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, DiagnosticInfo{Line: 1, Col: 8, EndLine: 1, EndCol: 8, Severity: "error", Message: "missing identifier"},
		out.Diagnostics[0])
}

func TestHandleParseInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input ParseInput
		want  string
	}{
		{"empty", ParseInput{}, "code parameter is required"},
		{"language", ParseInput{Code: "x", Language: "cobol"}, "unsupported language: cobol"},
		{"size", ParseInput{Code: strings.Repeat("a", MaxCodeInputBytes+1)}, "exceeds maximum size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, _, err := handleParse(context.Background(), &mcpsdk.CallToolRequest{}, tt.input)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleHighlight(t *testing.T) {
	t.Parallel()

	result, out, err := handleHighlight(context.Background(), &mcpsdk.CallToolRequest{},
		HighlightInput{Code: "let s = \"a\" // note"})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var captures []string
	for _, s := range out.Spans {
		captures = append(captures, s.Capture+":"+s.Text)
	}
	assert.Equal(t, []string{"keyword:let", "variable:s", "operator:=", `string:"a"`, "comment:// note"}, captures)
}

func TestHandleQuery(t *testing.T) {
	t.Parallel()

	_, out, err := handleQuery(context.Background(), &mcpsdk.CallToolRequest{}, QueryInput{
		Code:  "let a = 1\nlet b = 2\n",
		Query: "(let_statement pattern: (identifier) @name)",
	})
	require.NoError(t, err)
	require.Len(t, out.Captures, 2)
	assert.Equal(t, CaptureInfo{Name: "name", Type: "identifier", StartByte: 14, EndByte: 15, Line: 2, Col: 5, Text: "b"},
		out.Captures[1])

	result, _, err := handleQuery(context.Background(), &mcpsdk.CallToolRequest{}, QueryInput{Code: "x", Query: "(nope"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "query:")

	result, _, err = handleQuery(context.Background(), &mcpsdk.CallToolRequest{}, QueryInput{Code: "x"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "query parameter is required")
}

func TestServerInMemoryTransport(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	srv := NewServer(ServerDeps{Version: "test", Tracer: tp.Tracer("test")})
	assert.Equal(t, []string{ToolNameHighlight, ToolNameParse, ToolNameQuery}, srv.ListToolNames())

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 3)
	for _, tool := range tools.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      ToolNameParse,
		Arguments: map[string]any{"code": "let x ="},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "missing identifier")

	nodeTypes, err := session.ReadResource(ctx, &mcpsdk.ReadResourceParams{URI: NodeTypesURI})
	require.NoError(t, err)
	require.Len(t, nodeTypes.Contents, 1)
	assert.Contains(t, nodeTypes.Contents[0].Text, `"let_statement"`)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	assert.Equal(t, "mcp."+ToolNameParse, spans[0].Name)

	cancel()
	<-serverDone
}
