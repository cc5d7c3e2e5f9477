package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/odvcencio/parsley/editor"
	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/odvcencio/parsley/grammars"
)

// Tool names.
const (
	ToolNameParse     = "parsley_parse"
	ToolNameHighlight = "parsley_highlight"
	ToolNameQuery     = "parsley_query"
)

// MaxCodeInputBytes is the largest accepted code input (1 MB).
const MaxCodeInputBytes = 1 << 20

var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrEmptyQuery indicates the query parameter is empty.
	ErrEmptyQuery = errors.New("query parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds MaxCodeInputBytes.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrUnsupportedLanguage indicates no registered grammar has the name.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// ParseInput is the input schema for parsley_parse.
type ParseInput struct {
	Code     string `json:"code"               jsonschema:"source code to parse"`
	Language string `json:"language,omitempty" jsonschema:"grammar name (default: parsley)"`
}

// HighlightInput is the input schema for parsley_highlight.
type HighlightInput struct {
	Code     string `json:"code"               jsonschema:"source code to highlight"`
	Language string `json:"language,omitempty" jsonschema:"grammar name (default: parsley)"`
}

// QueryInput is the input schema for parsley_query.
type QueryInput struct {
	Code      string `json:"code"                 jsonschema:"source code to query"`
	Query     string `json:"query"                jsonschema:"tree-sitter query pattern, e.g. (let_statement pattern: (identifier) @name)"`
	Language  string `json:"language,omitempty"   jsonschema:"grammar name (default: parsley)"`
	StartByte uint32 `json:"start_byte,omitempty" jsonschema:"restrict captures to nodes intersecting [start_byte, end_byte)"`
	EndByte   uint32 `json:"end_byte,omitempty"   jsonschema:"end of the byte range; 0 means the whole document"`
}

// DiagnosticInfo is a syntax error for MCP consumption. Lines and columns
// are 1-based; columns count bytes.
type DiagnosticInfo struct {
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	EndLine  int    `json:"endLine"`
	EndCol   int    `json:"endCol"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ParseOutput is the structured result of parsley_parse.
type ParseOutput struct {
	Language    string           `json:"language"`
	Tree        string           `json:"tree"`
	HasError    bool             `json:"has_error"`
	Diagnostics []DiagnosticInfo `json:"diagnostics"`
}

// HighlightSpan is one styled range.
type HighlightSpan struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	Capture   string `json:"capture"`
	Text      string `json:"text"`
}

// HighlightOutput is the structured result of parsley_highlight.
type HighlightOutput struct {
	Spans []HighlightSpan `json:"spans"`
}

// CaptureInfo is one query capture.
type CaptureInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	Line      int    `json:"line"`
	Col       int    `json:"col"`
	Text      string `json:"text"`
}

// QueryOutput is the structured result of parsley_query.
type QueryOutput struct {
	Captures []CaptureInfo `json:"captures"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult[Out any](err error) (*mcpsdk.CallToolResult, Out, error) {
	var zero Out
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, zero, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult[Out any](value Out) (*mcpsdk.CallToolResult, Out, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult[Out](fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, value, nil
}

// parseCode validates the shared code/language inputs and parses code.
func parseCode(code, language string) (*editor.Document, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}
	if len(code) > MaxCodeInputBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}
	lang := grammars.ParsleyLanguage()
	if language != "" {
		entry := grammars.LookupLanguage(language)
		if entry == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
		}
		lang = entry.Language()
	}
	return editor.NewDocument(lang, code), nil
}

func languageName(language string) string {
	if language == "" {
		return "parsley"
	}
	return language
}

func handleParse(_ context.Context, _ *mcpsdk.CallToolRequest, input ParseInput) (*mcpsdk.CallToolResult, ParseOutput, error) {
	doc, err := parseCode(input.Code, input.Language)
	if err != nil {
		return errorResult[ParseOutput](err)
	}

	out := ParseOutput{
		Language:    languageName(input.Language),
		Tree:        doc.Tree().RootNode().String(doc.Language()),
		HasError:    doc.Tree().RootNode().HasError(),
		Diagnostics: []DiagnosticInfo{},
	}
	for _, d := range doc.Diagnostics() {
		out.Diagnostics = append(out.Diagnostics, DiagnosticInfo{
			Line:     int(d.StartPoint.Row) + 1,
			Col:      int(d.StartPoint.Column) + 1,
			EndLine:  int(d.EndPoint.Row) + 1,
			EndCol:   int(d.EndPoint.Column) + 1,
			Severity: "error",
			Message:  d.Message,
		})
	}

	return jsonResult(out)
}

func handleHighlight(_ context.Context, _ *mcpsdk.CallToolRequest, input HighlightInput) (*mcpsdk.CallToolResult, HighlightOutput, error) {
	doc, err := parseCode(input.Code, input.Language)
	if err != nil {
		return errorResult[HighlightOutput](err)
	}

	h, err := gotreesitter.NewHighlighter(doc.Language(), editor.HighlightQuery(doc.Language()))
	if err != nil {
		return errorResult[HighlightOutput](fmt.Errorf("highlight query: %w", err))
	}

	out := HighlightOutput{Spans: []HighlightSpan{}}
	for _, r := range h.HighlightTree(doc.Tree()) {
		out.Spans = append(out.Spans, HighlightSpan{
			StartByte: r.StartByte,
			EndByte:   r.EndByte,
			Capture:   r.Capture,
			Text:      input.Code[r.StartByte:r.EndByte],
		})
	}

	return jsonResult(out)
}

func handleQuery(_ context.Context, _ *mcpsdk.CallToolRequest, input QueryInput) (*mcpsdk.CallToolResult, QueryOutput, error) {
	if input.Query == "" {
		return errorResult[QueryOutput](ErrEmptyQuery)
	}
	doc, err := parseCode(input.Code, input.Language)
	if err != nil {
		return errorResult[QueryOutput](err)
	}

	caps, err := doc.Query(input.Query, input.StartByte, input.EndByte)
	if err != nil {
		return errorResult[QueryOutput](err)
	}

	out := QueryOutput{Captures: []CaptureInfo{}}
	for _, c := range caps {
		out.Captures = append(out.Captures, CaptureInfo{
			Name:      c.Name,
			Type:      c.Type,
			StartByte: c.StartByte,
			EndByte:   c.EndByte,
			Line:      int(c.StartPoint.Row) + 1,
			Col:       int(c.StartPoint.Column) + 1,
			Text:      c.Text,
		})
	}

	return jsonResult(out)
}
