// Package mcptools exposes the Parsley parser as Model Context Protocol
// tools: parse to a syntax tree with diagnostics, highlight, and run
// structural queries. The node-types schema is served as a resource.
package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/odvcencio/parsley/grammars"
)

const (
	serverName = "parsley"
	tracerName = "github.com/odvcencio/parsley/mcptools"

	// NodeTypesURI names the node-types.json resource.
	NodeTypesURI = "parsley://grammar/node-types.json"
)

// ServerDeps holds injectable dependencies. Zero-value fields use
// defaults.
type ServerDeps struct {
	Version string
	Logger  *slog.Logger
	Tracer  trace.Tracer // nil uses the global otel tracer
}

// Server wraps the MCP SDK server with the Parsley tool registrations.
type Server struct {
	inner  *mcpsdk.Server
	tracer trace.Tracer
	mu     sync.RWMutex
	tools  []string
}

// NewServer creates an MCP server with all tools registered.
func NewServer(deps ServerDeps) *Server {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	srv := &Server{
		inner:  mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: version}, opts),
		tracer: tracer,
	}
	srv.registerTools()
	srv.registerResources()
	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)
	return names
}

// Run serves on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is cancelled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	if err := s.inner.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameParse,
		Description: "Parse source into a concrete syntax tree. Returns the tree as an S-expression with field labels, and any syntax errors (ERROR and MISSING nodes) as diagnostics.",
	}, withTracing(s.tracer, ToolNameParse, handleParse))
	s.trackTool(ToolNameParse)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameHighlight,
		Description: "Highlight source with the grammar's highlight query. Returns non-overlapping byte spans labelled with capture names such as keyword, string and comment.",
	}, withTracing(s.tracer, ToolNameHighlight, handleHighlight))
	s.trackTool(ToolNameHighlight)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameQuery,
		Description: "Run a tree-sitter structural query over parsed source. Returns captures in document order with node types, positions and text.",
	}, withTracing(s.tracer, ToolNameQuery, handleQuery))
	s.trackTool(ToolNameQuery)
}

func (s *Server) registerResources() {
	s.inner.AddResource(&mcpsdk.Resource{
		URI:         NodeTypesURI,
		Name:        "node-types.json",
		Description: "Node types of the Parsley grammar: every visible node with its fields and children.",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcpsdk.ReadResourceRequest) (*mcpsdk.ReadResourceResult, error) {
		return &mcpsdk.ReadResourceResult{
			Contents: []*mcpsdk.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(grammars.ParsleyNodeTypes()),
			}},
		}, nil
	})
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// withTracing wraps a tool handler in a span per invocation. Tool-level
// failures mark the span as errored.
func withTracing[Input, Output any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, Output, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, Output, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, Output, error) {
		ctx, span := tracer.Start(ctx, "mcp."+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case result != nil && result.IsError:
			span.SetStatus(codes.Error, "tool error")
		}
		return result, output, err
	}
}
