// Package mcp implements a Model Context Protocol server exposing rubyhl
// local variable extraction as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rubyhl/pkg/cache"
	"github.com/Sumatoshi-tech/rubyhl/pkg/config"
	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
	"github.com/Sumatoshi-tech/rubyhl/pkg/source"
	"github.com/Sumatoshi-tech/rubyhl/pkg/version"
)

const (
	serverName = "rubyhl"

	toolCount = 2
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics records extractions and per-tool in-flight calls. Nil disables metrics.
	Metrics *observability.ExtractionMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Extract selects the default backend and extractor options.
	// The zero value uses config.Default().Extract.
	Extract *config.ExtractConfig

	// Cache is shared by every backend's service. Nil disables caching.
	Cache *cache.LRU
}

// Server wraps the MCP SDK server with rubyhl tool registrations.
type Server struct {
	inner    *mcpsdk.Server
	mu       sync.RWMutex
	tools    []string
	metrics  *observability.ExtractionMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
	extract  config.ExtractConfig
	cache    *cache.LRU
	backends map[string]*backend
}

// backend is one tree source with the service that extracts through it.
type backend struct {
	provider source.Provider
	service  *source.Service
}

// NewServer creates a new MCP server with all rubyhl tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	extract := config.Default().Extract
	if deps.Extract != nil {
		extract = *deps.Extract
	}

	opts := &mcpsdk.ServerOptions{Logger: logger}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	srv := &Server{
		inner:    inner,
		tools:    make([]string, 0, toolCount),
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		logger:   logger,
		extract:  extract,
		cache:    deps.Cache,
		backends: make(map[string]*backend),
	}

	srv.registerTools()

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

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// backend returns the tree source named name, creating it on first use.
// An empty name selects the configured default.
func (s *Server) backend(name string) (*backend, error) {
	if name == "" {
		name = s.extract.Backend
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.backends[name]; ok {
		return b, nil
	}

	cfg := s.extract
	cfg.Backend = name

	provider, err := source.New(cfg, s.logger)
	if err != nil {
		return nil, err
	}

	svcOpts := []source.ServiceOption{
		source.WithLogger(s.logger),
		source.WithMetrics(s.metrics),
		source.WithMaxFileSize(MaxCodeInputBytes),
		source.WithCalleeRecursion(cfg.FollowCallee),
		source.WithCache(s.cache),
	}

	if s.tracer != nil {
		svcOpts = append(svcOpts, source.WithTracer(s.tracer))
	}

	b := &backend{provider: provider, service: source.NewService(provider, svcOpts...)}
	s.backends[name] = b

	return b, nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameLocalVariables,
		Description: localVariablesToolDescription,
	}, withMetrics(s.metrics, ToolNameLocalVariables,
		withTracing(s.tracer, ToolNameLocalVariables, s.handleLocalVariables)))

	s.trackTool(ToolNameLocalVariables)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameTree,
		Description: treeToolDescription,
	}, withMetrics(s.metrics, ToolNameTree,
		withTracing(s.tracer, ToolNameTree, s.handleTree)))

	s.trackTool(ToolNameTree)
}

const (
	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[In, Out any](tracer trace.Tracer, toolName string, handler mcpsdk.ToolHandlerFor[In, Out]) mcpsdk.ToolHandlerFor[In, Out] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, Out, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to track in-flight calls. Extraction
// counts and durations are recorded by the source service itself.
func withMetrics[In, Out any](
	metrics *observability.ExtractionMetrics,
	toolName string,
	handler mcpsdk.ToolHandlerFor[In, Out],
) mcpsdk.ToolHandlerFor[In, Out] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, Out, error) {
		defer metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)()

		return handler(ctx, req, input)
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	localVariablesToolDescription = "List every local variable binding and reference in a Ruby program. " +
		"Accepts inline code or an absolute file path. Returns occurrences (name, line, column) " +
		"grouped by name, plus diagnostics for syntax the extractor does not understand."

	treeToolDescription = "Parse a Ruby program into a Ripper-style s-expression " +
		"(the shape of Ripper.sexp output). Accepts inline code or an absolute file path."
)
