// Package lsp provides a Language Server Protocol server that highlights every
// occurrence of the Ruby local variable under the cursor.
package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
	"github.com/Sumatoshi-tech/rubyhl/pkg/source"
	"github.com/Sumatoshi-tech/rubyhl/pkg/version"
)

const serverName = "rubyhl"

var diagnosticSource = serverName

// Server implements the rubyhl language server.
type Server struct {
	store        *DocumentStore
	svc          *source.Service
	logger       *slog.Logger
	metrics      *observability.ExtractionMetrics
	handler      protocol.Handler
	showWarnings bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		if logger != nil {
			srv.logger = logger
		}
	}
}

// WithMetrics tracks in-flight requests in m.
func WithMetrics(m *observability.ExtractionMetrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// WithWarnings publishes extractor diagnostics alongside syntax errors.
func WithWarnings(enabled bool) Option {
	return func(srv *Server) { srv.showWarnings = enabled }
}

// NewServer creates a language server extracting through svc.
func NewServer(svc *source.Service, opts ...Option) *Server {
	srv := &Server{store: NewDocumentStore(), svc: svc, logger: slog.Default()}

	for _, opt := range opts {
		opt(srv)
	}

	srv.handler = protocol.Handler{
		Initialize:                    srv.initialize,
		Initialized:                   srv.initialized,
		Shutdown:                      srv.shutdown,
		SetTrace:                      srv.setTrace,
		TextDocumentDidOpen:           srv.didOpen,
		TextDocumentDidChange:         srv.didChange,
		TextDocumentDidSave:           srv.didSave,
		TextDocumentDidClose:          srv.didClose,
		TextDocumentHover:             srv.hover,
		TextDocumentDocumentHighlight: srv.documentHighlight,
	}

	return srv
}

// Run serves LSP on stdio until the client disconnects.
func (srv *Server) Run() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = protocol.TextDocumentSyncKindFull

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version.Version,
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

	srv.store.Set(uri, params.TextDocument.Text)
	srv.analyze(ctx, uri)

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	text, ok := srv.store.Get(uri)
	if !ok {
		return nil
	}

	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
			} else {
				text = applyChange(text, *c.Range, c.Text)
			}
		}
	}

	srv.store.Set(uri, text)
	srv.analyze(ctx, uri)

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	if params.Text != nil {
		srv.store.Set(uri, *params.Text)
	}

	if _, ok := srv.store.Get(uri); ok {
		srv.analyze(ctx, uri)
	}

	return nil
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	srv.store.Delete(uri)
	srv.publish(ctx, uri, []protocol.Diagnostic{})

	return nil
}

// analyze re-extracts uri and publishes its diagnostics. On failure the
// previous occurrences are kept.
func (srv *Server) analyze(ctx *glsp.Context, uri string) {
	text, ok := srv.store.Get(uri)
	if !ok {
		return
	}

	res, err := srv.svc.Extract(context.Background(), []byte(text))

	diagnostics := make([]protocol.Diagnostic, 0)

	switch {
	case err == nil:
		srv.store.SetOccurrences(uri, res.Occurrences)

		if srv.showWarnings {
			for _, warning := range res.Warnings {
				diagnostics = append(diagnostics, diagnostic(warning, protocol.DiagnosticSeverityWarning))
			}
		}
	case source.IsSyntaxError(err):
		diagnostics = append(diagnostics, diagnostic(err.Error(), protocol.DiagnosticSeverityError))
	default:
		srv.logger.Warn("extraction failed", "uri", uri, "error", err)
		diagnostics = append(diagnostics, diagnostic(err.Error(), protocol.DiagnosticSeverityWarning))
	}

	srv.publish(ctx, uri, diagnostics)
}

func diagnostic(message string, severity protocol.DiagnosticSeverity) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    protocol.Range{},
		Severity: &severity,
		Source:   &diagnosticSource,
		Message:  message,
	}
}

func (srv *Server) publish(ctx *glsp.Context, uri string, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// underCursor returns the occurrence at pos and every occurrence sharing its
// name. A cursor just past the name still counts.
func (srv *Server) underCursor(uri string, pos protocol.Position) (string, lvar.Occurrence, []lvar.Occurrence) {
	text, ok := srv.store.Get(uri)
	if !ok {
		return "", lvar.Occurrence{}, nil
	}

	line := int(pos.Line) + 1
	col := byteColumn(lineAt(text, int(pos.Line)), int(pos.Character))
	occs := srv.store.Occurrences(uri)

	for _, c := range []int{col, col - 1} {
		if at, found := lvar.At(occs, line, c); found {
			return text, at, lvar.Related(occs, line, c)
		}
	}

	return text, lvar.Occurrence{}, nil
}

func (srv *Server) documentHighlight(_ *glsp.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	defer srv.metrics.TrackInflight(context.Background(), "documentHighlight")()

	text, _, related := srv.underCursor(params.TextDocument.URI, params.Position)
	if len(related) == 0 {
		return nil, nil //nolint:nilnil // LSP expects null when nothing is highlighted.
	}

	kind := protocol.DocumentHighlightKindText
	highlights := make([]protocol.DocumentHighlight, 0, len(related))

	for _, o := range related {
		highlights = append(highlights, protocol.DocumentHighlight{Range: rangeOf(text, o), Kind: &kind})
	}

	return highlights, nil
}

func (srv *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	defer srv.metrics.TrackInflight(context.Background(), "hover")()

	text, cursor, related := srv.underCursor(params.TextDocument.URI, params.Position)
	if len(related) == 0 {
		return nil, nil //nolint:nilnil // LSP protocol expects nil hover when no docs available.
	}

	lines := make([]string, 0, len(related))
	for _, o := range related {
		lines = append(lines, strconv.Itoa(o.Line))
	}

	lines = slices.Compact(lines)

	value := fmt.Sprintf("`%s` local variable: %d occurrence(s) on line(s) %s",
		cursor.Name, len(related), strings.Join(lines, ", "))

	r := rangeOf(text, cursor)

	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: value},
		Range:    &r,
	}, nil
}

func rangeOf(text string, o lvar.Occurrence) protocol.Range {
	line := lineAt(text, o.Line-1)

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(o.Line - 1), Character: protocol.UInteger(utf16Column(line, o.Column))},
		End:   protocol.Position{Line: protocol.UInteger(o.Line - 1), Character: protocol.UInteger(utf16Column(line, o.End()))},
	}
}
