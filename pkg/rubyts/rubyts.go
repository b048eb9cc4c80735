// Package rubyts produces Ripper-shaped syntax trees in process by parsing
// Ruby with tree-sitter and lowering its concrete syntax tree.
//
// Only the constructs that bind or reference local variables get a faithful
// Ripper shape. Everything else lowers to a node tagged with the tree-sitter
// node type, whose children are the lowered named children, so the extractor
// still walks into it generically.
package rubyts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexaandru/go-sitter-forest/ruby"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

// Sentinel errors.
var (
	ErrSyntax   = errors.New("ruby syntax error")
	errNoRoot   = errors.New("tree-sitter: no root node")
	errPoolType = errors.New("tree-sitter: pool returned unexpected type")
)

// Parser parses Ruby with the tree-sitter grammar. It is safe for concurrent
// use; tree-sitter parsers are pooled.
type Parser struct {
	logger *slog.Logger
	pool   sync.Pool
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	lang := sitter.NewLanguage(ruby.GetLanguage())

	p := &Parser{logger: slog.Default()}
	p.pool = sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name identifies the backend.
func (p *Parser) Name() string { return "treesitter" }

// Tree parses src and lowers it. Source with parse errors yields ErrSyntax.
func (p *Parser) Tree(ctx context.Context, src []byte) (sexp.Sexp, error) {
	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	start := time.Now()

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter: failed to parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRoot
	}

	if root.HasError() {
		return nil, fmt.Errorf("%w near line %d", ErrSyntax, firstError(root).StartPoint().Row+1)
	}

	out := newLowerer(src).node(root)

	p.logger.DebugContext(ctx, "tree-sitter finished", "bytes", len(src), "elapsed", time.Since(start))

	return out, nil
}

// firstError finds the leftmost ERROR or missing node, falling back to n.
func firstError(n sitter.Node) sitter.Node {
	for idx := range n.ChildCount() {
		child := n.Child(idx)
		if child.IsError() || child.IsMissing() {
			return child
		}

		if child.HasError() {
			return firstError(child)
		}
	}

	return n
}
