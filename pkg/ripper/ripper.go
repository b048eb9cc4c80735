// Package ripper produces syntax trees by running Ruby's own Ripper parser in
// a subprocess and decoding its printed output.
package ripper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

// Sentinel errors.
var (
	ErrRubyNotFound = errors.New("ruby executable not found")
	ErrSyntax       = errors.New("ruby syntax error")
	ErrRuby         = errors.New("ruby failed")
	ErrTimeout      = errors.New("ruby timed out")
)

// script reads the program from stdin so no temporary file is needed.
const script = `STDIN.binmode; src = STDIN.read.force_encoding("UTF-8"); p Ripper.sexp(src)`

const (
	defaultRuby    = "ruby"
	defaultTimeout = 10 * time.Second
	stderrLimit    = 512
)

// Parser runs `ruby -rripper`.
type Parser struct {
	logger  *slog.Logger
	ruby    string
	timeout time.Duration
}

// Option configures a Parser.
type Option func(*Parser)

// WithRuby sets the ruby executable (a name on PATH or a path).
func WithRuby(path string) Option {
	return func(p *Parser) {
		if path != "" {
			p.ruby = path
		}
	}
}

// WithTimeout bounds each subprocess run.
func WithTimeout(d time.Duration) Option {
	return func(p *Parser) {
		if d > 0 {
			p.timeout = d
		}
	}
}

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
	p := &Parser{ruby: defaultRuby, timeout: defaultTimeout, logger: slog.Default()}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name identifies the backend.
func (p *Parser) Name() string { return "ripper" }

// Tree parses src and returns Ripper.sexp's tree. Invalid Ruby yields ErrSyntax.
func (p *Parser) Tree(ctx context.Context, src []byte) (sexp.Sexp, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, p.ruby, "-rripper", "-e", script)
	cmd.Stdin = bytes.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	p.logger.DebugContext(ctx, "ripper finished",
		"ruby", p.ruby, "bytes", len(src), "elapsed", time.Since(start), "stdout_bytes", stdout.Len())

	if runErr != nil {
		return nil, p.classify(ctx, runErr, stderr.String())
	}

	tree, err := sexp.Read(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode ripper output: %w", err)
	}

	if sexp.IsAbsent(tree) {
		return nil, ErrSyntax
	}

	return tree, nil
}

func (p *Parser) classify(ctx context.Context, runErr error, stderr string) error {
	if errors.Is(runErr, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRubyNotFound, p.ruby)
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("ripper: %w", ctx.Err())
	}

	stderr = strings.TrimSpace(stderr)
	if len(stderr) > stderrLimit {
		stderr = stderr[:stderrLimit] + "..."
	}

	return fmt.Errorf("%w: %w: %s", ErrRuby, runErr, stderr)
}
