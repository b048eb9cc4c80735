// Package source selects the backend that turns Ruby source into a
// Ripper-shaped tree and runs the local variable extractor over it.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/rubyhl/pkg/config"
	"github.com/Sumatoshi-tech/rubyhl/pkg/levenshtein"
	"github.com/Sumatoshi-tech/rubyhl/pkg/ripper"
	"github.com/Sumatoshi-tech/rubyhl/pkg/rubyts"
	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

// Sentinel errors.
var (
	ErrUnknownBackend = errors.New("unknown tree backend")
	ErrTooLarge       = errors.New("source exceeds max file size")
	ErrBinary         = errors.New("source is binary")
)

// Provider produces a syntax tree for a Ruby program.
type Provider interface {
	Name() string
	Tree(ctx context.Context, src []byte) (sexp.Sexp, error)
}

// IsSyntaxError reports whether err means the program does not parse, as
// opposed to the backend failing.
func IsSyntaxError(err error) bool {
	return errors.Is(err, ripper.ErrSyntax) || errors.Is(err, rubyts.ErrSyntax)
}

// New creates the Provider named by cfg.Backend.
func New(cfg config.ExtractConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case config.BackendTreeSitter, "":
		return rubyts.New(rubyts.WithLogger(logger)), nil
	case config.BackendRipper:
		return ripper.New(
			ripper.WithRuby(cfg.RubyPath),
			ripper.WithTimeout(cfg.Timeout),
			ripper.WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q%s", ErrUnknownBackend, cfg.Backend,
			levenshtein.Hint(cfg.Backend, []string{config.BackendTreeSitter, config.BackendRipper}))
	}
}
