package pattern

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

// Sentinel errors for Build.
var (
	ErrRestNotLast = errors.New("rest pattern must be the last array element")
	ErrUnsupported = errors.New("unsupported pattern description")
)

// Build compiles a description into a Pattern:
//
//   - a Pattern is used as is
//   - []any becomes a Seq; a trailing rest-capable element becomes its Rest
//   - a sexp.Sexp becomes a Literal
//   - string, int, bool and nil become literals of the matching Sexp atom
func Build(desc any) (Pattern, error) {
	switch d := desc.(type) {
	case Pattern:
		return d, nil
	case []any:
		return buildArray(d)
	case sexp.Sexp:
		return Literal(d), nil
	case nil:
		return Literal(sexp.Nil{}), nil
	case string:
		return Literal(sexp.String(d)), nil
	case int:
		return Literal(sexp.Int(d)), nil
	case int64:
		return Literal(sexp.Int(d)), nil
	case bool:
		return Literal(sexp.Bool(d)), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, desc)
	}
}

// MustBuild is like [Build] but panics on a malformed description.
// It is intended for package-level rule tables.
func MustBuild(desc any) Pattern {
	p, err := Build(desc)
	if err != nil {
		panic(fmt.Sprintf("pattern: %v", err))
	}

	return p
}

func buildArray(desc []any) (*Seq, error) {
	parts := make([]Pattern, 0, len(desc))

	for i, elem := range desc {
		p, err := Build(elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		parts = append(parts, p)
	}

	seq := &Seq{Head: parts}

	if n := len(parts); n > 0 && parts[n-1].restCapable() {
		seq.Rest = parts[n-1]
		seq.Head = parts[:n-1]
	}

	for i, p := range seq.Head {
		if p.restCapable() {
			return nil, fmt.Errorf("element %d: %w", i, ErrRestNotLast)
		}
	}

	return seq, nil
}

func mustBuildAll(descs []any) []Pattern {
	out := make([]Pattern, len(descs))

	for i, d := range descs {
		out[i] = MustBuild(d)
	}

	return out
}
