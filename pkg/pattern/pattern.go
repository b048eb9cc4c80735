// Package pattern matches declarative shapes against [sexp] trees.
//
// A Pattern is tested against a value with Match, which records captured
// sub-trees in a [Context]. Patterns are immutable once built and may be shared
// between goroutines; a Context belongs to a single match attempt.
//
// Shapes are usually written as nested []any descriptions and compiled with
// [Build]:
//
//	assign := pattern.MustBuild([]any{
//		sexp.Symbol("assign"),
//		[]any{sexp.Symbol("var_field"), pattern.Capture(1)},
//		pattern.Capture(2),
//	})
//
// A trailing [Rest] (or a conjunction containing it) turns the enclosing array
// into a variable-length sequence whose middle slice is matched as a list.
package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

// Pattern describes a shape to test against a Sexp.
type Pattern interface {
	// Match reports whether v has the shape, recording captures in ctx.
	// Captures recorded before a failing sub-match are not rolled back.
	Match(ctx *Context, v sexp.Sexp) bool
	fmt.Stringer

	restCapable() bool
}

// Match tests p against v with a fresh context.
func Match(p Pattern, v sexp.Sexp) (*Context, bool) {
	ctx := NewContext()

	return ctx, p.Match(ctx, v)
}

// Any matches every value.
var Any Pattern = wildcard{}

// Rest matches a variable-length middle slice of any length. It is only
// meaningful as the last element of an array description.
var Rest Pattern = restMarker{}

type wildcard struct{}

func (wildcard) Match(*Context, sexp.Sexp) bool { return true }
func (wildcard) String() string                 { return "_" }
func (wildcard) restCapable() bool              { return false }

type restMarker struct{}

func (restMarker) Match(*Context, sexp.Sexp) bool { return true }
func (restMarker) String() string                 { return "*" }
func (restMarker) restCapable() bool              { return true }

type literal struct {
	value sexp.Sexp
}

// Literal matches values structurally equal to v.
func Literal(v sexp.Sexp) Pattern {
	if v == nil {
		v = sexp.Nil{}
	}

	return literal{value: v}
}

// Sym matches the symbol with the given name.
func Sym(name string) Pattern {
	return literal{value: sexp.Symbol(name)}
}

func (l literal) Match(_ *Context, v sexp.Sexp) bool { return sexp.Equal(l.value, v) }
func (l literal) String() string                     { return l.value.String() }
func (literal) restCapable() bool                    { return false }

type capture struct {
	index int
}

// Capture matches any value and records it under index.
func Capture(index int) Pattern {
	if index < 0 {
		panic(fmt.Sprintf("pattern: negative capture index %d", index))
	}

	return capture{index: index}
}

func (c capture) Match(ctx *Context, v sexp.Sexp) bool {
	ctx.set(c.index, v)

	return true
}

func (c capture) String() string   { return "$" + strconv.Itoa(c.index) }
func (capture) restCapable() bool { return false }

type alternation []Pattern

// Or matches when any alternative matches. Alternatives may be plain
// descriptions; a malformed one panics, as with [MustBuild].
func Or(alts ...any) Pattern {
	return alternation(mustBuildAll(alts))
}

func (a alternation) Match(ctx *Context, v sexp.Sexp) bool {
	for _, alt := range a {
		if alt.Match(ctx, v) {
			return true
		}
	}

	return false
}

func (a alternation) String() string { return joinPatterns(a, " | ") }

func (a alternation) restCapable() bool {
	for _, alt := range a {
		if alt.restCapable() {
			return true
		}
	}

	return false
}

type conjunction []Pattern

// And matches when every part matches the same value. And(Rest, Capture(n))
// is the usual way to capture the variable-length middle of an array.
func And(parts ...any) Pattern {
	return conjunction(mustBuildAll(parts))
}

func (c conjunction) Match(ctx *Context, v sexp.Sexp) bool {
	for _, part := range c {
		if !part.Match(ctx, v) {
			return false
		}
	}

	return true
}

func (c conjunction) String() string { return joinPatterns(c, " & ") }

func (c conjunction) restCapable() bool {
	for _, part := range c {
		if part.restCapable() {
			return true
		}
	}

	return false
}

// Seq matches array-like values (nodes, lists and tokens). Without Rest the
// value must have exactly len(Head)+len(Tail) elements; with Rest it needs at
// least that many and Rest is matched against the middle slice as a list.
type Seq struct {
	Rest Pattern
	Head []Pattern
	Tail []Pattern
}

// Array builds a Seq from explicit head, optional rest and tail parts.
func Array(head []Pattern, rest Pattern, tail []Pattern) *Seq {
	return &Seq{Head: head, Rest: rest, Tail: tail}
}

// Match implements Pattern.
func (s *Seq) Match(ctx *Context, v sexp.Sexp) bool {
	elems, ok := sexp.Elements(v)
	if !ok {
		return false
	}

	size := len(s.Head) + len(s.Tail)

	if s.Rest == nil && len(elems) != size || len(elems) < size {
		return false
	}

	for i, p := range s.Head {
		if !p.Match(ctx, elems[i]) {
			return false
		}
	}

	tailStart := len(elems) - len(s.Tail)

	for i, p := range s.Tail {
		if !p.Match(ctx, elems[tailStart+i]) {
			return false
		}
	}

	if s.Rest == nil {
		return true
	}

	return s.Rest.Match(ctx, sexp.List(elems[len(s.Head):tailStart:tailStart]))
}

func (s *Seq) String() string {
	parts := make([]string, 0, len(s.Head)+len(s.Tail)+1)

	for _, p := range s.Head {
		parts = append(parts, p.String())
	}

	if s.Rest != nil {
		parts = append(parts, "*"+strings.TrimPrefix(s.Rest.String(), "*"))
	}

	for _, p := range s.Tail {
		parts = append(parts, p.String())
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func (*Seq) restCapable() bool { return false }

func joinPatterns(ps []Pattern, sep string) string {
	parts := make([]string, len(ps))

	for i, p := range ps {
		parts[i] = p.String()
	}

	return "(" + strings.Join(parts, sep) + ")"
}
