// Package lvar extracts local variable occurrences from Ripper-shaped syntax trees.
//
// The Extractor recognizes the constructs that bind or reference a local
// variable (assignments, parameters, block variables, rescue bindings, loop
// variables and plain references) and walks every other node generically, so
// that variables nested anywhere in the tree are reported. Output order is a
// left-to-right pre-order visit of the tree.
package lvar

import (
	"github.com/Sumatoshi-tech/rubyhl/pkg/pattern"
	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

const unsupportedPrefix = "unsupported AST data: "

// Extractor collects local variable occurrences. An Extractor is immutable and
// safe for concurrent use; each Extract call owns its traversal state.
type Extractor struct {
	warner       Warner
	followCallee bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWarner routes diagnostics to w. A nil w discards them.
func WithWarner(w Warner) Option {
	return func(e *Extractor) {
		if w == nil {
			w = Discard
		}

		e.warner = w
	}
}

// WithCalleeRecursion controls whether the callee of a call with arguments is
// walked (e.g. the receiver x in x.foo(y)). Off by default: only the
// arguments are walked.
func WithCalleeRecursion(enabled bool) Option {
	return func(e *Extractor) {
		e.followCallee = enabled
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{warner: Discard}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

var defaultExtractor = New()

// Extract runs the default Extractor, which discards diagnostics.
func Extract(tree sexp.Sexp) []Occurrence {
	return defaultExtractor.Extract(tree)
}

// Extract returns every local variable occurrence in tree. It never fails:
// unknown nodes are walked generically and scalars found where structure was
// expected are reported to the Warner and skipped.
func (e *Extractor) Extract(tree sexp.Sexp) []Occurrence {
	w := &walker{
		ext: e,
		ctx: pattern.NewContext(),
		out: make([]Occurrence, 0),
	}

	w.run(tree)

	return w.out
}

type mode uint8

const (
	modeExpr mode = iota
	modeTarget
	modeParamSlot
	modeEmit
)

type task struct {
	value sexp.Sexp
	occ   Occurrence
	mode  mode
}

// walker is the state of one extraction. Handlers append tasks to plan in
// visit order; flush moves them onto the LIFO stack reversed.
type walker struct {
	ext   *Extractor
	ctx   *pattern.Context
	stack []task
	plan  []task
	out   []Occurrence
}

func (w *walker) run(root sexp.Sexp) {
	w.stack = append(w.stack, task{mode: modeExpr, value: root})

	for len(w.stack) > 0 {
		t := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]

		switch t.mode {
		case modeExpr:
			w.visitExpr(t.value)
		case modeTarget:
			w.visitTarget(t.value)
		case modeParamSlot:
			w.visitParamSlot(t.value)
		case modeEmit:
			w.out = append(w.out, t.occ)
		}

		w.flush()
	}
}

func (w *walker) flush() {
	for i := len(w.plan) - 1; i >= 0; i-- {
		w.stack = append(w.stack, w.plan[i])
	}

	clear(w.plan)
	w.plan = w.plan[:0]
}

func (w *walker) expr(v sexp.Sexp) {
	w.plan = append(w.plan, task{mode: modeExpr, value: v})
}

// each plans every element of a list-like value in expression mode.
func (w *walker) each(v sexp.Sexp) {
	if sexp.IsAbsent(v) {
		return
	}

	if l, ok := v.(sexp.List); ok {
		for _, item := range l {
			w.expr(item)
		}

		return
	}

	w.expr(v)
}

func (w *walker) target(v sexp.Sexp) {
	w.plan = append(w.plan, task{mode: modeTarget, value: v})
}

func (w *walker) paramSlot(v sexp.Sexp) {
	w.plan = append(w.plan, task{mode: modeParamSlot, value: v})
}

func (w *walker) emit(v sexp.Sexp) {
	if tok, ok := v.(sexp.Token); ok {
		w.emitOccurrence(occurrenceOf(tok))
	}
}

func (w *walker) emitOccurrence(occ Occurrence) {
	w.plan = append(w.plan, task{mode: modeEmit, occ: occ})
}

func (w *walker) warn(v sexp.Sexp) {
	w.ext.warner.Warn(unsupportedPrefix + v.String())
}

// apply runs the first rule in rs whose pattern matches v.
func (w *walker) apply(rs []rule, v sexp.Sexp) bool {
	for _, r := range rs {
		w.ctx.Reset()

		if r.pattern.Match(w.ctx, v) {
			r.apply(w, w.ctx)
			w.ctx.Reset()

			return true
		}
	}

	return false
}

func (w *walker) visitExpr(v sexp.Sexp) {
	switch n := v.(type) {
	case *sexp.Node:
		if w.apply(exprRules[n.Tag()], n) {
			return
		}

		for _, child := range n.Children() {
			w.expr(child)
		}
	case sexp.List:
		for _, item := range n {
			w.expr(item)
		}
	case sexp.Token:
	default:
		if !sexp.IsAbsent(v) {
			w.warn(v)
		}
	}
}

// visitTarget handles one left-hand side of a mass assignment, a for loop
// variable or a positional parameter.
func (w *walker) visitTarget(v sexp.Sexp) {
	switch n := v.(type) {
	case sexp.Token:
		if n.Type == identType {
			w.emitOccurrence(occurrenceOf(n))
		}
	case sexp.List:
		for _, item := range n {
			w.target(item)
		}
	case *sexp.Node:
		if !w.apply(targetRules[n.Tag()], n) {
			w.visitExpr(n)
		}
	default:
		if !sexp.IsAbsent(v) {
			w.warn(v)
		}
	}
}

// visitParamSlot handles the rest, keyword-rest and block parameter slots.
func (w *walker) visitParamSlot(v sexp.Sexp) {
	if sexp.IsAbsent(v) || sexp.Equal(v, sexp.Int(0)) {
		return
	}

	if !w.apply(slotRules, v) {
		w.visitExpr(v)
	}
}
