package lvar

import (
	"strings"

	"github.com/Sumatoshi-tech/rubyhl/pkg/pattern"
	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

const identType = "@ident"

type rule struct {
	pattern pattern.Pattern
	apply   func(w *walker, m *pattern.Context)
}

type sym = sexp.Symbol

// ident captures an [:@ident, name, [line, col]] token under index.
func ident(index int) pattern.Pattern {
	return pattern.And([]any{sym(identType), pattern.Any, pattern.Any}, pattern.Capture(index))
}

func capture(index int) pattern.Pattern { return pattern.Capture(index) }

// restCapture captures the variable-length remainder of an array under index.
func restCapture(index int) pattern.Pattern { return pattern.And(pattern.Rest, pattern.Capture(index)) }

func on(desc []any, apply func(w *walker, m *pattern.Context)) rule {
	return rule{pattern: pattern.MustBuild(desc), apply: apply}
}

func nothing(*walker, *pattern.Context) {}

// exprRules are tried, in order, for nodes visited as expressions.
var exprRules = map[string][]rule{
	"program": {
		on([]any{sym("program"), capture(1)}, func(w *walker, m *pattern.Context) {
			w.each(m.Value(1))
		}),
	},
	"void_stmt": {on([]any{sym("void_stmt")}, nothing)},
	"vcall":     {on([]any{sym("vcall"), pattern.Any}, nothing)},
	"fcall":     {on([]any{sym("fcall"), pattern.Any}, nothing)},
	"assign": {
		on([]any{sym("assign"), []any{sym("var_field"), ident(1)}, capture(2)}, func(w *walker, m *pattern.Context) {
			w.emit(m.Value(1))
			w.expr(m.Value(2))
		}),
	},
	"opassign": {
		on([]any{sym("opassign"), []any{sym("var_field"), ident(1)}, pattern.Any, capture(2)}, func(w *walker, m *pattern.Context) {
			w.emit(m.Value(1))
			w.expr(m.Value(2))
		}),
	},
	"massign": {
		on([]any{sym("massign"), capture(1), capture(2)}, func(w *walker, m *pattern.Context) {
			w.target(m.Value(1))
			w.expr(m.Value(2))
		}),
	},
	"var_ref": {
		on([]any{sym("var_ref"), ident(1)}, func(w *walker, m *pattern.Context) {
			w.emit(m.Value(1))
		}),
	},
	"rescue": {
		on([]any{sym("rescue"), capture(1), []any{sym("var_field"), ident(2)}, capture(3), capture(4)},
			func(w *walker, m *pattern.Context) {
				w.emit(m.Value(2))
				w.expr(m.Value(1))
				w.each(m.Value(3))
				w.expr(m.Value(4))
			}),
	},
	"params": {
		on([]any{sym("params"), restCapture(1)}, func(w *walker, m *pattern.Context) {
			planParams(w, m.Value(1))
		}),
	},
	"for": {
		on([]any{sym("for"), capture(1), capture(2), capture(3)}, func(w *walker, m *pattern.Context) {
			w.target(m.Value(1))
			w.expr(m.Value(2))
			w.each(m.Value(3))
		}),
	},
	"method_add_block": {
		on([]any{
			sym("method_add_block"),
			capture(1),
			[]any{pattern.Or(sym("brace_block"), sym("do_block")), capture(2), capture(3)},
		}, func(w *walker, m *pattern.Context) {
			w.expr(m.Value(1))
			w.expr(m.Value(2))
			w.each(m.Value(3))
		}),
	},
	"block_var": {
		on([]any{sym("block_var"), capture(1), capture(2)}, func(w *walker, m *pattern.Context) {
			w.expr(m.Value(1))
			w.target(m.Value(2))
		}),
	},
	"string_literal": {
		on([]any{sym("string_literal"), []any{sym("string_content"), restCapture(1)}}, func(w *walker, m *pattern.Context) {
			w.each(m.Value(1))
		}),
	},
	"string_embexpr": {
		on([]any{sym("string_embexpr"), capture(1)}, func(w *walker, m *pattern.Context) {
			w.each(m.Value(1))
		}),
	},
	"module": {
		on([]any{sym("module"), pattern.Any, capture(1)}, func(w *walker, m *pattern.Context) {
			w.expr(m.Value(1))
		}),
	},
	"class": {
		on([]any{sym("class"), pattern.Any, pattern.Any, capture(1)}, func(w *walker, m *pattern.Context) {
			w.expr(m.Value(1))
		}),
	},
	"bodystmt": {
		on([]any{sym("bodystmt"), capture(1), capture(2), capture(3), capture(4)}, func(w *walker, m *pattern.Context) {
			w.each(m.Value(1))
			w.expr(m.Value(2))
			w.each(m.Value(3))
			w.expr(m.Value(4))
		}),
	},
	"def": {
		on([]any{sym("def"), pattern.Any, capture(1), capture(2)}, func(w *walker, m *pattern.Context) {
			w.expr(m.Value(1))
			w.expr(m.Value(2))
		}),
	},
	"defs": {
		on([]any{sym("defs"), capture(1), pattern.Any, pattern.Any, capture(2), capture(3)},
			func(w *walker, m *pattern.Context) {
				w.expr(m.Value(1))
				w.expr(m.Value(2))
				w.expr(m.Value(3))
			}),
	},
	"method_add_arg": {
		on([]any{
			sym("method_add_arg"),
			capture(1),
			[]any{sym("arg_paren"), []any{sym("args_add_block"), capture(2), capture(3)}},
		}, func(w *walker, m *pattern.Context) {
			w.callee(m.Value(1))
			w.each(m.Value(2))
			w.expr(m.Value(3))
		}),
	},
	"command": {
		on([]any{sym("command"), capture(1), []any{sym("args_add_block"), capture(2), capture(3)}},
			func(w *walker, m *pattern.Context) {
				w.callee(m.Value(1))
				w.each(m.Value(2))
				w.expr(m.Value(3))
			}),
	},
	"command_call": {
		on([]any{sym("command_call"), capture(1), pattern.Any, pattern.Any, capture(2)}, func(w *walker, m *pattern.Context) {
			w.callee(m.Value(1))
			w.expr(m.Value(2))
		}),
	},
	"binary": {
		on([]any{sym("binary"), capture(1), pattern.Any, capture(2)}, func(w *walker, m *pattern.Context) {
			w.expr(m.Value(1))
			w.expr(m.Value(2))
		}),
	},
	"unary": {
		on([]any{sym("unary"), pattern.Any, capture(1)}, func(w *walker, m *pattern.Context) {
			w.expr(m.Value(1))
		}),
	},
	"call":  {receiverOnly("call")},
	"field": {receiverOnly("field")},
}

// receiverOnly walks the receiver of [:tag, recv, op, name]; op and name are
// not variables.
func receiverOnly(tag string) rule {
	return on([]any{sym(tag), capture(1), pattern.Any, pattern.Any}, func(w *walker, m *pattern.Context) {
		w.expr(m.Value(1))
	})
}

// targetRules are tried for nodes on the left-hand side of a binding.
var targetRules = map[string][]rule{
	"var_field": {
		on([]any{sym("var_field"), ident(1)}, func(w *walker, m *pattern.Context) {
			w.emit(m.Value(1))
		}),
		on([]any{sym("var_field"), pattern.Any}, nothing),
	},
	"mlhs": {
		on([]any{sym("mlhs"), restCapture(1)}, func(w *walker, m *pattern.Context) {
			w.target(m.Value(1))
		}),
	},
	"mlhs_paren": {
		on([]any{sym("mlhs_paren"), capture(1)}, func(w *walker, m *pattern.Context) {
			w.target(m.Value(1))
		}),
	},
	"rest_param": {
		on([]any{sym("rest_param"), capture(1)}, func(w *walker, m *pattern.Context) {
			w.target(m.Value(1))
		}),
	},
	"aref_field": {
		on([]any{sym("aref_field"), capture(1), capture(2)}, func(w *walker, m *pattern.Context) {
			w.expr(m.Value(1))
			w.expr(m.Value(2))
		}),
	},
	"field": {receiverOnly("field")},
}

// slotRules match the rest, keyword-rest and block parameter slots.
var slotRules = []rule{
	on([]any{pattern.Or(sym("rest_param"), sym("kwrest_param"), sym("blockarg")), ident(1)},
		func(w *walker, m *pattern.Context) {
			w.emit(m.Value(1))
		}),
	on([]any{pattern.Or(sym("rest_param"), sym("kwrest_param"), sym("blockarg"), sym("nokw_param")), nil}, nothing),
}

// planParams walks [:params, req, opts, rest, post, kw, kwrest, block]. Every
// parameter name is reported in declaration order, and default values are
// walked right after the parameter they belong to.
func planParams(w *walker, slots sexp.Sexp) {
	elems, _ := sexp.Elements(slots)

	slot := func(i int) sexp.Sexp {
		if i < len(elems) {
			return elems[i]
		}

		return sexp.Nil{}
	}

	w.target(slot(0))
	planDefaults(w, slot(1), false)
	w.paramSlot(slot(2))
	w.target(slot(3))
	planDefaults(w, slot(4), true)
	w.paramSlot(slot(5))
	w.paramSlot(slot(6))

	for _, extra := range elems[min(len(elems), 7):] {
		w.expr(extra)
	}
}

// planDefaults walks a list of [name, default] pairs. Keyword names are
// labels ("d:") and are reported without the colon; a false default marks a
// required keyword.
func planDefaults(w *walker, list sexp.Sexp, keyword bool) {
	if sexp.IsAbsent(list) {
		return
	}

	pairs, ok := list.(sexp.List)
	if !ok {
		w.expr(list)

		return
	}

	for _, pair := range pairs {
		elems, ok := pair.(sexp.List)
		if !ok || len(elems) != 2 {
			w.expr(pair)

			continue
		}

		name, def := elems[0], elems[1]

		if tok, ok := name.(sexp.Token); ok && keyword {
			occ := occurrenceOf(tok)
			occ.Name = strings.TrimSuffix(occ.Name, ":")
			w.emitOccurrence(occ)
		} else {
			w.target(name)
		}

		w.expr(def)
	}
}

func (w *walker) callee(v sexp.Sexp) {
	if w.ext.followCallee {
		w.expr(v)
	}
}
