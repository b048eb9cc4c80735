package lvar_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

func occ(name string, line, col int) lvar.Occurrence {
	return lvar.Occurrence{Name: name, Line: line, Column: col}
}

func extract(t *testing.T, src string, opts ...lvar.Option) ([]lvar.Occurrence, []string) {
	t.Helper()

	tree, err := sexp.ReadString(src)
	require.NoError(t, err)

	var warnings lvar.Collector

	ext := lvar.New(append([]lvar.Option{lvar.WithWarner(&warnings)}, opts...)...)

	return ext.Extract(tree), warnings.Messages()
}

// Fixtures are Ripper.sexp output for the Ruby source in the name.
func TestExtract_Constructs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tree string
		want []lvar.Occurrence
	}{
		{
			name: "x = 1; puts x",
			tree: `[:program,
  [[:assign, [:var_field, [:@ident, "x", [1, 0]]], [:@int, "1", [1, 4]]],
   [:command, [:@ident, "puts", [1, 7]],
    [:args_add_block, [[:var_ref, [:@ident, "x", [1, 12]]]], false]]]]`,
			want: []lvar.Occurrence{occ("x", 1, 0), occ("x", 1, 12)},
		},
		{
			name: "c = 1; a, b = f(c)",
			tree: `[:program,
  [[:assign, [:var_field, [:@ident, "c", [1, 0]]], [:@int, "1", [1, 4]]],
   [:massign,
    [[:var_field, [:@ident, "a", [1, 7]]], [:var_field, [:@ident, "b", [1, 10]]]],
    [:method_add_arg, [:fcall, [:@ident, "f", [1, 14]]],
     [:arg_paren, [:args_add_block, [[:var_ref, [:@ident, "c", [1, 16]]]], false]]]]]]`,
			want: []lvar.Occurrence{occ("c", 1, 0), occ("a", 1, 7), occ("b", 1, 10), occ("c", 1, 16)},
		},
		{
			name: "a, (b, *c), h[k], o.f, * = rhs",
			tree: `[:massign,
  [[:var_field, [:@ident, "a", [1, 0]]],
   [:mlhs, [:var_field, [:@ident, "b", [1, 4]]], [:rest_param, [:var_field, [:@ident, "c", [1, 8]]]]],
   [:aref_field, [:var_ref, [:@ident, "h", [1, 12]]],
    [:args_add_block, [[:var_ref, [:@ident, "k", [1, 14]]]], false]],
   [:field, [:var_ref, [:@ident, "o", [1, 18]]], [:@period, ".", [1, 19]], [:@ident, "f", [1, 20]]],
   [:rest_param, nil]],
  [:var_ref, [:@ident, "rhs", [1, 27]]]]`,
			want: []lvar.Occurrence{
				occ("a", 1, 0), occ("b", 1, 4), occ("c", 1, 8),
				occ("h", 1, 12), occ("k", 1, 14), occ("o", 1, 18), occ("rhs", 1, 27),
			},
		},
		{
			name: "legacy massign with bare idents and mlhs_paren",
			tree: `[:massign,
  [[:@ident, "a", [1, 0]], [:mlhs_paren, [[:@ident, "b", [1, 4]], [nil]]]],
  [:@int, "1", [1, 12]]]`,
			want: []lvar.Occurrence{occ("a", 1, 0), occ("b", 1, 4)},
		},
		{
			name: "x += y",
			tree: `[:opassign, [:var_field, [:@ident, "x", [1, 0]]], [:@op, "+=", [1, 2]],
  [:var_ref, [:@ident, "y", [1, 5]]]]`,
			want: []lvar.Occurrence{occ("x", 1, 0), occ("y", 1, 5)},
		},
		{
			name: "begin; x; rescue => e; handle(e); end",
			tree: `[:begin,
  [:bodystmt, [[:var_ref, [:@ident, "x", [1, 7]]]],
   [:rescue, nil, [:var_field, [:@ident, "e", [1, 20]]],
    [[:method_add_arg, [:fcall, [:@ident, "handle", [1, 23]]],
      [:arg_paren, [:args_add_block, [[:var_ref, [:@ident, "e", [1, 30]]]], false]]]],
    nil],
   nil, nil]]`,
			want: []lvar.Occurrence{occ("x", 1, 7), occ("e", 1, 20), occ("e", 1, 30)},
		},
		{
			name: "rescue Err => e with chained rescue",
			tree: `[:rescue, [[:var_ref, [:@const, "Err", [2, 7]]]], [:var_field, [:@ident, "e", [2, 14]]],
  [[:var_ref, [:@ident, "e", [3, 2]]]],
  [:rescue, nil, [:var_field, [:@ident, "f", [4, 10]]], [[:void_stmt]], nil]]`,
			want: []lvar.Occurrence{occ("e", 2, 14), occ("e", 3, 2), occ("f", 4, 10)},
		},
		{
			name: "def m(a, b = a, *c, d:, &blk); end",
			tree: `[:def, [:@ident, "m", [1, 4]],
  [:paren, [:params,
    [[:@ident, "a", [1, 6]]],
    [[[:@ident, "b", [1, 9]], [:var_ref, [:@ident, "a", [1, 13]]]]],
    [:rest_param, [:@ident, "c", [1, 17]]],
    nil,
    [[[:@label, "d:", [1, 20]], false]],
    nil,
    [:blockarg, [:@ident, "blk", [1, 25]]]]],
  [:bodystmt, [[:void_stmt]], nil, nil, nil]]`,
			want: []lvar.Occurrence{
				occ("a", 1, 6), occ("b", 1, 9), occ("a", 1, 13),
				occ("c", 1, 17), occ("d", 1, 20), occ("blk", 1, 25),
			},
		},
		{
			name: "def m(*, x, k: 1, **opts); x; end",
			tree: `[:def, [:@ident, "m", [1, 4]],
  [:paren, [:params, nil, nil,
    [:rest_param, nil],
    [[:@ident, "x", [1, 9]]],
    [[[:@label, "k:", [1, 12]], [:@int, "1", [1, 15]]]],
    [:kwrest_param, [:@ident, "opts", [1, 20]]],
    nil]],
  [:bodystmt, [[:var_ref, [:@ident, "x", [1, 27]]]], nil, nil, nil]]`,
			want: []lvar.Occurrence{occ("x", 1, 9), occ("k", 1, 12), occ("opts", 1, 20), occ("x", 1, 27)},
		},
		{
			name: "def m(...) with anonymous slots",
			tree: `[:def, [:@ident, "m", [1, 4]],
  [:paren, [:params, nil, nil, 0, nil, nil, [:args_forward], [:blockarg, nil]]],
  [:bodystmt, [[:void_stmt]], nil, nil, nil]]`,
			want: []lvar.Occurrence{},
		},
		{
			name: "def self.m(v) = v",
			tree: `[:defs, [:var_ref, [:@kw, "self", [1, 4]]], [:@period, ".", [1, 8]], [:@ident, "m", [1, 9]],
  [:paren, [:params, [[:@ident, "v", [1, 11]]], nil, nil, nil, nil, nil, nil]],
  [:bodystmt, [[:var_ref, [:@ident, "v", [1, 16]]]], nil, nil, nil]]`,
			want: []lvar.Occurrence{occ("v", 1, 11), occ("v", 1, 16)},
		},
		{
			name: "for i in list do puts i end",
			tree: `[:for, [:var_field, [:@ident, "i", [1, 4]]], [:var_ref, [:@ident, "list", [1, 9]]],
  [[:command, [:@ident, "puts", [1, 17]], [:args_add_block, [[:var_ref, [:@ident, "i", [1, 22]]]], false]]]]`,
			want: []lvar.Occurrence{occ("i", 1, 4), occ("list", 1, 9), occ("i", 1, 22)},
		},
		{
			name: "for k, v in h; end",
			tree: `[:for, [:mlhs, [:var_field, [:@ident, "k", [1, 4]]], [:var_field, [:@ident, "v", [1, 7]]]],
  [:vcall, [:@ident, "h", [1, 12]]], [[:void_stmt]]]`,
			want: []lvar.Occurrence{occ("k", 1, 4), occ("v", 1, 7)},
		},
		{
			name: "list.each { |v; tmp| v }",
			tree: `[:method_add_block,
  [:call, [:var_ref, [:@ident, "list", [1, 0]]], [:@period, ".", [1, 4]], [:@ident, "each", [1, 5]]],
  [:brace_block,
   [:block_var, [:params, [[:@ident, "v", [1, 13]]], nil, nil, nil, nil, nil, nil], [[:@ident, "tmp", [1, 16]]]],
   [[:var_ref, [:@ident, "v", [1, 21]]]]]]`,
			want: []lvar.Occurrence{occ("list", 1, 0), occ("v", 1, 13), occ("tmp", 1, 16), occ("v", 1, 21)},
		},
		{
			name: "pairs.each do |(k, v)| k end",
			tree: `[:method_add_block,
  [:call, [:vcall, [:@ident, "pairs", [1, 0]]], [:@period, ".", [1, 5]], [:@ident, "each", [1, 6]]],
  [:do_block,
   [:block_var,
    [:params, [[:mlhs, [:@ident, "k", [1, 16]], [:@ident, "v", [1, 19]]]], nil, nil, nil, nil, nil, nil],
    false],
   [:bodystmt, [[:var_ref, [:@ident, "k", [1, 23]]]], nil, nil, nil]]]`,
			want: []lvar.Occurrence{occ("k", 1, 16), occ("v", 1, 19), occ("k", 1, 23)},
		},
		{
			name: "loop { x }",
			tree: `[:method_add_block, [:method_add_arg, [:fcall, [:@ident, "loop", [1, 0]]], []],
  [:brace_block, nil, [[:var_ref, [:@ident, "x", [1, 7]]]]]]`,
			want: []lvar.Occurrence{occ("x", 1, 7)},
		},
		{
			name: `"hi #{x}"`,
			tree: `[:string_literal, [:string_content,
  [:@tstring_content, "hi ", [1, 1]],
  [:string_embexpr, [[:var_ref, [:@ident, "x", [1, 6]]]]]]]`,
			want: []lvar.Occurrence{occ("x", 1, 6)},
		},
		{
			name: "module M; class C < B; y = 1; end; end",
			tree: `[:module, [:const_ref, [:@const, "M", [1, 7]]],
  [:bodystmt, [[:void_stmt],
   [:class, [:const_ref, [:@const, "C", [1, 16]]], [:var_ref, [:@const, "B", [1, 20]]],
    [:bodystmt, [[:void_stmt], [:assign, [:var_field, [:@ident, "y", [1, 23]]], [:@int, "1", [1, 27]]]],
     nil, nil, nil]]], nil, nil, nil]]`,
			want: []lvar.Occurrence{occ("y", 1, 23)},
		},
		{
			name: "a + -b",
			tree: `[:binary, [:var_ref, [:@ident, "a", [1, 0]]], :+, [:unary, :-@, [:var_ref, [:@ident, "b", [1, 5]]]]]`,
			want: []lvar.Occurrence{occ("a", 1, 0), occ("b", 1, 5)},
		},
		{
			name: "obj.call x, &blk",
			tree: `[:command_call, [:var_ref, [:@ident, "obj", [1, 0]]], [:@period, ".", [1, 3]], [:@ident, "call", [1, 4]],
  [:args_add_block, [[:var_ref, [:@ident, "x", [1, 9]]]], [:var_ref, [:@ident, "blk", [1, 13]]]]]`,
			want: []lvar.Occurrence{occ("x", 1, 9), occ("blk", 1, 13)},
		},
		{
			name: "if x then y end",
			tree: `[:if, [:var_ref, [:@ident, "x", [1, 3]]], [[:var_ref, [:@ident, "y", [1, 10]]]], nil]`,
			want: []lvar.Occurrence{occ("x", 1, 3), occ("y", 1, 10)},
		},
		{
			name: "@ivar = self",
			tree: `[:assign, [:var_field, [:@ivar, "@ivar", [1, 0]]], [:var_ref, [:@kw, "self", [1, 8]]]]`,
			want: []lvar.Occurrence{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, warnings := extract(t, tt.tree)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, warnings)
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	tree := sexp.MustReadString(`[:program,
  [[:massign, [[:var_field, [:@ident, "a", [1, 0]]], [:var_field, [:@ident, "b", [1, 3]]]],
    [:mrhs_new_from_args, [[:@int, "1", [1, 7]]], [:@int, "2", [1, 10]]]],
   [:binary, [:var_ref, [:@ident, "a", [2, 0]]], :*, [:var_ref, [:@ident, "b", [2, 4]]]]]]`)

	first := lvar.Extract(tree)
	second := lvar.Extract(tree)

	require.Len(t, first, 4)
	assert.Equal(t, first, second)
}

func TestExtract_Warnings(t *testing.T) {
	t.Parallel()

	got, warnings := extract(t, `[:program, [[:weird, "text", 42, [:var_ref, [:@ident, "x", [1, 0]]]]]]`)

	assert.Equal(t, []lvar.Occurrence{occ("x", 1, 0)}, got)
	assert.Equal(t, []string{
		`unsupported AST data: "text"`,
		"unsupported AST data: 42",
	}, warnings)
}

func TestExtract_WarningsInTargets(t *testing.T) {
	t.Parallel()

	got, warnings := extract(t, `[:massign, [[:var_field, [:@ident, "a", [1, 0]]], :bogus], [:@int, "1", [1, 8]]]`)

	assert.Equal(t, []lvar.Occurrence{occ("a", 1, 0)}, got)
	assert.Equal(t, []string{"unsupported AST data: :bogus"}, warnings)
}

func TestExtract_NilWarnerDiscards(t *testing.T) {
	t.Parallel()

	ext := lvar.New(lvar.WithWarner(nil))

	assert.NotPanics(t, func() { ext.Extract(sexp.List{sexp.String("oops")}) })
}

func TestExtract_CalleeRecursion(t *testing.T) {
	t.Parallel()

	tree := `[:method_add_arg,
  [:call, [:var_ref, [:@ident, "x", [1, 0]]], [:@period, ".", [1, 1]], [:@ident, "foo", [1, 2]]],
  [:arg_paren, [:args_add_block, [[:var_ref, [:@ident, "y", [1, 6]]]], false]]]`

	got, _ := extract(t, tree)
	assert.Equal(t, []lvar.Occurrence{occ("y", 1, 6)}, got, "receiver is not walked by default")

	assert.Equal(t, []lvar.Occurrence{occ("y", 1, 6)}, lvar.Extract(sexp.MustReadString(tree)))

	got, _ = extract(t, tree, lvar.WithCalleeRecursion(true))
	assert.Equal(t, []lvar.Occurrence{occ("x", 1, 0), occ("y", 1, 6)}, got)
}

func TestExtract_DeepTree(t *testing.T) {
	t.Parallel()

	const depth = 200_000

	var tree sexp.Sexp = sexp.NewNode("var_ref", sexp.Token{Type: "@ident", Text: "deep", Pos: sexp.Pos{Line: 1, Column: depth}})

	for range depth {
		tree = sexp.NewNode("paren", tree)
	}

	got := lvar.Extract(tree)
	assert.Equal(t, []lvar.Occurrence{occ("deep", 1, depth)}, got)
}

func TestExtract_EmptyResultIsNotNil(t *testing.T) {
	t.Parallel()

	got := lvar.Extract(sexp.MustReadString(`[:program, [[:void_stmt]]]`))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExtract_ConcurrentUse(t *testing.T) {
	t.Parallel()

	tree := sexp.MustReadString(`[:program, [[:assign, [:var_field, [:@ident, "x", [1, 0]]], [:@int, "1", [1, 4]]]]]`)
	ext := lvar.New()

	done := make(chan []lvar.Occurrence)

	for range 8 {
		go func() { done <- ext.Extract(tree) }()
	}

	for range 8 {
		assert.Equal(t, []lvar.Occurrence{occ("x", 1, 0)}, <-done)
	}
}

func TestSlogWarner(t *testing.T) {
	t.Parallel()

	var buf strings.Builder

	warner := lvar.SlogWarner{Logger: newTextLogger(&buf)}
	ext := lvar.New(lvar.WithWarner(warner))
	ext.Extract(sexp.List{sexp.Int(7)})

	assert.Contains(t, buf.String(), "unsupported AST data: 7")
	assert.Contains(t, buf.String(), "level=WARN")
}
