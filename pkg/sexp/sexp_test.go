package sexp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

func TestArray_ClassifiesVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		elems []sexp.Sexp
		want  sexp.Kind
	}{
		{"empty", nil, sexp.KindList},
		{"statements", []sexp.Sexp{sexp.NewNode("void_stmt")}, sexp.KindList},
		{"tagged", []sexp.Sexp{sexp.Symbol("var_ref"), sexp.Nil{}}, sexp.KindNode},
		{
			"token",
			[]sexp.Sexp{sexp.Symbol("@ident"), sexp.String("x"), sexp.List{sexp.Int(1), sexp.Int(0)}},
			sexp.KindToken,
		},
		{
			"token shape without at sign",
			[]sexp.Sexp{sexp.Symbol("ident"), sexp.String("x"), sexp.List{sexp.Int(1), sexp.Int(0)}},
			sexp.KindNode,
		},
		{
			"at tag with bad position",
			[]sexp.Sexp{sexp.Symbol("@ident"), sexp.String("x"), sexp.List{sexp.Int(1)}},
			sexp.KindNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, sexp.Array(tt.elems...).Kind())
		})
	}
}

func TestNode_Accessors(t *testing.T) {
	t.Parallel()

	node := sexp.NewNode("assign", sexp.Symbol("lhs"), nil)

	assert.Equal(t, "assign", node.Tag())
	assert.Len(t, node.Children(), 2)
	assert.Equal(t, sexp.Symbol("lhs"), node.Child(0))
	assert.Equal(t, sexp.Nil{}, node.Child(1), "nil children are normalized")
	assert.Equal(t, sexp.Nil{}, node.Child(7), "missing slots read as nil")
	assert.Equal(t, sexp.Nil{}, node.Child(-1))
}

func TestElements(t *testing.T) {
	t.Parallel()

	tok := sexp.Token{Type: "@ident", Text: "x", Pos: sexp.Pos{Line: 2, Column: 4}}

	elems, ok := sexp.Elements(tok)
	require.True(t, ok)
	assert.Equal(t, []sexp.Sexp{sexp.Symbol("@ident"), sexp.String("x"), sexp.List{sexp.Int(2), sexp.Int(4)}}, elems)

	elems, ok = sexp.Elements(sexp.NewNode("vcall", tok))
	require.True(t, ok)
	assert.Len(t, elems, 2)

	_, ok = sexp.Elements(sexp.Symbol("x"))
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a := sexp.MustReadString(`[:assign, [:var_field, [:@ident, "x", [1, 0]]], [:@int, "1", [1, 4]]]`)
	b := sexp.MustReadString(`[:assign, [:var_field, [:@ident, "x", [1, 0]]], [:@int, "1", [1, 4]]]`)
	c := sexp.MustReadString(`[:assign, [:var_field, [:@ident, "y", [1, 0]]], [:@int, "1", [1, 4]]]`)

	assert.True(t, sexp.Equal(a, b))
	assert.False(t, sexp.Equal(a, c))
	assert.True(t, sexp.Equal(nil, sexp.Nil{}))
	assert.False(t, sexp.Equal(sexp.Symbol("x"), sexp.String("x")))
	assert.False(t, sexp.Equal(sexp.List{sexp.Symbol("a")}, sexp.List{sexp.Symbol("a"), sexp.Nil{}}))
	assert.True(t, sexp.Equal(sexp.List{}, sexp.List(nil)))
}

func TestIsAbsent(t *testing.T) {
	t.Parallel()

	assert.True(t, sexp.IsAbsent(nil))
	assert.True(t, sexp.IsAbsent(sexp.Nil{}))
	assert.True(t, sexp.IsAbsent(sexp.Bool(false)))
	assert.False(t, sexp.IsAbsent(sexp.Bool(true)))
	assert.False(t, sexp.IsAbsent(sexp.Int(0)))
	assert.False(t, sexp.IsAbsent(sexp.List{}))
}

func TestString_RoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`[:program, [[:assign, [:var_field, [:@ident, "x", [1, 0]]], [:@int, "1", [1, 4]]]]]`,
		`[:binary, [:var_ref, [:@ident, "a", [1, 0]]], :+, [:@int, "2", [1, 4]]]`,
		`[:call, [:vcall, [:@ident, "a", [1, 0]]], :".", [:@ident, "b", [1, 2]]]`,
		`[:args_add_block, [], false]`,
		`[:@tstring_content, "a \"b\"\n", [1, 1]]`,
		`[:aref, [:vcall, [:@ident, "h", [1, 0]]], :[]]`,
		`[:unary, :-@, [:@int, "-1", [1, 1]]]`,
	}

	for _, in := range inputs {
		val, err := sexp.ReadString(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, val.String())
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "token", sexp.KindToken.String())
	assert.Equal(t, "kind(42)", sexp.Kind(42).String())
}
