// Package sexp models Ripper-style syntax trees as a closed set of variants:
// tagged nodes, plain sequences, terminal tokens, and scalar atoms.
//
// The variant of every array is decided once, at construction time (see
// [Array]), so consumers never have to probe whether an array is "headed by
// a symbol" while walking the tree.
package sexp

import "strconv"

// Kind identifies a Sexp variant.
type Kind uint8

// Sexp variant kinds.
const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindString
	KindSymbol
	KindToken
	KindNode
	KindList
)

var kindNames = [...]string{
	KindNil:    "nil",
	KindBool:   "bool",
	KindInt:    "int",
	KindString: "string",
	KindSymbol: "symbol",
	KindToken:  "token",
	KindNode:   "node",
	KindList:   "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Sexp is one syntax-tree value. The concrete types are [Nil], [Bool], [Int],
// [String], [Symbol], [Token], [*Node] and [List].
type Sexp interface {
	Kind() Kind
	// String renders the value the way Ruby's Array#inspect prints Ripper output.
	String() string
}

var (
	_ Sexp = Nil{}
	_ Sexp = Bool(false)
	_ Sexp = Int(0)
	_ Sexp = String("")
	_ Sexp = Symbol("")
	_ Sexp = Token{}
	_ Sexp = (*Node)(nil)
	_ Sexp = List(nil)
)

// Nil marks an absent optional slot.
type Nil struct{}

// Kind implements Sexp.
func (Nil) Kind() Kind { return KindNil }

// Bool is a literal true or false.
type Bool bool

// Kind implements Sexp.
func (Bool) Kind() Kind { return KindBool }

// Int is an integer literal; positions are built from Ints.
type Int int64

// Kind implements Sexp.
func (Int) Kind() Kind { return KindInt }

// String is a string literal.
type String string

// Kind implements Sexp.
func (String) Kind() Kind { return KindString }

// Symbol is an atom. Node tags and operator names are symbols.
type Symbol string

// Kind implements Sexp.
func (Symbol) Kind() Kind { return KindSymbol }

// Pos is a source position: Line is 1-based, Column is 0-based.
type Pos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Token is a terminal leaf produced by the scanner, such as
// [:@ident, "x", [1, 0]].
type Token struct {
	Type string // scanner event, including the leading "@", e.g. "@ident".
	Text string
	Pos  Pos
}

// Kind implements Sexp.
func (Token) Kind() Kind { return KindToken }

// Elements returns the array view of the token: [type, text, [line, column]].
func (t Token) Elements() []Sexp {
	return []Sexp{Symbol(t.Type), String(t.Text), List{Int(t.Pos.Line), Int(t.Pos.Column)}}
}

// Node is a tagged tuple: a tag symbol followed by its children.
type Node struct {
	elems []Sexp // elems[0] is always the tag Symbol.
}

// NewNode builds a tagged node.
func NewNode(tag string, children ...Sexp) *Node {
	elems := make([]Sexp, 0, len(children)+1)
	elems = append(elems, Symbol(tag))

	for _, child := range children {
		elems = append(elems, orNil(child))
	}

	return &Node{elems: elems}
}

// Kind implements Sexp.
func (*Node) Kind() Kind { return KindNode }

// Tag returns the construct name without the leading colon.
func (n *Node) Tag() string {
	return string(n.elems[0].(Symbol)) //nolint:forcetypeassert // invariant of NewNode.
}

// Children returns the slots after the tag. The slice must not be modified.
func (n *Node) Children() []Sexp {
	return n.elems[1:]
}

// Child returns the i-th child, or Nil when the slot does not exist.
func (n *Node) Child(i int) Sexp {
	if i < 0 || i+1 >= len(n.elems) {
		return Nil{}
	}

	return n.elems[i+1]
}

// Elements returns the full array view including the tag.
func (n *Node) Elements() []Sexp {
	return n.elems
}

// List is a plain sequence without a tag, such as a statement list.
type List []Sexp

// Kind implements Sexp.
func (List) Kind() Kind { return KindList }

// Array classifies a freshly read array into its variant: a [Token] when it has
// the [:@type, "text", [line, col]] shape, a [*Node] when its head is a symbol,
// and a [List] otherwise.
func Array(elems ...Sexp) Sexp {
	if len(elems) == 0 {
		return List{}
	}

	head, isSym := elems[0].(Symbol)
	if !isSym {
		items := make(List, len(elems))
		for i, elem := range elems {
			items[i] = orNil(elem)
		}

		return items
	}

	if tok, ok := asToken(head, elems); ok {
		return tok
	}

	return NewNode(string(head), elems[1:]...)
}

func asToken(head Symbol, elems []Sexp) (Token, bool) {
	if len(elems) != 3 || len(head) < 2 || head[0] != '@' {
		return Token{}, false
	}

	text, ok := elems[1].(String)
	if !ok {
		return Token{}, false
	}

	pos, ok := elems[2].(List)
	if !ok || len(pos) != 2 {
		return Token{}, false
	}

	line, lineOK := pos[0].(Int)
	col, colOK := pos[1].(Int)

	if !lineOK || !colOK {
		return Token{}, false
	}

	return Token{Type: string(head), Text: string(text), Pos: Pos{Line: int(line), Column: int(col)}}, true
}

// Elements returns the array view of v: the tag and children of a node, the
// items of a list, or the three slots of a token. ok is false for atoms.
func Elements(v Sexp) (elems []Sexp, ok bool) {
	switch val := v.(type) {
	case *Node:
		return val.elems, true
	case List:
		return val, true
	case Token:
		return val.Elements(), true
	default:
		return nil, false
	}
}

// IsAbsent reports whether v fills an optional slot with nothing (nil or false).
func IsAbsent(v Sexp) bool {
	switch val := v.(type) {
	case nil, Nil:
		return true
	case Bool:
		return !bool(val)
	default:
		return false
	}
}

// Equal reports structural equality. Values of different kinds are never equal.
func Equal(a, b Sexp) bool {
	a, b = orNil(a), orNil(b)

	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case Nil:
		return true
	case Token:
		return av == b.(Token) //nolint:forcetypeassert // kinds are equal.
	case *Node, List:
		ae, _ := Elements(av)
		be, _ := Elements(b)

		return equalSlices(ae, be)
	default:
		return a == b
	}
}

func equalSlices(a, b []Sexp) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

func orNil(v Sexp) Sexp {
	if v == nil {
		return Nil{}
	}

	return v
}
