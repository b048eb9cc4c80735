package rubyts

import (
	"regexp"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rubyhl/pkg/safeconv"
	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

// leafTypes maps tree-sitter leaf node types to Ripper scanner event names.
var leafTypes = map[string]string{
	"identifier":        "@ident",
	"constant":          "@const",
	"instance_variable": "@ivar",
	"class_variable":    "@cvar",
	"global_variable":   "@gvar",
	"self":              "@kw",
	"nil":               "@kw",
	"true":              "@kw",
	"false":             "@kw",
	"integer":           "@int",
	"float":             "@float",
	"rational":          "@rational",
	"complex":           "@imaginary",
	"character":         "@CHAR",
	"string_content":    "@tstring_content",
	"escape_sequence":   "@tstring_content",
	"hash_key_symbol":   "@label",
	"simple_symbol":     "@symbol",
	"operator":          "@op",
}

// lowerer converts one tree-sitter tree. It tracks declared locals so that a
// bare identifier becomes var_ref when it names a local and vcall otherwise,
// the way Ruby's own parser decides.
type lowerer struct {
	scope *scope
	src   []byte
}

func newLowerer(src []byte) *lowerer {
	return &lowerer{src: src, scope: newScope(nil, false)}
}

func (l *lowerer) node(n sitter.Node) sexp.Sexp {
	switch n.Type() {
	case "program":
		return sexp.NewNode("program", l.statements(l.namedChildren(n)))
	case "identifier":
		return l.reference(n)
	case "constant", "instance_variable", "class_variable", "global_variable", "self", "nil", "true", "false":
		return sexp.NewNode("var_ref", l.leaf(n))
	case "assignment":
		return l.assignment(n)
	case "operator_assignment":
		return l.opAssignment(n)
	case "method":
		return l.method(n)
	case "singleton_method":
		return l.singletonMethod(n)
	case "class":
		return l.class(n)
	case "module":
		return l.module(n)
	case "singleton_class":
		return l.singletonClass(n)
	case "for":
		return l.forLoop(n)
	case "call":
		return l.call(n)
	case "block", "do_block":
		return l.block(n)
	case "lambda":
		return l.lambda(n)
	case "string":
		return l.stringLiteral(n)
	case "interpolation":
		return sexp.NewNode("string_embexpr", l.statements(l.namedChildren(n)))
	case "begin":
		return sexp.NewNode("begin", l.bodystmt(l.namedChildren(n)))
	case "body_statement":
		return l.bodystmt(l.namedChildren(n))
	case "parenthesized_statements":
		return sexp.NewNode("paren", l.statements(l.namedChildren(n)))
	case "binary":
		return l.binary(n)
	case "unary":
		return l.unary(n)
	case "element_reference":
		return l.elementReference("aref", n)
	case "simple_symbol":
		return sexp.NewNode("symbol_literal", sexp.NewNode("symbol", l.leaf(n)))
	case "in_clause":
		return l.inClause(n)
	}

	return l.generic(n)
}

// generic lowers an unmapped node to [:type, children...], or to a token
// when it has no named children.
func (l *lowerer) generic(n sitter.Node) sexp.Sexp {
	children := l.namedChildren(n)
	if len(children) == 0 {
		return l.leaf(n)
	}

	lowered := make([]sexp.Sexp, 0, len(children))
	for _, child := range children {
		lowered = append(lowered, l.node(child))
	}

	return sexp.NewNode(n.Type(), lowered...)
}

func (l *lowerer) optional(n sitter.Node) sexp.Sexp {
	if n.IsNull() {
		return sexp.Nil{}
	}

	return l.node(n)
}

func (l *lowerer) statements(nodes []sitter.Node) sexp.List {
	stmts := make(sexp.List, 0, len(nodes))
	for _, n := range nodes {
		stmts = append(stmts, l.node(n))
	}

	return stmts
}

func (l *lowerer) namedChildren(n sitter.Node) []sitter.Node {
	count := n.NamedChildCount()
	out := make([]sitter.Node, 0, count)

	for idx := range count {
		child := n.NamedChild(idx)
		if child.Type() == "comment" {
			continue
		}

		out = append(out, child)
	}

	return out
}

// namedChildrenExcept drops the given field nodes from n's named children.
func (l *lowerer) namedChildrenExcept(n sitter.Node, skip ...sitter.Node) []sitter.Node {
	children := l.namedChildren(n)
	out := children[:0]

	for _, child := range children {
		if !containsNode(skip, child) {
			out = append(out, child)
		}
	}

	return out
}

func containsNode(nodes []sitter.Node, n sitter.Node) bool {
	for _, candidate := range nodes {
		if candidate.IsNull() {
			continue
		}

		if candidate.StartByte() == n.StartByte() && candidate.EndByte() == n.EndByte() && candidate.Type() == n.Type() {
			return true
		}
	}

	return false
}

func (l *lowerer) text(n sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if start > end || safeconv.MustUintToInt(end) > len(l.src) {
		return ""
	}

	return string(l.src[start:end])
}

// pos converts tree-sitter's 0-based row and byte column to a Ripper position.
func (l *lowerer) pos(n sitter.Node) sexp.Pos {
	point := n.StartPoint()

	return sexp.Pos{Line: int(point.Row) + 1, Column: int(point.Column)}
}

func (l *lowerer) token(typ string, n sitter.Node) sexp.Token {
	return sexp.Token{Type: typ, Text: l.text(n), Pos: l.pos(n)}
}

func (l *lowerer) leaf(n sitter.Node) sexp.Token {
	typ, ok := leafTypes[n.Type()]
	if !ok {
		typ = "@" + n.Type()
	}

	return l.token(typ, n)
}

func (l *lowerer) optionalLeaf(n sitter.Node) sexp.Sexp {
	if n.IsNull() {
		return sexp.Nil{}
	}

	return l.leaf(n)
}

// bind declares the identifier n in the current scope and returns its token.
func (l *lowerer) bind(n sitter.Node) sexp.Token {
	tok := l.token("@ident", n)
	l.scope.declare(tok.Text)

	return tok
}

func (l *lowerer) optionalBind(n sitter.Node) sexp.Sexp {
	if n.IsNull() {
		return sexp.Nil{}
	}

	return l.bind(n)
}

func (l *lowerer) reference(n sitter.Node) sexp.Sexp {
	tok := l.token("@ident", n)
	if l.scope.declared(tok.Text) || l.scope.numbered(tok.Text) {
		return sexp.NewNode("var_ref", tok)
	}

	return sexp.NewNode("vcall", tok)
}

// push opens a scope and returns the function that closes it.
func (l *lowerer) push(soft bool) func() {
	saved := l.scope
	l.scope = newScope(saved, soft)

	return func() { l.scope = saved }
}

// Assignments.

func (l *lowerer) assignment(n sitter.Node) sexp.Sexp {
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")

	if left.Type() == "left_assignment_list" {
		lhs := l.mlhs(left)

		return sexp.NewNode("massign", lhs, l.optional(right))
	}

	lhs := l.field(left)

	return sexp.NewNode("assign", lhs, l.optional(right))
}

func (l *lowerer) opAssignment(n sitter.Node) sexp.Sexp {
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")

	op := sexp.Token{Type: "@op", Pos: l.pos(n)}
	if opNode := n.ChildByFieldName("operator"); !opNode.IsNull() {
		op = l.token("@op", opNode)
	}

	lhs := l.field(left)

	return sexp.NewNode("opassign", lhs, op, l.optional(right))
}

// field lowers an assignment target.
func (l *lowerer) field(n sitter.Node) sexp.Sexp {
	if n.IsNull() {
		return sexp.Nil{}
	}

	switch n.Type() {
	case "identifier":
		return sexp.NewNode("var_field", l.bind(n))
	case "constant", "instance_variable", "class_variable", "global_variable":
		return sexp.NewNode("var_field", l.leaf(n))
	case "call":
		recv := l.optional(n.ChildByFieldName("receiver"))

		return sexp.NewNode("field", recv, l.callOperator(n), l.optionalLeaf(n.ChildByFieldName("method")))
	case "element_reference":
		return l.elementReference("aref_field", n)
	case "left_assignment_list":
		return l.mlhs(n)
	case "destructured_left_assignment":
		return sexp.NewNode("mlhs_paren", l.mlhs(n))
	case "rest_assignment":
		inner := l.namedChildren(n)
		if len(inner) == 0 {
			return sexp.NewNode("rest_param", sexp.Nil{})
		}

		return sexp.NewNode("rest_param", l.field(inner[0]))
	}

	return l.node(n)
}

func (l *lowerer) mlhs(n sitter.Node) sexp.Sexp {
	children := l.namedChildren(n)
	items := make([]sexp.Sexp, 0, len(children))

	for _, child := range children {
		items = append(items, l.field(child))
	}

	return sexp.NewNode("mlhs", items...)
}

func (l *lowerer) elementReference(tag string, n sitter.Node) sexp.Sexp {
	object := n.ChildByFieldName("object")
	recv := l.optional(object)
	args := l.statements(l.namedChildrenExcept(n, object))

	return sexp.NewNode(tag, recv, sexp.NewNode("args_add_block", args, sexp.Bool(false)))
}

// Definitions.

func (l *lowerer) method(n sitter.Node) sexp.Sexp {
	name, paramsNode := n.ChildByFieldName("name"), n.ChildByFieldName("parameters")
	nameTok := l.optionalLeaf(name)

	restore := l.push(false)
	defer restore()

	params := l.params(paramsNode)

	return sexp.NewNode("def", nameTok, params, l.bodystmt(l.bodyNodes(n, name, paramsNode)))
}

func (l *lowerer) singletonMethod(n sitter.Node) sexp.Sexp {
	object := n.ChildByFieldName("object")
	name, paramsNode := n.ChildByFieldName("name"), n.ChildByFieldName("parameters")
	recv := l.optional(object)
	period := l.punctuation(n, "@period", ".", "::")
	nameTok := l.optionalLeaf(name)

	restore := l.push(false)
	defer restore()

	params := l.params(paramsNode)
	body := l.bodystmt(l.bodyNodes(n, object, name, paramsNode))

	return sexp.NewNode("defs", recv, period, nameTok, params, body)
}

func (l *lowerer) class(n sitter.Node) sexp.Sexp {
	name, super := n.ChildByFieldName("name"), n.ChildByFieldName("superclass")
	ref := l.constRef(name)

	var superclass sexp.Sexp = sexp.Nil{}

	if !super.IsNull() {
		if inner := l.namedChildren(super); len(inner) > 0 {
			superclass = l.node(inner[0])
		}
	}

	restore := l.push(false)
	defer restore()

	return sexp.NewNode("class", ref, superclass, l.bodystmt(l.bodyNodes(n, name, super)))
}

func (l *lowerer) module(n sitter.Node) sexp.Sexp {
	name := n.ChildByFieldName("name")
	ref := l.constRef(name)

	restore := l.push(false)
	defer restore()

	return sexp.NewNode("module", ref, l.bodystmt(l.bodyNodes(n, name)))
}

func (l *lowerer) singletonClass(n sitter.Node) sexp.Sexp {
	value := n.ChildByFieldName("value")
	target := l.optional(value)

	restore := l.push(false)
	defer restore()

	return sexp.NewNode("sclass", target, l.bodystmt(l.bodyNodes(n, value)))
}

func (l *lowerer) constRef(n sitter.Node) sexp.Sexp {
	if !n.IsNull() && n.Type() == "constant" {
		return sexp.NewNode("const_ref", l.leaf(n))
	}

	return l.optional(n)
}

// bodyNodes returns the statements and rescue/else/ensure clauses of a
// definition or block. Older grammars put them directly under n, newer ones
// under a body field.
func (l *lowerer) bodyNodes(n sitter.Node, skip ...sitter.Node) []sitter.Node {
	if body := n.ChildByFieldName("body"); !body.IsNull() {
		switch body.Type() {
		case "body_statement", "block_body", "do", "then":
			return l.namedChildren(body)
		}

		return []sitter.Node{body}
	}

	return l.namedChildrenExcept(n, skip...)
}

type rescueClause struct {
	exceptions sexp.Sexp
	variable   sexp.Sexp
	body       sexp.Sexp
}

// bodystmt lowers a body to [:bodystmt, stmts, rescue, else, ensure].
// Clauses are lowered in source order so declarations stay ordered.
func (l *lowerer) bodystmt(nodes []sitter.Node) sexp.Sexp {
	stmts := make(sexp.List, 0, len(nodes))

	var (
		clauses    []rescueClause
		elseBody   sexp.Sexp = sexp.Nil{}
		ensureBody sexp.Sexp = sexp.Nil{}
	)

	for _, n := range nodes {
		switch n.Type() {
		case "rescue":
			clauses = append(clauses, l.rescueClause(n))
		case "else":
			elseBody = l.statements(l.namedChildren(n))
		case "ensure":
			ensureBody = sexp.NewNode("ensure", l.statements(l.namedChildren(n)))
		default:
			stmts = append(stmts, l.node(n))
		}
	}

	var rescue sexp.Sexp = sexp.Nil{}
	for i := len(clauses) - 1; i >= 0; i-- {
		c := clauses[i]
		rescue = sexp.NewNode("rescue", c.exceptions, c.variable, c.body, rescue)
	}

	return sexp.NewNode("bodystmt", stmts, rescue, elseBody, ensureBody)
}

func (l *lowerer) rescueClause(n sitter.Node) rescueClause {
	c := rescueClause{exceptions: sexp.Nil{}, variable: sexp.Nil{}, body: sexp.List{}}

	if exc := n.ChildByFieldName("exceptions"); !exc.IsNull() {
		c.exceptions = l.statements(l.namedChildren(exc))
	}

	if variable := n.ChildByFieldName("variable"); !variable.IsNull() {
		if inner := l.namedChildren(variable); len(inner) > 0 {
			c.variable = l.field(inner[0])
		}
	}

	if body := n.ChildByFieldName("body"); !body.IsNull() {
		c.body = l.statements(l.namedChildren(body))
	}

	return c
}

// Parameters.

// params lowers a parameter list to
// [:params, req, opts, rest, post, kw, kwrest, block]. Children after a ";"
// are block-local variables and are left to blockVar.
func (l *lowerer) params(n sitter.Node) sexp.Sexp {
	if n.IsNull() {
		return sexp.Nil{}
	}

	var (
		req, opts, post, kw, extras sexp.List
		rest, kwrest, block         sexp.Sexp = sexp.Nil{}, sexp.Nil{}, sexp.Nil{}
		seenRest                    bool
	)

	for idx := range n.ChildCount() {
		child := n.Child(idx)

		if !child.IsNamed() {
			if child.Type() == ";" {
				break
			}

			continue
		}

		switch child.Type() {
		case "comment":
		case "identifier", "destructured_parameter":
			target := l.paramTarget(child)
			if seenRest {
				post = append(post, target)
			} else {
				req = append(req, target)
			}
		case "optional_parameter":
			name := l.bind(child.ChildByFieldName("name"))
			opts = append(opts, sexp.List{name, l.optional(child.ChildByFieldName("value"))})
		case "splat_parameter":
			seenRest = true
			rest = sexp.NewNode("rest_param", l.optionalBind(child.ChildByFieldName("name")))
		case "keyword_parameter":
			label := l.bind(child.ChildByFieldName("name"))
			label.Type = "@label"
			label.Text += ":"

			var def sexp.Sexp = sexp.Bool(false)
			if value := child.ChildByFieldName("value"); !value.IsNull() {
				def = l.node(value)
			}

			kw = append(kw, sexp.List{label, def})
		case "hash_splat_parameter":
			kwrest = sexp.NewNode("kwrest_param", l.optionalBind(child.ChildByFieldName("name")))
		case "hash_splat_nil":
			kwrest = sexp.NewNode("nokw_param", sexp.Nil{})
		case "block_parameter":
			block = sexp.NewNode("blockarg", l.optionalBind(child.ChildByFieldName("name")))
		case "forward_parameter":
			seenRest = true
			rest = sexp.NewNode("args_forward")
		default:
			extras = append(extras, l.node(child))
		}
	}

	slots := []sexp.Sexp{listOrNil(req), listOrNil(opts), rest, listOrNil(post), listOrNil(kw), kwrest, block}

	return sexp.NewNode("params", append(slots, extras...)...)
}

func listOrNil(l sexp.List) sexp.Sexp {
	if len(l) == 0 {
		return sexp.Nil{}
	}

	return l
}

func (l *lowerer) paramTarget(n sitter.Node) sexp.Sexp {
	switch n.Type() {
	case "identifier":
		return l.bind(n)
	case "splat_parameter":
		return sexp.NewNode("rest_param", l.optionalBind(n.ChildByFieldName("name")))
	case "destructured_parameter":
		children := l.namedChildren(n)
		items := make([]sexp.Sexp, 0, len(children))

		for _, child := range children {
			items = append(items, l.paramTarget(child))
		}

		return sexp.NewNode("mlhs_paren", sexp.NewNode("mlhs", items...))
	}

	return l.node(n)
}

// blockVar lowers |params; locals| to [:block_var, params, locals].
func (l *lowerer) blockVar(n sitter.Node) sexp.Sexp {
	params := l.params(n)

	var locals sexp.List

	afterSemicolon := false

	for idx := range n.ChildCount() {
		child := n.Child(idx)

		switch {
		case !child.IsNamed() && child.Type() == ";":
			afterSemicolon = true
		case afterSemicolon && child.Type() == "identifier":
			locals = append(locals, l.bind(child))
		}
	}

	if len(locals) == 0 {
		return sexp.NewNode("block_var", params, sexp.Bool(false))
	}

	return sexp.NewNode("block_var", params, locals)
}

// Calls and blocks.

func (l *lowerer) call(n sitter.Node) sexp.Sexp {
	recvNode, argsNode, blockNode := n.ChildByFieldName("receiver"), n.ChildByFieldName("arguments"), n.ChildByFieldName("block")

	var recv sexp.Sexp
	if !recvNode.IsNull() {
		recv = l.node(recvNode)
	}

	name := l.optionalLeaf(n.ChildByFieldName("method"))
	op := l.callOperator(n)

	var expr sexp.Sexp

	switch {
	case argsNode.IsNull() && recv != nil:
		expr = sexp.NewNode("call", recv, op, name)
	case argsNode.IsNull():
		expr = sexp.NewNode("fcall", name)
	default:
		args := l.arguments(argsNode)

		switch {
		case !parenthesized(argsNode) && recv != nil:
			expr = sexp.NewNode("command_call", recv, op, name, args)
		case !parenthesized(argsNode):
			expr = sexp.NewNode("command", name, args)
		case recv != nil:
			expr = sexp.NewNode("method_add_arg", sexp.NewNode("call", recv, op, name), sexp.NewNode("arg_paren", args))
		default:
			expr = sexp.NewNode("method_add_arg", sexp.NewNode("fcall", name), sexp.NewNode("arg_paren", args))
		}
	}

	if !blockNode.IsNull() {
		expr = sexp.NewNode("method_add_block", expr, l.block(blockNode))
	}

	return expr
}

func parenthesized(args sitter.Node) bool {
	return args.ChildCount() > 0 && args.Child(0).Type() == "("
}

func (l *lowerer) callOperator(n sitter.Node) sexp.Sexp {
	opNode := n.ChildByFieldName("operator")
	if opNode.IsNull() {
		return l.punctuation(n, "@period", ".", "&.", "::")
	}

	if l.text(opNode) == "&." {
		return l.token("@op", opNode)
	}

	return l.token("@period", opNode)
}

// punctuation returns the first anonymous child of n spelled as one of texts.
func (l *lowerer) punctuation(n sitter.Node, typ string, texts ...string) sexp.Sexp {
	for idx := range n.ChildCount() {
		child := n.Child(idx)
		if child.IsNamed() {
			continue
		}

		for _, text := range texts {
			if child.Type() == text {
				return l.token(typ, child)
			}
		}
	}

	return sexp.Nil{}
}

// arguments lowers an argument list to [:args_add_block, args, block_arg].
func (l *lowerer) arguments(n sitter.Node) sexp.Sexp {
	children := l.namedChildren(n)
	args := make(sexp.List, 0, len(children))

	var blockArg sexp.Sexp = sexp.Bool(false)

	for _, child := range children {
		if child.Type() == "block_argument" {
			blockArg = sexp.Nil{}
			if inner := l.namedChildren(child); len(inner) > 0 {
				blockArg = l.node(inner[0])
			}

			continue
		}

		args = append(args, l.node(child))
	}

	return sexp.NewNode("args_add_block", args, blockArg)
}

// block lowers { |params| stmts } and do |params| body end. Blocks see the
// enclosing locals; their own declarations end with the block.
func (l *lowerer) block(n sitter.Node) sexp.Sexp {
	restore := l.push(true)
	defer restore()

	paramsNode := n.ChildByFieldName("parameters")

	var blockVar sexp.Sexp = sexp.Nil{}
	if !paramsNode.IsNull() {
		blockVar = l.blockVar(paramsNode)
	}

	nodes := l.bodyNodes(n, paramsNode)
	if n.Type() == "do_block" {
		return sexp.NewNode("do_block", blockVar, l.bodystmt(nodes))
	}

	return sexp.NewNode("brace_block", blockVar, l.statements(nodes))
}

func (l *lowerer) lambda(n sitter.Node) sexp.Sexp {
	restore := l.push(true)
	defer restore()

	params := l.params(n.ChildByFieldName("parameters"))

	var body sexp.Sexp = sexp.List{}
	if bodyNode := n.ChildByFieldName("body"); !bodyNode.IsNull() {
		body = l.bodystmt(l.bodyNodes(bodyNode, bodyNode.ChildByFieldName("parameters")))
	}

	return sexp.NewNode("lambda", params, body)
}

func (l *lowerer) forLoop(n sitter.Node) sexp.Sexp {
	target := l.field(n.ChildByFieldName("pattern"))

	var value sexp.Sexp = sexp.Nil{}
	if in := n.ChildByFieldName("value"); !in.IsNull() {
		if inner := l.namedChildren(in); len(inner) > 0 {
			value = l.node(inner[0])
		}
	}

	var body sexp.List
	if do := n.ChildByFieldName("body"); !do.IsNull() {
		body = l.statements(l.namedChildren(do))
	}

	return sexp.NewNode("for", target, value, body)
}

// Expressions.

func (l *lowerer) stringLiteral(n sitter.Node) sexp.Sexp {
	children := l.namedChildren(n)
	parts := make([]sexp.Sexp, 0, len(children))

	for _, child := range children {
		parts = append(parts, l.node(child))
	}

	return sexp.NewNode("string_literal", sexp.NewNode("string_content", parts...))
}

func (l *lowerer) binary(n sitter.Node) sexp.Sexp {
	leftNode := n.ChildByFieldName("left")
	left := l.optional(leftNode)

	var op sexp.Sexp = sexp.Nil{}
	if opNode := n.ChildByFieldName("operator"); !opNode.IsNull() {
		op = sexp.Symbol(l.text(opNode))
	}

	right := l.optional(n.ChildByFieldName("right"))

	if op == sexp.Symbol("=~") && !leftNode.IsNull() {
		l.declareNamedGroups(leftNode)
	}

	return sexp.NewNode("binary", left, op, right)
}

// namedGroup matches a named capture whose name is a valid local variable.
var namedGroup = regexp.MustCompile(`\(\?<([a-z_][A-Za-z0-9_]*)>`)

// declareNamedGroups declares the named captures of a regex literal on the
// left of =~. Interpolated literals declare nothing.
func (l *lowerer) declareNamedGroups(re sitter.Node) {
	if re.Type() != "regex" {
		return
	}

	for _, child := range l.namedChildren(re) {
		if child.Type() == "interpolation" {
			return
		}
	}

	for _, m := range namedGroup.FindAllStringSubmatch(l.text(re), -1) {
		l.scope.declare(m[1])
	}
}

func (l *lowerer) unary(n sitter.Node) sexp.Sexp {
	var op sexp.Sexp = sexp.Nil{}
	if opNode := n.ChildByFieldName("operator"); !opNode.IsNull() {
		op = sexp.Symbol(l.text(opNode))
	}

	return sexp.NewNode("unary", op, l.optional(n.ChildByFieldName("operand")))
}

// inClause lowers a pattern-matching branch. Identifiers in the pattern bind
// locals, pinned ones (^x) reference them.
func (l *lowerer) inClause(n sitter.Node) sexp.Sexp {
	pat := l.pattern(n.ChildByFieldName("pattern"))
	guard := l.optional(n.ChildByFieldName("guard"))

	var body sexp.List
	if then := n.ChildByFieldName("body"); !then.IsNull() {
		body = l.statements(l.namedChildren(then))
	}

	return sexp.NewNode("in", pat, guard, body)
}

func (l *lowerer) pattern(n sitter.Node) sexp.Sexp {
	if n.IsNull() {
		return sexp.Nil{}
	}

	switch n.Type() {
	case "identifier":
		return sexp.NewNode("var_field", l.bind(n))
	case "variable_reference_pattern", "expression_reference_pattern":
		return l.node(n)
	}

	children := l.namedChildren(n)
	if len(children) == 0 {
		return l.leaf(n)
	}

	lowered := make([]sexp.Sexp, 0, len(children))
	for _, child := range children {
		lowered = append(lowered, l.pattern(child))
	}

	return sexp.NewNode(n.Type(), lowered...)
}
