package sexp

import (
	"strconv"
	"strings"
)

func (Nil) String() string { return "nil" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (s String) String() string { return quote(string(s)) }

func (s Symbol) String() string {
	if isPlainSymbol(string(s)) {
		return ":" + string(s)
	}

	return ":" + quote(string(s))
}

func (t Token) String() string {
	var buf strings.Builder

	writeElements(&buf, t.Elements())

	return buf.String()
}

func (n *Node) String() string {
	var buf strings.Builder

	writeElements(&buf, n.elems)

	return buf.String()
}

func (l List) String() string {
	var buf strings.Builder

	writeElements(&buf, l)

	return buf.String()
}

func writeElements(buf *strings.Builder, elems []Sexp) {
	buf.WriteByte('[')

	for i, elem := range elems {
		if i > 0 {
			buf.WriteString(", ")
		}

		buf.WriteString(orNil(elem).String())
	}

	buf.WriteByte(']')
}

// operatorSymbols are the method-name symbols Ruby prints without quotes.
var operatorSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"<=>": true, "===": true, "=~": true, "!~": true, "!": true,
	"[]": true, "[]=": true, "<<": true, ">>": true, "&": true, "|": true,
	"^": true, "~": true, "+@": true, "-@": true, "`": true,
}

func isPlainSymbol(name string) bool {
	if operatorSymbols[name] {
		return true
	}

	body := strings.TrimLeft(name, "@$")
	if len(name)-len(body) > 2 || body == "" {
		return false
	}

	if last := body[len(body)-1]; last == '?' || last == '!' || last == '=' {
		body = body[:len(body)-1]
	}

	for i := range len(body) {
		ch := body[i]

		switch {
		case ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= 0x80:
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return false
		}
	}

	return body != ""
}

// quote renders s the way Ruby's String#inspect does for the characters Ripper emits.
func quote(s string) string {
	var buf strings.Builder

	buf.Grow(len(s) + 2)
	buf.WriteByte('"')

	for i, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		case '\r':
			buf.WriteString(`\r`)
		case '\f':
			buf.WriteString(`\f`)
		case '\v':
			buf.WriteString(`\v`)
		case '\a':
			buf.WriteString(`\a`)
		case '\b':
			buf.WriteString(`\b`)
		case 0x1b:
			buf.WriteString(`\e`)
		case '#':
			if i+1 < len(s) && (s[i+1] == '{' || s[i+1] == '$' || s[i+1] == '@') {
				buf.WriteString(`\#`)
			} else {
				buf.WriteByte('#')
			}
		default:
			switch {
			case r == 0x7f:
				buf.WriteString(`\x7F`)
			case r < 0x20:
				buf.WriteString(`\u00`)
				buf.WriteString(strings.ToUpper(strconv.FormatInt(int64(r)+0x100, 16)[1:]))
			default:
				buf.WriteRune(r)
			}
		}
	}

	buf.WriteByte('"')

	return buf.String()
}
