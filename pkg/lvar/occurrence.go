package lvar

import "github.com/Sumatoshi-tech/rubyhl/pkg/sexp"

// Occurrence is one binding or reference site of a local variable.
// Line is 1-based; Column is 0-based as reported by the parser.
type Occurrence struct {
	Name   string `json:"name"   yaml:"name"`
	Line   int    `json:"line"   yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

// End returns the column just past the variable name.
func (o Occurrence) End() int {
	return o.Column + len(o.Name)
}

// Contains reports whether the cursor at line and 0-based col is on the name.
func (o Occurrence) Contains(line, col int) bool {
	return o.Line == line && col >= o.Column && col < o.End()
}

func occurrenceOf(tok sexp.Token) Occurrence {
	return Occurrence{Name: tok.Text, Line: tok.Pos.Line, Column: tok.Pos.Column}
}

// Rebase returns a copy of occs with columns shifted to columnBase
// (0 keeps parser columns, 1 yields editor columns).
func Rebase(occs []Occurrence, columnBase int) []Occurrence {
	out := make([]Occurrence, len(occs))

	for i, o := range occs {
		o.Column += columnBase
		out[i] = o
	}

	return out
}
