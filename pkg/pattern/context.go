package pattern

import "github.com/Sumatoshi-tech/rubyhl/pkg/sexp"

// Context holds the captures of one match attempt, keyed by capture index.
type Context struct {
	captures []sexp.Sexp
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{}
}

// Get returns the value captured under index.
func (c *Context) Get(index int) (sexp.Sexp, bool) {
	if index < 0 || index >= len(c.captures) || c.captures[index] == nil {
		return nil, false
	}

	return c.captures[index], true
}

// Value returns the value captured under index, or nil (the Sexp atom) when
// nothing was captured.
func (c *Context) Value(index int) sexp.Sexp {
	if v, ok := c.Get(index); ok {
		return v
	}

	return sexp.Nil{}
}

// Len returns the number of captured indices.
func (c *Context) Len() int {
	n := 0

	for _, v := range c.captures {
		if v != nil {
			n++
		}
	}

	return n
}

// Reset drops all captures so the context can serve a new attempt.
func (c *Context) Reset() {
	clear(c.captures)
	c.captures = c.captures[:0]
}

func (c *Context) set(index int, v sexp.Sexp) {
	if v == nil {
		v = sexp.Nil{}
	}

	for len(c.captures) <= index {
		c.captures = append(c.captures, nil)
	}

	c.captures[index] = v
}
