package rubyts

// scope tracks the local variables declared so far. A hard scope (program,
// def, class, module) hides its parent; a soft scope (block, lambda) sees it.
type scope struct {
	parent *scope
	names  map[string]struct{}
	soft   bool
}

func newScope(parent *scope, soft bool) *scope {
	return &scope{parent: parent, names: make(map[string]struct{}), soft: soft}
}

func (s *scope) declare(name string) {
	s.names[name] = struct{}{}
}

// numbered reports whether name is a numbered block parameter (_1 to _9).
// Ruby declares those implicitly in the block or lambda body using them,
// and only block and lambda scopes are soft.
func (s *scope) numbered(name string) bool {
	return s.soft && len(name) == 2 && name[0] == '_' && name[1] >= '1' && name[1] <= '9'
}

func (s *scope) declared(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.names[name]; ok {
			return true
		}

		if !cur.soft {
			return false
		}
	}

	return false
}
