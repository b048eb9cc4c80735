package lvar

// Group is every occurrence of one variable name.
type Group struct {
	Name        string       `json:"name"        yaml:"name"`
	Occurrences []Occurrence `json:"occurrences" yaml:"occurrences"`
}

// GroupByName buckets occurrences by name. Groups are ordered by the first
// occurrence of each name; occurrences keep their input order.
func GroupByName(occs []Occurrence) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, o := range occs {
		i, ok := index[o.Name]
		if !ok {
			i = len(groups)
			index[o.Name] = i

			groups = append(groups, Group{Name: o.Name})
		}

		groups[i].Occurrences = append(groups[i].Occurrences, o)
	}

	return groups
}

// At returns the occurrence under the cursor at line and 0-based col.
func At(occs []Occurrence, line, col int) (Occurrence, bool) {
	for _, o := range occs {
		if o.Contains(line, col) {
			return o, true
		}
	}

	return Occurrence{}, false
}

// Related returns the occurrences sharing the name of the one under the
// cursor, or nil when the cursor is not on a local variable.
func Related(occs []Occurrence, line, col int) []Occurrence {
	target, ok := At(occs, line, col)
	if !ok {
		return nil
	}

	var out []Occurrence

	for _, o := range occs {
		if o.Name == target.Name {
			out = append(out, o)
		}
	}

	return out
}
