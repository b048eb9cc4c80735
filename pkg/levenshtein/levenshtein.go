// Package levenshtein measures edit distance between short identifiers and
// suggests the closest known name for a mistyped one.
package levenshtein

import "fmt"

// maxSuggestDistance is the largest distance still offered as a suggestion.
const maxSuggestDistance = 2

// Distance returns the number of single-rune insertions, deletions and
// substitutions needed to turn a into b.
func Distance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}

	// One row of the edit matrix, sized by the shorter string.
	row := make([]int, len(s2)+1)
	for i := range row {
		row[i] = i
	}

	for i, r1 := range s1 {
		diag := row[0]
		row[0] = i + 1

		for j, r2 := range s2 {
			cost := 1
			if r1 == r2 {
				cost = 0
			}

			up := row[j+1]
			row[j+1] = min(up+1, row[j]+1, diag+cost)
			diag = up
		}
	}

	return row[len(s2)]
}

// Closest returns the candidate nearest to word, if any is within two edits.
// Ties go to the earlier candidate.
func Closest(word string, candidates []string) (string, bool) {
	best, bestDist := "", maxSuggestDistance+1

	for _, c := range candidates {
		if d := Distance(word, c); d < bestDist {
			best, bestDist = c, d
		}
	}

	return best, best != ""
}

// Hint formats a "did you mean" suffix for error messages, or returns "".
func Hint(word string, candidates []string) string {
	c, ok := Closest(word, candidates)
	if !ok || c == word {
		return ""
	}

	return fmt.Sprintf(" (did you mean %q?)", c)
}
