// Package textutil inspects raw source bytes before they reach a parser.
package textutil

import "bytes"

// SniffWindow is how many leading bytes IsBinary looks at. Git uses the
// same window.
const SniffWindow = 8000

// IsBinary reports whether a NUL byte occurs within the first SniffWindow
// bytes of data.
func IsBinary(data []byte) bool {
	return bytes.IndexByte(data[:min(len(data), SniffWindow)], 0) != -1
}

// CountLines counts lines the way an editor shows them: an unterminated
// last line counts, an empty buffer has none.
func CountLines(data []byte) int {
	n := bytes.Count(data, []byte("\n"))
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		n++
	}

	return n
}
