package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LSP positions count UTF-16 code units; parser columns count bytes.

func lineAt(text string, line int) string {
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}

	return strings.TrimSuffix(lines[line], "\r")
}

// byteColumn converts a UTF-16 character offset within line to a byte offset.
func byteColumn(line string, character int) int {
	units := 0

	for i, r := range line {
		if units >= character {
			return i
		}

		units += utf16.RuneLen(r)
	}

	return len(line)
}

// utf16Column converts a byte offset within line to a UTF-16 character offset.
func utf16Column(line string, byteCol int) int {
	if byteCol > len(line) {
		byteCol = len(line)
	}

	units := 0

	for prefix := line[:byteCol]; prefix != ""; {
		r, size := utf8.DecodeRuneInString(prefix)
		units += utf16.RuneLen(r)
		prefix = prefix[size:]
	}

	return units
}

// byteOffset converts an LSP position to an offset into text.
func byteOffset(text string, pos protocol.Position) int {
	offset := 0

	for line := 0; line < int(pos.Line); line++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}

		offset += next + 1
	}

	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text) - offset
	}

	return offset + byteColumn(text[offset:offset+end], int(pos.Character))
}

// firstChangedLine returns the 1-based line holding the first byte where
// before and after differ.
func firstChangedLine(before, after string) int {
	i := 0
	for i < len(before) && i < len(after) && before[i] == after[i] {
		i++
	}

	return strings.Count(before[:i], "\n") + 1
}

// applyChange replaces the range of an incremental edit.
func applyChange(text string, r protocol.Range, replacement string) string {
	start, end := byteOffset(text, r.Start), byteOffset(text, r.End)
	if end < start {
		start, end = end, start
	}

	return text[:start] + replacement + text[end:]
}
