package sexp

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sentinel errors for reading Ripper output.
var (
	ErrUnexpectedEOF   = errors.New("unexpected end of input")
	ErrUnexpectedChar  = errors.New("unexpected character")
	ErrInvalidEscape   = errors.New("invalid escape sequence")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrTrailingContent = errors.New("trailing content after value")
)

// Read decodes exactly one value printed by Ruby's Kernel#p, e.g. the output of
// `p Ripper.sexp(source)`. Arrays are classified with [Array].
func Read(r io.Reader) (Sexp, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sexp: %w", err)
	}

	return ReadString(string(content))
}

// ReadString decodes exactly one value from src.
func ReadString(src string) (Sexp, error) {
	rd := &reader{src: src}

	rd.skipSpace()

	val, err := rd.readValue()
	if err != nil {
		return nil, err
	}

	rd.skipSpace()

	if rd.pos < len(rd.src) {
		return nil, rd.errorf(ErrTrailingContent, "%q", rd.rest(16))
	}

	return val, nil
}

// MustReadString is like [ReadString] but panics on malformed input.
// It is intended for fixtures and package-level tables.
func MustReadString(src string) Sexp {
	val, err := ReadString(src)
	if err != nil {
		panic(err)
	}

	return val
}

type reader struct {
	src string
	pos int
}

func (rd *reader) errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", sentinel, rd.pos, fmt.Sprintf(format, args...))
}

func (rd *reader) rest(limit int) string {
	end := min(rd.pos+limit, len(rd.src))

	return rd.src[rd.pos:end]
}

func (rd *reader) skipSpace() {
	for rd.pos < len(rd.src) {
		switch rd.src[rd.pos] {
		case ' ', '\t', '\n', '\r':
			rd.pos++
		default:
			return
		}
	}
}

func (rd *reader) readValue() (Sexp, error) {
	if rd.pos >= len(rd.src) {
		return nil, ErrUnexpectedEOF
	}

	ch := rd.src[rd.pos]

	switch {
	case ch == '[':
		rd.pos++

		return rd.readArray()
	case ch == '"':
		rd.pos++

		text, err := rd.readQuoted()
		if err != nil {
			return nil, err
		}

		return String(text), nil
	case ch == ':':
		rd.pos++

		return rd.readSymbol()
	case ch == '-' || ch >= '0' && ch <= '9':
		return rd.readInt()
	default:
		return rd.readKeyword()
	}
}

func (rd *reader) readArray() (Sexp, error) {
	var elems []Sexp

	for {
		rd.skipSpace()

		if rd.pos >= len(rd.src) {
			return nil, fmt.Errorf("unterminated array: %w", ErrUnexpectedEOF)
		}

		if rd.src[rd.pos] == ']' {
			rd.pos++

			return Array(elems...), nil
		}

		if len(elems) > 0 {
			if rd.src[rd.pos] != ',' {
				return nil, rd.errorf(ErrUnexpectedChar, "expected ',' or ']', got %q", rd.src[rd.pos])
			}

			rd.pos++
			rd.skipSpace()
		}

		elem, err := rd.readValue()
		if err != nil {
			return nil, err
		}

		elems = append(elems, elem)
	}
}

func (rd *reader) readSymbol() (Sexp, error) {
	if rd.pos >= len(rd.src) {
		return nil, ErrUnexpectedEOF
	}

	if rd.src[rd.pos] == '"' {
		rd.pos++

		name, err := rd.readQuoted()
		if err != nil {
			return nil, err
		}

		return Symbol(name), nil
	}

	// :[] and :[]= contain the array terminator.
	if strings.HasPrefix(rd.src[rd.pos:], "[]") {
		rd.pos += 2

		if rd.pos < len(rd.src) && rd.src[rd.pos] == '=' {
			rd.pos++

			return Symbol("[]="), nil
		}

		return Symbol("[]"), nil
	}

	start := rd.pos

	for rd.pos < len(rd.src) && !isDelimiter(rd.src[rd.pos]) {
		rd.pos++
	}

	if rd.pos == start {
		return nil, rd.errorf(ErrUnexpectedChar, "empty symbol")
	}

	return Symbol(rd.src[start:rd.pos]), nil
}

func (rd *reader) readInt() (Sexp, error) {
	start := rd.pos

	if rd.src[rd.pos] == '-' {
		rd.pos++
	}

	for rd.pos < len(rd.src) && (rd.src[rd.pos] >= '0' && rd.src[rd.pos] <= '9' || rd.src[rd.pos] == '_') {
		rd.pos++
	}

	num, err := strconv.ParseInt(strings.ReplaceAll(rd.src[start:rd.pos], "_", ""), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidNumber, rd.src[start:rd.pos], err)
	}

	return Int(num), nil
}

func (rd *reader) readKeyword() (Sexp, error) {
	start := rd.pos

	for rd.pos < len(rd.src) && !isDelimiter(rd.src[rd.pos]) {
		rd.pos++
	}

	switch word := rd.src[start:rd.pos]; word {
	case "nil":
		return Nil{}, nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	default:
		rd.pos = start

		if word == "" {
			return nil, rd.errorf(ErrUnexpectedChar, "%q", rd.src[rd.pos])
		}

		return nil, rd.errorf(ErrUnexpectedChar, "unknown word %q", word)
	}
}

// readQuoted reads the body of a double-quoted Ruby string; the opening quote
// has already been consumed.
func (rd *reader) readQuoted() (string, error) {
	var buf strings.Builder

	for {
		if rd.pos >= len(rd.src) {
			return "", fmt.Errorf("unterminated string: %w", ErrUnexpectedEOF)
		}

		ch := rd.src[rd.pos]
		rd.pos++

		switch ch {
		case '"':
			return buf.String(), nil
		case '\\':
			err := rd.readEscape(&buf)
			if err != nil {
				return "", err
			}
		default:
			buf.WriteByte(ch)
		}
	}
}

var simpleEscapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'f': '\f', 'v': '\v',
	'a': '\a', 'b': '\b', 'e': 0x1b, 's': ' ', '0': 0,
}

func (rd *reader) readEscape(buf *strings.Builder) error {
	if rd.pos >= len(rd.src) {
		return fmt.Errorf("unterminated escape: %w", ErrUnexpectedEOF)
	}

	esc := rd.src[rd.pos]
	rd.pos++

	if repl, ok := simpleEscapes[esc]; ok {
		buf.WriteByte(repl)

		return nil
	}

	switch esc {
	case 'x':
		return rd.readHexEscape(buf, 2, false)
	case 'u':
		if rd.pos < len(rd.src) && rd.src[rd.pos] == '{' {
			return rd.readBracedUnicode(buf)
		}

		return rd.readHexEscape(buf, 4, true)
	default:
		// \" \\ \# and any other escaped character stand for themselves.
		buf.WriteByte(esc)

		return nil
	}
}

func (rd *reader) readHexEscape(buf *strings.Builder, digits int, asRune bool) error {
	if rd.pos+digits > len(rd.src) {
		return rd.errorf(ErrInvalidEscape, "short hex escape")
	}

	code, err := strconv.ParseUint(rd.src[rd.pos:rd.pos+digits], 16, 32)
	if err != nil {
		return rd.errorf(ErrInvalidEscape, "%q", rd.src[rd.pos:rd.pos+digits])
	}

	rd.pos += digits

	if asRune {
		buf.WriteRune(rune(code))
	} else {
		buf.WriteByte(byte(code))
	}

	return nil
}

func (rd *reader) readBracedUnicode(buf *strings.Builder) error {
	end := strings.IndexByte(rd.src[rd.pos:], '}')
	if end < 0 {
		return rd.errorf(ErrInvalidEscape, "unterminated \\u{")
	}

	for field := range strings.FieldsSeq(rd.src[rd.pos+1 : rd.pos+end]) {
		code, err := strconv.ParseUint(field, 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return rd.errorf(ErrInvalidEscape, "\\u{%s}", field)
		}

		buf.WriteRune(rune(code))
	}

	rd.pos += end + 1

	return nil
}

func isDelimiter(ch byte) bool {
	switch ch {
	case ',', ']', '[', ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
