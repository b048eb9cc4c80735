package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// stdinPath names standard input on the command line.
const stdinPath = "-"

// Input path errors.
var (
	ErrDirectoryPath   = errors.New("path points to a directory")
	ErrEmptyPath       = errors.New("path is empty")
	ErrPathContainsNUL = errors.New("path contains NUL byte")
)

// readInput returns the bytes of a command-line input: stdin for "-",
// otherwise the regular file at path.
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == stdinPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}

		return data, nil
	}

	file, err := regularFile(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(file) //nolint:gosec // checked by regularFile.
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	return data, nil
}

// regularFile cleans a user-supplied path into an absolute one and rejects
// anything that is not an existing non-directory.
func regularFile(path string) (string, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return "", ErrEmptyPath
	case strings.IndexByte(path, 0) >= 0:
		return "", fmt.Errorf("%w: %q", ErrPathContainsNUL, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path of %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDirectoryPath, abs)
	}

	return abs, nil
}

// sanitizeForTerminal flattens whitespace controls to spaces and drops the
// other control runes of a file name before it is echoed.
func sanitizeForTerminal(name string) string {
	var b strings.Builder

	b.Grow(len(name))

	for _, r := range name {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteByte(' ')

			continue
		}

		if !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}
