package source

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/src-d/enry/v2"
)

const (
	rubyLanguage = "Ruby"
	sniffSize    = 512
)

// IsRuby reports whether path holds Ruby, by name first and by content
// (shebang, modelines) for extensionless scripts.
func IsRuby(path string) bool {
	lang := enry.GetLanguage(filepath.Base(path), nil)
	if lang != "" {
		return lang == rubyLanguage
	}

	head, err := readHead(path)
	if err != nil || len(head) == 0 {
		return false
	}

	return enry.GetLanguage(filepath.Base(path), head) == rubyLanguage
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer

	_, err = io.CopyN(&buf, f, sniffSize)
	if err != nil && err != io.EOF {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Discover expands paths into Ruby files. Files are kept as given; directories
// are walked, skipping vendored and dot directories.
func Discover(paths ...string) ([]string, error) {
	var files []string

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}

		if !info.IsDir() {
			files = append(files, root)

			continue
		}

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}

			if d.IsDir() {
				if path != root && (enry.IsDotFile(rel) || enry.IsVendor(rel+"/")) {
					return filepath.SkipDir
				}

				return nil
			}

			if d.Type().IsRegular() && !enry.IsVendor(rel) && IsRuby(path) {
				files = append(files, path)
			}

			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("discover %s: %w", root, walkErr)
		}
	}

	return files, nil
}
