package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rubyhl/pkg/levenshtein"
	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

// Output formats of the extract command.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
	FormatVim   = "vim"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

// fileResult is the extraction of one input, with columns already rebased.
type fileResult struct {
	Path        string            `json:"path"               yaml:"path"`
	Backend     string            `json:"backend"            yaml:"backend"`
	Occurrences []lvar.Occurrence `json:"occurrences"        yaml:"occurrences"`
	Warnings    []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error       string            `json:"error,omitempty"    yaml:"error,omitempty"`
}

type renderFunc func(w io.Writer, results []fileResult) error

var renderers = map[string]renderFunc{
	FormatText:  renderText,
	FormatJSON:  renderJSON,
	FormatYAML:  renderYAML,
	FormatTable: renderTable,
	FormatVim:   renderVim,
}

func render(w io.Writer, format string, results []fileResult) error {
	fn, ok := renderers[format]
	if !ok {
		return unknownFormat(format)
	}

	return fn(w, results)
}

var formatNames = []string{FormatText, FormatJSON, FormatYAML, FormatTable, FormatVim}

func unknownFormat(format string) error {
	if hint := levenshtein.Hint(format, formatNames); hint != "" {
		return fmt.Errorf("%w: %q%s", ErrUnknownFormat, format, hint)
	}

	return fmt.Errorf("%w: %q (want text, json, yaml, table or vim)", ErrUnknownFormat, format)
}

// renderText prints one "path:line:col: name" line per occurrence.
func renderText(w io.Writer, results []fileResult) error {
	for _, res := range results {
		path := sanitizeForTerminal(res.Path)

		if res.Error != "" {
			if _, err := fmt.Fprintf(w, "%s: error: %s\n", path, res.Error); err != nil {
				return fmt.Errorf("write: %w", err)
			}

			continue
		}

		for _, o := range res.Occurrences {
			if _, err := fmt.Fprintf(w, "%s:%d:%d: %s\n", path, o.Line, o.Column, o.Name); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}

		for _, warning := range res.Warnings {
			if _, err := fmt.Fprintf(w, "%s: warning: %s\n", path, warning); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}

	return nil
}

func renderJSON(w io.Writer, results []fileResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, results []fileResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}

func renderTable(w io.Writer, results []fileResult) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.AppendHeader(table.Row{"File", "Name", "Line", "Column"})

	total := 0

	for _, res := range results {
		path := sanitizeForTerminal(res.Path)

		if res.Error != "" {
			tbl.AppendRow(table.Row{path, "error: " + res.Error, "", ""})

			continue
		}

		for _, o := range res.Occurrences {
			tbl.AppendRow(table.Row{path, o.Name, o.Line, o.Column})
		}

		total += len(res.Occurrences)
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d occurrences", total), "", "", ""})
	tbl.Render()

	return nil
}

// renderVim prints each file's occurrences as a Vim list literal,
// [["name", line, col], ...], ready for :let.
func renderVim(w io.Writer, results []fileResult) error {
	for _, res := range results {
		items := make([]string, 0, len(res.Occurrences))

		for _, o := range res.Occurrences {
			items = append(items, "["+sexp.String(o.Name).String()+", "+
				strconv.Itoa(o.Line)+", "+strconv.Itoa(o.Column)+"]")
		}

		if _, err := fmt.Fprintf(w, "[%s]\n", strings.Join(items, ", ")); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}

	return nil
}
