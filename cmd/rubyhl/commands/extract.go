package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
	"github.com/Sumatoshi-tech/rubyhl/pkg/safeconv"
	"github.com/Sumatoshi-tech/rubyhl/pkg/source"
)

// ErrExtractFailed is returned when at least one input could not be extracted.
var ErrExtractFailed = errors.New("extraction failed")

// NewExtractCommand creates the extract subcommand.
func NewExtractCommand() *cobra.Command {
	var (
		format  string
		summary bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "extract [file|dir|-]...",
		Short: "List local variable occurrences",
		Long: `List every local variable binding and reference in Ruby programs.

Arguments may be files, directories (walked for Ruby sources, skipping
vendored and hidden paths) or "-" for standard input, the default.
The vim format reports 1-based columns unless --column-base is given.
With --watch the command keeps running and prints the occurrences of
each file again whenever it is saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch && (len(args) == 0 || slices.Contains(args, stdinPath)) {
				return ErrWatchStdin
			}

			e, err := loadEnv(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer e.close()

			// Vim's col() is 1-based, like the :let payload editors consume.
			if format == FormatVim && !cmd.Flags().Changed(FlagColumnBase) {
				e.cfg.Extract.ColumnBase = 1
			}

			paths, err := runExtract(cmd, e, args, format, summary)
			if watch && paths != nil {
				return watchInputs(cmd, e, args, paths, format)
			}

			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format: text, json, yaml, table or vim (vim defaults to --column-base 1)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a summary line to stderr")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-extract files when they change")

	return cmd
}

// runExtract extracts every input once and returns the expanded input
// paths. Paths are nil when the inputs could not be expanded.
func runExtract(cmd *cobra.Command, e *env, args []string, format string, summary bool) ([]string, error) {
	if _, ok := renderers[format]; !ok {
		return nil, unknownFormat(format)
	}

	paths, err := inputPaths(args)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, 0, len(paths))

	var (
		total  stats
		failed int
	)

	for _, path := range paths {
		res, st := extractOne(cmd, e, path)

		total.bytes += st.bytes
		total.lines += st.lines
		total.occurrences += len(res.Occurrences)

		if res.Error != "" {
			failed++
		}

		results = append(results, res)
	}

	if err := render(cmd.OutOrStdout(), format, results); err != nil {
		return nil, err
	}

	if summary {
		writeSummary(cmd.ErrOrStderr(), len(paths), total, failed)
	}

	if failed > 0 {
		return paths, fmt.Errorf("%w: %d of %d inputs", ErrExtractFailed, failed, len(paths))
	}

	return paths, nil
}

// inputPaths expands directories into Ruby files; "-" and no arguments mean stdin.
func inputPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{stdinPath}, nil
	}

	var paths []string

	for _, arg := range args {
		if arg == stdinPath {
			paths = append(paths, stdinPath)

			continue
		}

		found, err := source.Discover(arg)
		if err != nil {
			return nil, err
		}

		paths = append(paths, found...)
	}

	return paths, nil
}

// stats accumulates what the summary line reports.
type stats struct {
	bytes       int
	lines       int
	occurrences int
}

func extractOne(cmd *cobra.Command, e *env, path string) (fileResult, stats) {
	res := fileResult{Path: path, Backend: e.service.Backend()}

	src, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		res.Error = err.Error()

		return res, stats{}
	}

	out, err := e.service.Extract(cmd.Context(), src)
	if err != nil {
		e.logger.Debug("extract failed", "path", path, "error", err)
		res.Error = err.Error()

		return res, stats{bytes: len(src)}
	}

	res.Occurrences = e.rebase(out.Occurrences)

	if e.cfg.Extract.ShowWarnings {
		res.Warnings = out.Warnings
	}

	return res, stats{bytes: len(src), lines: out.Lines}
}

func writeSummary(w io.Writer, files int, total stats, failed int) {
	fmt.Fprintf(w, "%s files, %s lines, %s read, %s occurrences, %d failed\n", //nolint:errcheck // best-effort stderr.
		humanize.Comma(int64(files)),
		humanize.Comma(int64(total.lines)),
		humanize.IBytes(safeconv.MustUint64(total.bytes)),
		humanize.Comma(int64(total.occurrences)),
		failed)
}
