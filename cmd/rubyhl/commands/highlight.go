package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
)

// palette cycles across variable names in order of first occurrence.
var palette = []color.Attribute{
	color.FgCyan,
	color.FgMagenta,
	color.FgYellow,
	color.FgGreen,
	color.FgBlue,
	color.FgRed,
	color.FgHiCyan,
	color.FgHiMagenta,
	color.FgHiYellow,
	color.FgHiGreen,
}

// NewHighlightCommand creates the highlight subcommand.
func NewHighlightCommand() *cobra.Command {
	var colorize, nocolor, legend bool

	cmd := &cobra.Command{
		Use:   "highlight [file|-]",
		Short: "Print a Ruby file with each local variable colored by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nocolor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			} else if colorize {
				color.NoColor = false //nolint:reassign // intentional override of library global
			}

			e, err := loadEnv(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer e.close()

			path := stdinPath
			if len(args) == 1 {
				path = args[0]
			}

			src, err := readInput(path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			res, err := e.service.Extract(cmd.Context(), src)
			if err != nil {
				return err
			}

			groups := lvar.GroupByName(res.Occurrences)

			err = writeHighlighted(cmd.OutOrStdout(), string(src), groups)
			if err != nil || !legend {
				return err
			}

			return writeLegend(cmd.ErrOrStderr(), groups)
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&legend, "legend", false, "list each variable with its color on stderr")

	return cmd
}

type span struct {
	start, end int
	paint      *color.Color
}

// writeHighlighted copies src to w, painting every occurrence. Occurrence
// columns are byte offsets into their line.
func writeHighlighted(w io.Writer, src string, groups []lvar.Group) error {
	byLine := make(map[int][]span)

	for i, g := range groups {
		paint := color.New(palette[i%len(palette)], color.Bold)

		for _, o := range g.Occurrences {
			byLine[o.Line] = append(byLine[o.Line], span{start: o.Column, end: o.End(), paint: paint})
		}
	}

	var out strings.Builder

	for i, line := range strings.SplitAfter(src, "\n") {
		spans := byLine[i+1]
		slices.SortFunc(spans, func(a, b span) int { return a.start - b.start })

		pos := 0

		for _, s := range spans {
			if s.start < pos || s.end > len(line) {
				continue
			}

			out.WriteString(line[pos:s.start])
			out.WriteString(s.paint.Sprint(line[s.start:s.end]))
			pos = s.end
		}

		out.WriteString(line[pos:])
	}

	if _, err := io.WriteString(w, out.String()); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

func writeLegend(w io.Writer, groups []lvar.Group) error {
	for i, g := range groups {
		paint := color.New(palette[i%len(palette)], color.Bold)

		if _, err := fmt.Fprintf(w, "%s %d\n", paint.Sprint(g.Name), len(g.Occurrences)); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}

	return nil
}
