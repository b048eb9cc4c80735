package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
	"github.com/Sumatoshi-tech/rubyhl/pkg/source"
)

const (
	replPrompt      = "rubyhl> "
	replContinue    = "......  "
	replHistoryFile = ".rubyhl_history"
)

const replHelp = `Enter Ruby code; it is extracted as soon as it parses.
A blank line forces extraction of an unfinished snippet.
  :tree   toggle printing the s-expression
  :help   show this text
  :quit   leave (also Ctrl-D)
`

// lineReader is the part of liner.State the loop uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanReader feeds the loop from a non-terminal stdin.
type scanReader struct {
	sc *bufio.Scanner
}

func (r scanReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}

	if err := r.sc.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (scanReader) AppendHistory(string) {}

// NewREPLCommand creates the repl subcommand.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Try the extractor interactively",
		Long: `Read Ruby snippets and print the local variable occurrences in each.

Lines accumulate until the snippet parses, so multi-line definitions can
be typed naturally. History is kept in ~/` + replHistoryFile + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer e.close()

			if f, ok := cmd.InOrStdin().(*os.File); ok && isTerminal(f) {
				return runInteractive(cmd, e)
			}

			r := scanReader{sc: bufio.NewScanner(cmd.InOrStdin())}

			return replLoop(cmd.Context(), r, cmd.OutOrStdout(), e)
		},
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()

	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func runInteractive(cmd *cobra.Command, e *env) error {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)

	if path := replHistoryPath(); path != "" {
		if f, err := os.Open(path); err == nil {
			_, _ = state.ReadHistory(f) //nolint:errcheck // stale history is not fatal.
			f.Close()
		}

		defer func() {
			if f, err := os.Create(path); err == nil {
				_, _ = state.WriteHistory(f) //nolint:errcheck // best effort.
				f.Close()
			}
		}()
	}

	fmt.Fprint(cmd.OutOrStdout(), replHelp) //nolint:errcheck // terminal output.

	return replLoop(cmd.Context(), state, cmd.OutOrStdout(), e)
}

func replHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}

	return filepath.Join(home, replHistoryFile)
}

// replLoop reads snippets from r until EOF or :quit.
func replLoop(ctx context.Context, r lineReader, out io.Writer, e *env) error {
	var (
		buf      strings.Builder
		showTree bool
	)

	for {
		prompt := replPrompt
		if buf.Len() > 0 {
			prompt = replContinue
		}

		line, err := r.Prompt(prompt)

		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			buf.Reset()

			continue
		case errors.Is(err, io.EOF):
			if buf.Len() > 0 {
				evalSnippet(ctx, out, e, buf.String(), showTree, true)
			}

			return nil
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}

		trimmed := strings.TrimSpace(line)

		if buf.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			switch trimmed {
			case ":quit", ":q", ":exit":
				return nil
			case ":tree":
				showTree = !showTree
				fmt.Fprintf(out, "tree output %s\n", onOff(showTree)) //nolint:errcheck // terminal output.
			case ":help":
				fmt.Fprint(out, replHelp) //nolint:errcheck // terminal output.
			default:
				fmt.Fprintf(out, "unknown command %s (try :help)\n", trimmed) //nolint:errcheck // terminal output.
			}

			continue
		}

		if trimmed == "" {
			if buf.Len() > 0 {
				evalSnippet(ctx, out, e, buf.String(), showTree, true)
				buf.Reset()
			}

			continue
		}

		buf.WriteString(line)
		buf.WriteByte('\n')

		if evalSnippet(ctx, out, e, buf.String(), showTree, false) {
			r.AppendHistory(strings.TrimRight(buf.String(), "\n"))
			buf.Reset()
		}
	}
}

// evalSnippet extracts src and prints the result. A syntax error is only
// reported when final is set; otherwise it means the snippet is unfinished.
// It reports whether src was consumed.
func evalSnippet(ctx context.Context, out io.Writer, e *env, src string, showTree, final bool) bool {
	res, err := e.service.Extract(ctx, []byte(src))
	if err != nil {
		if source.IsSyntaxError(err) && !final {
			return false
		}

		fmt.Fprintf(out, "error: %v\n", err) //nolint:errcheck // terminal output.

		return true
	}

	if showTree {
		if tree, treeErr := e.provider.Tree(ctx, []byte(src)); treeErr == nil {
			fmt.Fprintln(out, tree.String()) //nolint:errcheck // terminal output.
		}
	}

	occs := e.rebase(res.Occurrences)
	if len(occs) == 0 {
		fmt.Fprintln(out, "(no local variables)") //nolint:errcheck // terminal output.
	}

	for _, o := range occs {
		fmt.Fprintf(out, "%d:%d %s\n", o.Line, o.Column, o.Name) //nolint:errcheck // terminal output.
	}

	if e.cfg.Extract.ShowWarnings {
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w) //nolint:errcheck // terminal output.
		}
	}

	return true
}

func onOff(b bool) string {
	if b {
		return "on"
	}

	return "off"
}
