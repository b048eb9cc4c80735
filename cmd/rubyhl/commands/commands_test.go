package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
)

const sampleSource = "total = 0\n[1, 2].each { |n| total += n }\n"

// run executes a root command carrying the given subcommands with a quiet
// config file, so the user's .rubyhl.yaml never leaks into tests.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "rubyhl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: error\n"), 0o600))

	root := &cobra.Command{Use: "rubyhl", SilenceUsage: true, SilenceErrors: true}
	AddPersistentFlags(root)
	root.AddCommand(NewExtractCommand(), NewHighlightCommand(), NewTreeCommand(), NewREPLCommand())

	var stdout, stderr bytes.Buffer

	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--" + FlagConfig, cfgPath}, args...))

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func writeRuby(t *testing.T, dir, name, src string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	return path
}

func TestExtract_Stdin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "parser columns",
			args: []string{"extract"},
			want: "-:1:0: total\n-:2:15: n\n-:2:18: total\n-:2:27: n\n",
		},
		{
			name: "editor columns",
			args: []string{"--column-base", "1", "extract", "-"},
			want: "-:1:1: total\n-:2:16: n\n-:2:19: total\n-:2:28: n\n",
		},
		{
			name: "vim payload",
			args: []string{"--column-base", "1", "extract", "--format", "vim"},
			want: "[[\"total\", 1, 1], [\"n\", 2, 16], [\"total\", 2, 19], [\"n\", 2, 28]]\n",
		},
		{
			name: "vim payload is editor based by default",
			args: []string{"extract", "--format", "vim"},
			want: "[[\"total\", 1, 1], [\"n\", 2, 16], [\"total\", 2, 19], [\"n\", 2, 28]]\n",
		},
		{
			name: "vim payload keeps an explicit base",
			args: []string{"--column-base", "0", "extract", "-f", "vim"},
			want: "[[\"total\", 1, 0], [\"n\", 2, 15], [\"total\", 2, 18], [\"n\", 2, 27]]\n",
		},
	}

	for _, tt := range tests {
		stdout, _, err := run(t, sampleSource, tt.args...)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, stdout, tt.name)
	}
}

func TestExtract_DirectoryAndSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRuby(t, dir, "lib/a.rb", "a = 1\n")
	writeRuby(t, dir, "lib/b.rb", "b = 2\nb\n")
	writeRuby(t, dir, "README.md", "# docs\n")
	writeRuby(t, dir, "vendor/bundle/c.rb", "c = 3\n")

	stdout, stderr, err := run(t, "", "extract", "--summary", "--format", "json", dir)
	require.NoError(t, err)

	assert.Contains(t, stdout, filepath.Join(dir, "lib", "a.rb"))
	assert.Contains(t, stdout, filepath.Join(dir, "lib", "b.rb"))
	assert.NotContains(t, stdout, "README.md")
	assert.NotContains(t, stdout, "c.rb")
	assert.Contains(t, stderr, "2 files, 3 lines, 14 B read, 3 occurrences, 0 failed")
}

func TestExtract_Failures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeRuby(t, dir, "good.rb", "g = 1\n")
	bad := writeRuby(t, dir, "bad.rb", "def (\n")

	stdout, _, err := run(t, "", "extract", good, bad)
	require.ErrorIs(t, err, ErrExtractFailed)
	assert.Contains(t, stdout, good+":1:0: g\n")
	assert.Contains(t, stdout, bad+": error: ")

	_, _, err = run(t, "", "extract", "--format", "xml", good)
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = run(t, "", "--backend", "prism", "extract", good)
	require.Error(t, err)

	_, _, err = run(t, "", "extract", filepath.Join(dir, "missing.rb"))
	require.Error(t, err)
}

func TestExtract_ShowWarnings(t *testing.T) {
	t.Parallel()

	src := "x = 1\nputs x\n"

	quiet, _, err := run(t, src, "extract")
	require.NoError(t, err)
	assert.NotContains(t, quiet, "warning")

	loud, _, err := run(t, src, "--show-warnings", "extract")
	require.NoError(t, err)
	assert.Equal(t, quiet, loud, "supported code produces no warnings")
}

func TestTree_PrintsSexp(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "x = 1\n", "tree")
	require.NoError(t, err)
	assert.Equal(t, "[:program, [[:assign, [:var_field, [:@ident, \"x\", [1, 0]]], [:@int, \"1\", [1, 4]]]]]\n", stdout)

	_, _, err = run(t, "def (\n", "tree")
	require.Error(t, err)
}

func TestHighlight_NoColor(t *testing.T) {
	stdout, stderr, err := run(t, sampleSource, "highlight", "--no-color", "--legend")
	require.NoError(t, err)
	assert.Equal(t, sampleSource, stdout)
	assert.Equal(t, "total 2\nn 2\n", stderr)
}

func TestHighlight_Color(t *testing.T) {
	color.NoColor = false //nolint:reassign // restored below

	t.Cleanup(func() { color.NoColor = true }) //nolint:reassign // tests never write to a terminal

	groups := lvar.GroupByName([]lvar.Occurrence{
		{Name: "a", Line: 1, Column: 0},
		{Name: "b", Line: 1, Column: 4},
		{Name: "a", Line: 2, Column: 0},
	})

	var buf bytes.Buffer

	require.NoError(t, writeHighlighted(&buf, "a = b\na\n", groups))

	cyan := color.New(color.FgCyan, color.Bold).Sprint("a")
	magenta := color.New(color.FgMagenta, color.Bold).Sprint("b")

	assert.Equal(t, cyan+" = "+magenta+"\n"+cyan+"\n", buf.String())
}

func TestInputPaths(t *testing.T) {
	t.Parallel()

	paths, err := inputPaths(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{stdinPath}, paths)

	dir := t.TempDir()
	file := writeRuby(t, dir, "x.rb", "x = 1\n")

	paths, err = inputPaths([]string{file, stdinPath})
	require.NoError(t, err)
	assert.Equal(t, []string{file, stdinPath}, paths)
}

func TestRegularFile(t *testing.T) {
	t.Parallel()

	_, err := regularFile(" ")
	require.ErrorIs(t, err, ErrEmptyPath)

	_, err = regularFile("a\x00b")
	require.ErrorIs(t, err, ErrPathContainsNUL)

	_, err = regularFile(t.TempDir())
	require.ErrorIs(t, err, ErrDirectoryPath)
}

func TestExtract_WatchRejectsStdin(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, sampleSource, "extract", "--watch")
	require.ErrorIs(t, err, ErrWatchStdin)

	_, _, err = run(t, sampleSource, "extract", "-w", "-")
	require.ErrorIs(t, err, ErrWatchStdin)
}

func TestWatchSet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lib := writeRuby(t, dir, "proj/lib/a.rb", "a = 1\n")
	script := writeRuby(t, dir, "bin/tool.rb", "t = 1\n")
	other := writeRuby(t, dir, "bin/other.rb", "o = 1\n")
	notes := writeRuby(t, dir, "proj/notes.txt", "n\n")

	root := filepath.Join(dir, "proj")

	ws, err := newWatchSet([]string{root, script}, []string{lib, script})
	require.NoError(t, err)

	assert.True(t, ws.dirs[root])
	assert.True(t, ws.dirs[filepath.Dir(lib)])
	assert.True(t, ws.dirs[filepath.Dir(script)])

	assert.True(t, ws.wants(lib))
	assert.True(t, ws.wants(script))
	assert.False(t, ws.wants(other), "sibling of a watched file")
	assert.False(t, ws.wants(notes), "not Ruby")

	_, err = newWatchSet([]string{stdinPath}, nil)
	require.ErrorIs(t, err, ErrWatchStdin)
}

func TestWatchLoop(t *testing.T) {
	t.Parallel()

	events := make(chan fsnotify.Event, 4)
	errs := make(chan error, 1)

	events <- fsnotify.Event{Name: "a.rb", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "a.rb", Op: fsnotify.Chmod}
	events <- fsnotify.Event{Name: "skip.rb", Op: fsnotify.Create}
	events <- fsnotify.Event{Name: "b.rb", Op: fsnotify.Create}
	errs <- errors.New("overflow")

	var changed []string

	done := make(chan error, 1)

	go func() {
		done <- watchLoop(context.Background(), events, errs,
			func(path string) bool { return path != "skip.rb" },
			func(path string) {
				changed = append(changed, path)
				if len(changed) == 2 {
					close(events)
				}
			},
			slog.New(slog.DiscardHandler))
	}()

	require.NoError(t, <-done)
	assert.Equal(t, []string{"a.rb", "b.rb"}, changed)
}

func TestWatchLoop_ContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := watchLoop(ctx, make(chan fsnotify.Event), make(chan error), nil, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
}

func TestREPL_Snippets(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"x = 1",
		"def m(a)",
		"  a",
		"end",
		":tree",
		"y = 2",
		":tree",
		":bogus",
		"puts 1",
		"def (",
		"",
		":quit",
		"z = 3",
	}, "\n") + "\n"

	stdout, _, err := run(t, input, "repl")
	require.NoError(t, err)

	want := strings.Join([]string{
		"1:0 x",
		"1:6 a",
		"2:2 a",
		"tree output on",
		`[:program, [[:assign, [:var_field, [:@ident, "y", [1, 0]]], [:@int, "2", [1, 4]]]]]`,
		"1:0 y",
		"tree output off",
		"unknown command :bogus (try :help)",
		"(no local variables)",
	}, "\n") + "\n"

	assert.True(t, strings.HasPrefix(stdout, want), stdout)
	assert.Contains(t, stdout, "error: ")
	assert.NotContains(t, stdout, "z", "input after :quit is ignored")
}

func TestREPL_FlushesAtEOF(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "v = 1\nv", "--column-base", "1", "repl")
	require.NoError(t, err)
	assert.Equal(t, "1:1 v\n(no local variables)\n", stdout)
}
