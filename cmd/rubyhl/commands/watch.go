package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rubyhl/pkg/source"
)

// ErrWatchStdin is returned when --watch is combined with standard input.
var ErrWatchStdin = errors.New("--watch needs file or directory arguments")

// watchSet decides which changed paths are re-extracted: the files named on
// the command line and Ruby files below the directories named there.
type watchSet struct {
	files map[string]bool
	roots []string
	dirs  map[string]bool
}

func newWatchSet(args, discovered []string) (*watchSet, error) {
	ws := &watchSet{files: map[string]bool{}, dirs: map[string]bool{}}

	for _, arg := range args {
		if arg == stdinPath {
			return nil, ErrWatchStdin
		}

		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			ws.roots = append(ws.roots, abs)
			ws.dirs[abs] = true

			continue
		}

		ws.files[abs] = true
		ws.dirs[filepath.Dir(abs)] = true
	}

	if len(ws.files) == 0 && len(ws.roots) == 0 {
		return nil, ErrWatchStdin
	}

	// fsnotify is not recursive: every directory that held a source is added.
	for _, path := range discovered {
		if abs, err := filepath.Abs(path); err == nil {
			ws.dirs[filepath.Dir(abs)] = true
		}
	}

	return ws, nil
}

func (ws *watchSet) wants(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	if ws.files[abs] {
		return true
	}

	for _, root := range ws.roots {
		if strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return source.IsRuby(abs)
		}
	}

	return false
}

// watchInputs re-extracts and renders each watched file when it is written,
// until the command context is done.
func watchInputs(cmd *cobra.Command, e *env, args, discovered []string, format string) error {
	ws, err := newWatchSet(args, discovered)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	for dir := range ws.dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	e.logger.Info("watching for changes", "dirs", len(ws.dirs))

	onChange := func(path string) {
		res, _ := extractOne(cmd, e, path)

		if err := render(cmd.OutOrStdout(), format, []fileResult{res}); err != nil {
			e.logger.Warn("render failed", "path", path, "error", err)
		}
	}

	return watchLoop(cmd.Context(), watcher.Events, watcher.Errors, ws.wants, onChange, e.logger)
}

// watchLoop dispatches write and create events for wanted paths to onChange.
// It returns when ctx is done or either channel closes.
func watchLoop(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	wants func(string) bool,
	onChange func(string),
	logger *slog.Logger,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			if !wants(ev.Name) {
				continue
			}

			logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			onChange(ev.Name)
		case err, ok := <-errs:
			if !ok {
				return nil
			}

			logger.Warn("watcher error", "error", err)
		}
	}
}
