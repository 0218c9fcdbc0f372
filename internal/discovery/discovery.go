// Package discovery locates TensorBoard event files inside experiment
// output trees.
package discovery

import (
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/signalnine/highwin/internal/config"
	"github.com/signalnine/highwin/internal/pathseg"
)

// EventFiles walks root, following symlinks, and yields every file whose
// directory ends in layout.TBSuffix and whose name contains
// layout.EventMarker. Directories named layout.CheckpointDir are skipped.
// Unreadable subdirectories are logged and skipped; an unreadable root is
// yielded as an error.
func EventFiles(root string, layout config.Layout, logger *slog.Logger) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		info, err := os.Stat(root)
		if err != nil {
			yield("", fmt.Errorf("reading log dir: %w", err))
			return
		}
		w := &walker{layout: layout, logger: logger, yield: yield}
		w.walk(root, []os.FileInfo{info})
	}
}

type walker struct {
	layout config.Layout
	logger *slog.Logger
	yield  func(string, error) bool
}

// walk visits dir; ancestors holds the stat of every directory on the
// current path so symlink cycles are not re-entered. It returns false
// once the consumer stops.
func (w *walker) walk(dir string, ancestors []os.FileInfo) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if len(ancestors) == 1 {
			w.yield("", fmt.Errorf("reading log dir: %w", err))
			return false
		}
		w.logger.Warn("skipping unreadable dir", "path", dir, "error", err)
		return true
	}

	var subdirs []string
	isTB := pathseg.Split(dir).HasSuffix(w.layout.TBSuffix...)
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				w.logger.Warn("skipping dangling symlink", "path", path, "error", err)
				continue
			}
			isDir = target.IsDir()
		}
		if isDir {
			if e.Name() != w.layout.CheckpointDir {
				subdirs = append(subdirs, path)
			}
			continue
		}
		if isTB && strings.Contains(e.Name(), w.layout.EventMarker) {
			if !w.yield(path, nil) {
				return false
			}
		}
	}

	for _, sub := range subdirs {
		info, err := os.Stat(sub)
		if err != nil {
			w.logger.Warn("skipping unreadable dir", "path", sub, "error", err)
			continue
		}
		if onChain(info, ancestors) {
			w.logger.Warn("skipping symlink cycle", "path", sub)
			continue
		}
		if !w.walk(sub, append(ancestors, info)) {
			return false
		}
	}
	return true
}

func onChain(info os.FileInfo, ancestors []os.FileInfo) bool {
	for _, a := range ancestors {
		if os.SameFile(info, a) {
			return true
		}
	}
	return false
}
