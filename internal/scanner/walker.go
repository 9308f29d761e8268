// Package scanner discovers the paths of a directory tree for registration.
package scanner

import (
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Walker produces lazy, restartable walks of a directory tree.
// Symbolic links are reported but never followed.
type Walker struct {
	logger *slog.Logger
	ignore []glob.Glob
}

// NewWalker creates a walker. Entries whose base name matches one of
// ignorePatterns are skipped, and ignored directories are not descended.
func NewWalker(logger *slog.Logger, ignorePatterns []string) (*Walker, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ignore := make([]glob.Glob, 0, len(ignorePatterns))
	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		ignore = append(ignore, g)
	}

	return &Walker{logger: logger, ignore: ignore}, nil
}

// Scan yields root followed by every entry below it. Each call starts a
// fresh walk of the current tree. Entries that cannot be read are skipped.
func (w *Walker) Scan(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entry or directory: keep going with its siblings.
				w.logger.Debug("skipping unreadable entry", "path", path, "error", err)
				return nil
			}

			if path != root && w.ignored(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Walker) ignored(name string) bool {
	for _, g := range w.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}
