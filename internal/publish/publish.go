// Package publish manages the publish directory: resetting it between builds
// while keeping an allow-list of entries, and copying static asset trees in.
package publish

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/otiai10/copy"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/logfields"
)

// Reset removes every entry of dir whose name is not in keep and returns the
// removed names in sorted order. A missing dir is created. Directories not in
// keep are removed recursively; the first failure aborts the reset.
func Reset(dir string, keep []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, berrors.FileSystem("create", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, berrors.FileSystem("list", dir, err)
	}

	removed := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if slices.Contains(keep, name) {
			slog.Debug("Preserving publish entry", logfields.Path(name))
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.RemoveAll(path); err != nil {
			return removed, berrors.FileSystem("remove", path, err)
		}
		removed = append(removed, name)
	}
	sort.Strings(removed)

	slog.Info("Publish directory reset", logfields.Path(dir), logfields.Count(len(removed)))
	return removed, nil
}

// CopyStatic copies each source directory into dir under its base name.
func CopyStatic(dir string, sources []string) error {
	for _, src := range sources {
		dest := filepath.Join(dir, filepath.Base(src))
		slog.Info("Copying static directory", logfields.Source(src), logfields.Path(dest))
		if err := copy.Copy(src, dest); err != nil {
			return berrors.FileSystem("copy", src, err)
		}
	}
	return nil
}
