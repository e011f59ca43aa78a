package render

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
)

//go:embed starter
var starterFS embed.FS

// WriteStarter copies the bundled starter templates into dir. Existing files
// are left alone unless force is set. It returns the paths written.
func WriteStarter(dir string, force bool) ([]string, error) {
	var written []string
	err := fs.WalkDir(starterFS, "starter", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel("starter", filepath.FromSlash(p))
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, rel)

		if _, err := os.Stat(dst); err == nil && !force {
			return nil
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return berrors.FileSystem("stat", dst, err)
		}

		data, err := starterFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return berrors.FileSystem("mkdir", filepath.Dir(dst), err)
		}
		// #nosec G306 -- templates are not secret
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return berrors.FileSystem("write", dst, err)
		}
		written = append(written, dst)
		return nil
	})
	return written, err
}
