package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blogbuild/blogbuild/internal/config"
	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/render"
)

const samplePost = `---
description: The first post.
---
# Hello, world

This page was converted from ` + "`posts/hello.md`" + `.
`

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration and templates"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	return RunInit(root, i.Force)
}

// RunInit writes the example configuration, the starter templates and a sample
// post next to the configuration file.
func RunInit(root *CLI, force bool) error {
	out := root.stdout()
	_, _ = fmt.Fprintf(out, "Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, force); err != nil {
		return berrors.Wrap(err, berrors.CategoryConfig, berrors.SeverityFatal, "initialize configuration")
	}

	dir := filepath.Dir(root.Config)
	written, err := render.WriteStarter(filepath.Join(dir, "templates"), force)
	if err != nil {
		return err
	}

	post := filepath.Join(dir, "posts", "hello.md")
	if _, err := os.Stat(post); err != nil || force {
		if err := os.MkdirAll(filepath.Dir(post), 0o750); err != nil {
			return berrors.FileSystem("mkdir", filepath.Dir(post), err)
		}
		// #nosec G306 -- sample content is not secret
		if err := os.WriteFile(post, []byte(samplePost), 0o644); err != nil {
			return berrors.FileSystem("write", post, err)
		}
		written = append(written, post)
	}

	for _, p := range written {
		_, _ = fmt.Fprintf(out, "  created %s\n", p)
	}
	_, _ = fmt.Fprintln(out, "initialized successfully")
	return nil
}
