package commands

import (
	"fmt"

	"github.com/blogbuild/blogbuild/internal/config"
	"github.com/blogbuild/blogbuild/internal/publish"
)

// CleanCmd implements the 'clean' command: the reset step of a build on its own.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	site, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	removed, err := publish.Reset(site.Build.PublishDir, site.Build.Preserve)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(root.stdout(), "Removed %d entries from %s\n", len(removed), site.Build.PublishDir)
	return nil
}
