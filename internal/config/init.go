package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const exampleConfig = `# blogbuild site configuration.
# Every top-level key except "build" is passed to templates verbatim.
title: My Notebook Blog
description: Notes, experiments and notebooks.

posts:
  - src: posts/hello.md
    url: hello.html
    title: Hello, world
  # - src: notebooks/analysis.ipynb
  #   url: analysis.html

build:
  publish_dir: docs
  template_dir: templates
  preserve: [CNAME, static]
  # repository_url: https://github.com/you/you.github.io
  repository_branch: master
  backends:
    markdown: pandoc
    notebook: pandoc
  pandoc:
    binary: pandoc
    # template: templates/pandoc_post.html
  # nbconvert:
  #   temp_dir: .cache/nbconvert
`

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
