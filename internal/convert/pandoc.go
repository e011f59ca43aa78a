package convert

import (
	"context"
	"os"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
)

// PlaceholderTitle satisfies pandoc's requirement for a document title when a
// template is applied. The page title itself comes from the post template.
const PlaceholderTitle = "blogbuild"

// Pandoc converts markdown and notebooks by running the pandoc executable.
type Pandoc struct {
	Binary   string
	Template string
}

// NewPandoc returns a pandoc backend. An empty template emits a bare fragment.
func NewPandoc(binary, template string) *Pandoc {
	if binary == "" {
		binary = BackendPandoc
	}
	return &Pandoc{Binary: binary, Template: template}
}

func (p *Pandoc) Name() string { return BackendPandoc }

func (p *Pandoc) Supports(kind SourceKind) bool {
	return kind == KindMarkdown || kind == KindNotebook
}

// Args returns the pandoc command line for kind. The source is read from stdin.
func (p *Pandoc) Args(kind SourceKind) []string {
	args := []string{"--from", kind.pandocFormat(), "--to", "html5", "--mathjax"}
	if p.Template != "" {
		args = append(args, "--template", p.Template)
	}
	return append(args, "--metadata", "pagetitle="+PlaceholderTitle)
}

func (p *Pandoc) Convert(ctx context.Context, src string, kind SourceKind) (string, error) {
	if !p.Supports(kind) {
		return "", berrors.UnsupportedByBackend(src, kind.String(), p.Name())
	}

	f, err := os.Open(src)
	if err != nil {
		return "", berrors.FileSystem("open", src, err)
	}
	defer func() { _ = f.Close() }()

	return runTool(ctx, p.Binary, p.Args(kind), f)
}
