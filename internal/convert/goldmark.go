package convert

import (
	"bytes"
	"context"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/frontmatter"
)

// Goldmark renders markdown in-process. It cannot read notebooks.
type Goldmark struct {
	md goldmark.Markdown
}

func NewGoldmark() *Goldmark {
	return &Goldmark{md: goldmark.New(
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
	)}
}

func (g *Goldmark) Name() string { return BackendGoldmark }

func (g *Goldmark) Supports(kind SourceKind) bool { return kind == KindMarkdown }

func (g *Goldmark) Convert(ctx context.Context, src string, kind SourceKind) (string, error) {
	if !g.Supports(kind) {
		return "", berrors.UnsupportedByBackend(src, kind.String(), g.Name())
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := os.ReadFile(src)
	if err != nil {
		return "", berrors.FileSystem("read", src, err)
	}
	doc := frontmatter.Split(content)

	var buf bytes.Buffer
	if err := g.md.Convert(doc.Body, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
