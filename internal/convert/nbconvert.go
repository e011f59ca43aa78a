package convert

import (
	"context"
	"encoding/json"
	"os"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/frontmatter"
	"github.com/blogbuild/blogbuild/internal/workspace"
)

// Nbconvert converts notebooks with `jupyter nbconvert`. Markdown sources are
// wrapped into a single-cell notebook first.
type Nbconvert struct {
	Binary      string
	Template    string
	TemplateDir string
	// TempDir is where synthetic notebooks are staged. Empty means os.TempDir.
	TempDir string
}

// NewNbconvert creates the backend. Synthetic notebooks are staged under
// tempDir, or os.TempDir when it is empty.
func NewNbconvert(binary, template, templateDir, tempDir string) *Nbconvert {
	if binary == "" {
		binary = "jupyter"
	}
	return &Nbconvert{Binary: binary, Template: template, TemplateDir: templateDir, TempDir: tempDir}
}

func (n *Nbconvert) Name() string { return BackendNbconvert }

func (n *Nbconvert) Supports(kind SourceKind) bool {
	return kind == KindMarkdown || kind == KindNotebook
}

// Args returns the nbconvert command line for a notebook on disk.
func (n *Nbconvert) Args(notebook string) []string {
	args := []string{"nbconvert", "--to", "html"}
	if n.Template != "" {
		args = append(args, "--template", n.Template)
	}
	if n.TemplateDir != "" {
		args = append(args, "--TemplateExporter.extra_template_basedirs="+n.TemplateDir)
	}
	return append(args, "--HTMLExporter.exclude_input_prompt=True", "--stdout", notebook)
}

func (n *Nbconvert) Convert(ctx context.Context, src string, kind SourceKind) (string, error) {
	switch kind {
	case KindNotebook:
		return runTool(ctx, n.Binary, n.Args(src), nil)
	case KindMarkdown:
		return n.convertMarkdown(ctx, src)
	default:
		return "", berrors.UnsupportedByBackend(src, kind.String(), n.Name())
	}
}

func (n *Nbconvert) convertMarkdown(ctx context.Context, src string) (string, error) {
	content, err := os.ReadFile(src)
	if err != nil {
		return "", berrors.FileSystem("read", src, err)
	}
	doc := frontmatter.Split(content)
	nb, err := MarkdownNotebook(string(doc.Body))
	if err != nil {
		return "", err
	}

	ws := workspace.NewManager(n.TempDir)
	if err := ws.Create(); err != nil {
		return "", berrors.FileSystem("create workspace", n.TempDir, err)
	}
	defer func() { _ = ws.Cleanup() }()

	path, err := ws.WriteFile("post.ipynb", nb)
	if err != nil {
		return "", berrors.FileSystem("write", "post.ipynb", err)
	}
	return runTool(ctx, n.Binary, n.Args(path), nil)
}

type notebookCell struct {
	CellType string         `json:"cell_type"`
	Metadata map[string]any `json:"metadata"`
	Source   []string       `json:"source"`
}

type notebook struct {
	Cells         []notebookCell `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

// MarkdownNotebook wraps markdown into an nbformat 4.2 notebook holding one
// markdown cell.
func MarkdownNotebook(markdown string) ([]byte, error) {
	nb := notebook{
		Cells: []notebookCell{{
			CellType: "markdown",
			Metadata: map[string]any{},
			Source:   []string{markdown},
		}},
		Metadata: map[string]any{
			"language_info": map[string]any{"name": "python"},
		},
		NBFormat:      4,
		NBFormatMinor: 2,
	}
	return json.Marshal(nb)
}
