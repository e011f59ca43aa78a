package convert

import (
	"path/filepath"
	"strings"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
)

// SourceKind identifies the format of a post source.
type SourceKind int

const (
	KindUnknown SourceKind = iota
	KindMarkdown
	KindNotebook
)

var kindNames = map[SourceKind]string{
	KindUnknown:  "unknown",
	KindMarkdown: "markdown",
	KindNotebook: "notebook",
}

func (k SourceKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return kindNames[KindUnknown]
}

// pandocFormat is the value passed to pandoc --from.
func (k SourceKind) pandocFormat() string {
	switch k {
	case KindMarkdown:
		return "markdown"
	case KindNotebook:
		return "ipynb"
	default:
		return ""
	}
}

var extensions = map[string]SourceKind{
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".ipynb":    KindNotebook,
}

// KindOf resolves the kind of a source from its extension. Any other extension
// fails with an unsupported-source error naming the path.
func KindOf(path string) (SourceKind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if kind, ok := extensions[ext]; ok {
		return kind, nil
	}
	return KindUnknown, berrors.UnsupportedSource(path, ext)
}
