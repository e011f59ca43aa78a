package build

import (
	"os"
	"path"
	"strings"

	"github.com/inful/mdfp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/blogbuild/blogbuild/internal/convert"
	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/frontmatter"
)

type sourceMeta struct {
	fields      map[string]any
	fingerprint string
}

// readSource reads the front matter of markdown sources and fingerprints the
// source content. Notebooks carry no front matter.
func readSource(src string, kind convert.SourceKind) (sourceMeta, error) {
	content, err := os.ReadFile(src)
	if err != nil {
		return sourceMeta{}, berrors.FileSystem("read", src, err)
	}

	if kind != convert.KindMarkdown {
		return sourceMeta{
			fields:      map[string]any{},
			fingerprint: mdfp.CalculateFingerprintFromParts("", string(content)),
		}, nil
	}

	doc := frontmatter.Split(content)
	fields, err := doc.Fields()
	if err != nil {
		return sourceMeta{}, berrors.Wrap(err, berrors.CategoryValidation, berrors.SeverityFatal, "invalid front matter").
			WithContext("path", src)
	}

	fm := strings.TrimSuffix(strings.ReplaceAll(string(doc.Raw), "\r\n", "\n"), "\n")
	return sourceMeta{
		fields:      fields,
		fingerprint: mdfp.CalculateFingerprintFromParts(fm, string(doc.Body)),
	}, nil
}

// DeriveTitle turns a source path into a display title: "posts/my-first_post.md"
// becomes "My First Post".
func DeriveTitle(src string) string {
	base := path.Base(strings.ReplaceAll(src, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cases.Title(language.English).String(strings.Join(strings.Fields(base), " "))
}
