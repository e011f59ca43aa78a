// Package frontmatter reads YAML front matter from markdown post sources.
package frontmatter

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is a markdown source split into its front matter and body.
type Document struct {
	// Raw is the front matter without delimiters. Empty when the source had none.
	Raw  []byte
	Body []byte
	Had  bool
}

// Split separates YAML front matter (`---` delimited) from the markdown body.
//
// If the content does not start with a delimiter line, or an opening `---`
// is never closed (a leading horizontal rule), Had is false and Body is the
// full input.
func Split(content []byte) Document {
	nl := newline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return Document{Body: content}
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return Document{Raw: []byte{}, Body: content[start+len(open):], Had: true}
	}

	closing := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closing)
	if idx < 0 {
		// A closing delimiter at EOF without a trailing newline still counts.
		tail := []byte(nl + "---")
		if bytes.HasSuffix(content, tail) {
			end := len(content) - len(tail) + len(nl)
			return Document{Raw: content[start:end], Body: []byte{}, Had: true}
		}
		return Document{Body: content}
	}

	return Document{
		Raw:  content[start : start+idx+len(nl)],
		Body: content[start+idx+len(closing):],
		Had:  true,
	}
}

// Fields decodes the front matter into a map. A document without front matter
// yields an empty map.
func (d Document) Fields() (map[string]any, error) {
	if len(d.Raw) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(d.Raw, &fields); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func newline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
