package linkverify

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
)

// Link represents an extracted link from HTML content.
type Link struct {
	URL        string // The URL or path
	Text       string // Link text/title
	Tag        string // HTML tag (a, img, script, link, etc.)
	Attribute  string // Attribute containing the link (href, src, etc.)
	IsInternal bool   // True if link is internal to the site
}

// ExtractLinks extracts all links from an HTML file.
func ExtractLinks(htmlPath string, baseURL string) ([]*Link, error) {
	file, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, berrors.FileSystem("open", htmlPath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	return ExtractLinksFromReader(file, baseURL)
}

// ExtractLinksFromReader extracts all links from an HTML reader.
func ExtractLinksFromReader(r io.Reader, baseURL string) ([]*Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, berrors.Wrap(err, berrors.CategoryValidation, berrors.SeverityError, "failed to parse HTML")
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, berrors.Wrap(err, berrors.CategoryValidation, berrors.SeverityError, "invalid base URL").
			WithContext("base_url", baseURL)
	}

	var links []*Link
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if link := elementLink(n, base); link != nil {
				links = append(links, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}

	extract(doc)
	return links, nil
}

// linkAttrs maps elements to the attribute carrying their link.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"video":  "src",
	"audio":  "src",
	"source": "src",
	"iframe": "src",
}

func elementLink(n *html.Node, base *url.URL) *Link {
	attr, ok := linkAttrs[n.Data]
	if !ok {
		return nil
	}
	target := getAttr(n, attr)
	if target == "" {
		return nil
	}

	var text string
	switch n.Data {
	case "a":
		text = extractText(n)
	case "img":
		text = getAttr(n, "alt")
	case "link":
		text = getAttr(n, "rel")
	}

	return &Link{
		URL:        target,
		Text:       text,
		Tag:        n.Data,
		Attribute:  attr,
		IsInternal: isInternalLink(target, base),
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// extractText extracts text content from an HTML node and its children.
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}

	return strings.TrimSpace(text.String())
}

var specialSchemes = []string{"mailto:", "tel:", "javascript:", "data:"}

func hasSpecialScheme(link string) bool {
	for _, s := range specialSchemes {
		if strings.HasPrefix(link, s) {
			return true
		}
	}
	return false
}

// isInternalLink determines if a URL points into the site.
func isInternalLink(linkURL string, baseURL *url.URL) bool {
	if hasSpecialScheme(linkURL) {
		return false
	}

	u, err := url.Parse(linkURL)
	if err != nil {
		return false
	}

	// Relative URLs are internal
	if u.Scheme == "" && u.Host == "" {
		return true
	}

	return baseURL != nil && baseURL.Host != "" && u.Host == baseURL.Host
}

// ShouldVerifyLink reports whether a link refers to something that can be
// checked on disk.
func ShouldVerifyLink(link *Link) bool {
	if link.URL == "" || strings.HasPrefix(link.URL, "#") {
		return false
	}
	return link.IsInternal && !hasSpecialScheme(link.URL)
}
