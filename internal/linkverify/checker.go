// Package linkverify checks that internal links in the published site resolve
// to files in the publish directory.
package linkverify

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/blogbuild/blogbuild/internal/logfields"
)

// BrokenLink is an internal link whose target does not exist.
type BrokenLink struct {
	// Page is the referring page, relative to the publish directory.
	Page string `json:"page"`
	URL  string `json:"url"`
	Tag  string `json:"tag"`
}

func (b BrokenLink) String() string {
	return fmt.Sprintf("%s: broken %s link %q", b.Page, b.Tag, b.URL)
}

// Checker resolves internal links against a publish directory.
type Checker struct {
	PublishDir string
	// BaseURL is the public site URL. Absolute links to its host are treated
	// as internal and resolved relative to its path.
	BaseURL string
}

// CheckPages extracts links from pages (paths relative to PublishDir) and
// returns those that do not resolve, in page order.
func (c *Checker) CheckPages(pages []string) ([]BrokenLink, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}

	var broken []BrokenLink
	for _, page := range pages {
		links, err := ExtractLinks(filepath.Join(c.PublishDir, filepath.FromSlash(page)), c.BaseURL)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			if !ShouldVerifyLink(link) {
				continue
			}
			if c.resolves(page, link.URL, base) {
				continue
			}
			b := BrokenLink{Page: page, URL: link.URL, Tag: link.Tag}
			slog.Warn("Broken internal link", logfields.Path(page), logfields.URL(link.URL))
			broken = append(broken, b)
		}
	}
	return broken, nil
}

// resolves reports whether target, found on page, names an existing file.
func (c *Checker) resolves(page, target string, base *url.URL) bool {
	rel, ok := localPath(page, target, base)
	if !ok {
		return false
	}

	full := filepath.Join(c.PublishDir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err := os.Stat(filepath.Join(full, "index.html"))
		return err == nil
	}
	return true
}

// localPath maps a link to a slash-separated path relative to the publish
// directory. It fails for links that escape the directory.
func localPath(page, target string, base *url.URL) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	p, err := url.PathUnescape(u.Path)
	if err != nil {
		return "", false
	}

	switch {
	case u.Host != "" || strings.HasPrefix(p, "/"):
		prefix := "/"
		if base != nil && base.Path != "" {
			prefix = strings.TrimSuffix(base.Path, "/") + "/"
		}
		switch {
		case p+"/" == prefix:
			p = ""
		case strings.HasPrefix(p, prefix):
			p = strings.TrimPrefix(p, prefix)
		default:
			return "", false
		}
	case p == "":
		// Query-only or fragment-only link to the page itself.
		return page, true
	default:
		p = path.Join(path.Dir(page), p)
		if p == ".." || strings.HasPrefix(p, "../") {
			return "", false
		}
	}

	p = path.Clean("/" + p)[1:]
	if p == "" {
		return "index.html", true
	}
	if strings.HasSuffix(u.Path, "/") {
		p += "/index.html"
	}
	return p, true
}
