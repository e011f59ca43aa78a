// Package feed generates the site's Atom feed from dated posts.
package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	atom "github.com/thomas11/atomgenerator"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/logfields"
)

// ErrNoEntries is returned when there is no dated entry to take the feed date from.
var ErrNoEntries = errors.New("feed has no dated entries")

// Options describes the feed itself.
type Options struct {
	Title   string
	BaseURL string
	Author  string
}

// Entry is one post in the feed.
type Entry struct {
	Title      string
	URL        string // relative to BaseURL
	Summary    string
	Content    string
	Date       time.Time
	Categories []string
}

// Generate renders entries as Atom XML, newest first. The feed date is the
// newest entry's date so that unchanged sites produce identical feeds.
func Generate(opts Options, entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	base := opts.BaseURL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}

	feed := atom.Feed{
		Title:   opts.Title,
		Link:    base,
		PubDate: sorted[0].Date,
	}
	author := opts.Author
	if author == "" {
		author = opts.Title
	}
	feed.AddAuthor(atom.Author{Name: author, Uri: base})

	for _, e := range sorted {
		entry := &atom.Entry{
			Title:       e.Title,
			Description: e.Summary,
			Link:        base + strings.TrimPrefix(e.URL, "/"),
			PubDate:     e.Date,
			Content:     e.Content,
		}
		for _, c := range e.Categories {
			entry.AddCategory(atom.Category{Term: c})
		}
		feed.AddEntry(entry)
	}

	if errs := feed.Validate(); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("Atom feed validation", logfields.Error(e))
		}
		return nil, fmt.Errorf("invalid atom feed: %w", errs[0])
	}

	return feed.GenXml()
}

// Write generates the feed and writes it to path.
func Write(path string, opts Options, entries []Entry) error {
	data, err := Generate(opts, entries)
	if err != nil {
		return berrors.Wrap(err, berrors.CategoryRender, berrors.SeverityFatal, "generate feed").
			WithContext("output", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return berrors.FileSystem("mkdir", filepath.Dir(path), err)
	}
	// #nosec G306 -- published feed is world-readable
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return berrors.FileSystem("write", path, err)
	}
	slog.Info("Wrote atom feed", logfields.Path(path), logfields.Count(len(entries)))
	return nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", time.DateOnly}

// ParseDate interprets a post's date field. YAML timestamps arrive as
// time.Time; strings are accepted in RFC 3339 or YYYY-MM-DD form.
func ParseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(d)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
