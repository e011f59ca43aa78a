package build

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/blogbuild/blogbuild/internal/feed"
	"github.com/blogbuild/blogbuild/internal/logfields"
)

// FeedSkippedWarning is reported when the feed is enabled but no post carries a date.
const FeedSkippedWarning = "feed skipped: no post carries a date"

// writeFeed writes the Atom feed and records its path in report. Without a
// dated post there is nothing to date the feed by, so it is skipped with a
// warning.
func (b *Builder) writeFeed(report *Report) error {
	site := b.site
	cfg := site.Build.Feed

	title := cfg.Title
	if title == "" {
		title = stringField(site.Context, "title")
	}
	author := cfg.Author
	if author == "" {
		author = stringField(site.Context, "author")
	}

	var entries []feed.Entry
	for _, post := range site.Posts {
		date, ok := feed.ParseDate(post.Fields["date"])
		if !ok {
			continue
		}
		entries = append(entries, feed.Entry{
			Title:      stringField(post.Fields, "title"),
			URL:        post.URL,
			Summary:    stringField(post.Fields, "description"),
			Content:    fmt.Sprint(post.Fields["html"]),
			Date:       date,
			Categories: stringList(post.Fields["tags"]),
		})
	}

	path := filepath.Join(site.Build.PublishDir, filepath.FromSlash(cfg.File))
	if len(entries) == 0 {
		slog.Warn("Skipping atom feed, no dated posts", logfields.Path(path))
		report.Warnings = append(report.Warnings, FeedSkippedWarning)
		return nil
	}
	if err := feed.Write(path, feed.Options{Title: title, BaseURL: cfg.BaseURL, Author: author}, entries); err != nil {
		return err
	}
	report.Feed = path
	return nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
