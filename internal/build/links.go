package build

import (
	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/linkverify"
)

// checkLinks verifies internal links of every written page. Broken links are
// warnings unless strict_links is set.
func (b *Builder) checkLinks(report *Report) error {
	site := b.site
	pages := make([]string, 0, len(site.Posts)+1)
	for _, post := range site.Posts {
		pages = append(pages, post.URL)
	}
	pages = append(pages, IndexFile)

	checker := &linkverify.Checker{PublishDir: site.Build.PublishDir, BaseURL: site.Build.Feed.BaseURL}
	broken, err := checker.CheckPages(pages)
	if err != nil {
		return err
	}

	report.BrokenLinks = broken
	for _, bl := range broken {
		report.Warnings = append(report.Warnings, bl.String())
	}
	b.recorder.AddBrokenLinks(len(broken))

	if site.Build.StrictLinks && len(broken) > 0 {
		return berrors.BrokenLinks(len(broken))
	}
	return nil
}
