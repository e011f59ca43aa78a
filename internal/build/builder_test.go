package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogbuild/blogbuild/internal/config"
	"github.com/blogbuild/blogbuild/internal/convert"
	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/history"
	"github.com/blogbuild/blogbuild/internal/notify"
)

const (
	postTemplate  = `<html><head><title>{{.post.title}} - {{.title}}</title></head><body>{{.post.html}}<a href="{{.post.github_link}}">source</a></body></html>`
	indexTemplate = `<html><body><h1>{{.title}}</h1>{{range .posts}}<a href="{{.url}}">{{.title}}</a>{{end}}</body></html>`
)

// newSite writes files under a fresh site directory and loads its conf.yaml.
func newSite(t *testing.T, conf string, files map[string]string) *config.Site {
	t.Helper()
	dir := t.TempDir()
	all := map[string]string{
		"conf.yaml":            conf,
		"templates/post.html":  postTemplate,
		"templates/index.html": indexTemplate,
	}
	for name, content := range files {
		all[name] = content
	}
	for name, content := range all {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}

	site, err := config.Load(filepath.Join(dir, "conf.yaml"))
	require.NoError(t, err)
	return site
}

func newBuilder(t *testing.T, site *config.Site) *Builder {
	t.Helper()
	b, err := New(site)
	require.NoError(t, err)
	return b
}

func readPublished(t *testing.T, site *config.Site, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(site.Build.PublishDir, name))
	require.NoError(t, err)
	return string(data)
}

const goldmarkBuild = `
build:
  repository_url: https://github.com/ann/ann.github.io
  backends:
    markdown: goldmark
`

func TestRun_SingleMarkdownPost(t *testing.T) {
	site := newSite(t, "title: Blog\nposts:\n  - {src: a.md, url: a.html}\n"+goldmarkBuild, map[string]string{
		"a.md":           "Hello\n",
		"docs/CNAME":     "blog.example.org",
		"docs/old.html":  "stale",
		"docs/static/x":  "asset",
		"docs/old/y.txt": "stale",
	})

	report, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, []string{"old", "old.html"}, report.Removed)
	assert.NotEmpty(t, report.BuildID)

	page := readPublished(t, site, "a.html")
	assert.Equal(t,
		`<html><head><title>A - Blog</title></head><body><p>Hello</p>`+"\n"+
			`<a href="https://github.com/ann/ann.github.io/blob/master/a.md">source</a></body></html>`,
		page)

	index := readPublished(t, site, IndexFile)
	assert.Contains(t, index, `<a href="a.html">A</a>`)

	assert.Equal(t, "blog.example.org", readPublished(t, site, "CNAME"))
	assert.Equal(t, "asset", readPublished(t, site, "static/x"))
	assert.NoFileExists(t, filepath.Join(site.Build.PublishDir, "old.html"))

	require.Len(t, report.Posts, 1)
	p := report.Posts[0]
	assert.Equal(t, "markdown", p.Kind)
	assert.Equal(t, convert.BackendGoldmark, p.Backend)
	assert.NotEmpty(t, p.Fingerprint)
	assert.True(t, p.Changed)
	assert.Equal(t, int64(len(page)), p.Bytes)
}

func TestRun_EmptyPostList(t *testing.T) {
	site := newSite(t, "title: Blog\nposts: []\n"+goldmarkBuild, map[string]string{
		"docs/leftover.html": "stale",
		"docs/CNAME":         "blog.example.org",
	})

	report, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"leftover.html"}, report.Removed)
	assert.Empty(t, report.Posts)
	assert.Equal(t, "<html><body><h1>Blog</h1></body></html>", readPublished(t, site, IndexFile))

	entries, err := os.ReadDir(site.Build.PublishDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"CNAME", IndexFile}, names)
}

func TestRun_Deterministic(t *testing.T) {
	conf := "title: Blog\nposts:\n  - {src: a.md, url: a.html, date: 2024-03-05}\n  - {src: posts/b-side.md, url: b.html}\n" +
		goldmarkBuild + "  feed:\n    enabled: true\n    base_url: https://ann.github.io/\n"
	site := newSite(t, conf, map[string]string{
		"a.md":            "# A\n\nText with a [link](b.html).\n",
		"posts/b-side.md": "---\ntags: [go]\n---\nB\n",
	})

	snapshot := func() map[string]string {
		out := map[string]string{}
		require.NoError(t, filepath.WalkDir(site.Build.PublishDir, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, err := os.ReadFile(p)
			out[strings.TrimPrefix(p, site.Build.PublishDir)] = string(data)
			return err
		}))
		return out
	}

	_, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)
	first := snapshot()

	again, err := config.Load(site.Path)
	require.NoError(t, err)
	_, err = newBuilder(t, again).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, snapshot())
	assert.Len(t, first, 4, "two posts, index and feed")
}

func TestRun_UnsupportedExtensionNamesPath(t *testing.T) {
	site := newSite(t, "posts:\n  - {src: notes/todo.txt, url: todo.html}\n"+goldmarkBuild, map[string]string{
		"notes/todo.txt": "x",
	})

	report, err := newBuilder(t, site).Run(context.Background())
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryUnsupported))
	assert.Contains(t, err.Error(), "todo.txt")
	assert.Equal(t, StatusFailed, report.Status)
	assert.NoFileExists(t, filepath.Join(site.Build.PublishDir, IndexFile))
}

func TestRun_MissingSource(t *testing.T) {
	site := newSite(t, "posts:\n  - {src: gone.md, url: gone.html}\n"+goldmarkBuild, nil)

	_, err := newBuilder(t, site).Run(context.Background())
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryFileSystem))
	assert.Contains(t, err.Error(), "gone.md")
}

func TestRun_PandocFailureAborts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script converters need a POSIX shell")
	}
	site := newSite(t, `posts:
  - {src: a.md, url: a.html}
  - {src: b.md, url: b.html}
build:
  repository_url: https://github.com/ann/ann.github.io
`, map[string]string{
		"a.md": "A",
		"b.md": "B",
	})
	tool := filepath.Join(site.Dir, "fake-pandoc")
	// #nosec G306 -- test file needs to be executable
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\necho 'pandoc: cannot parse' >&2\nexit 64\n"), 0o700))
	site.Build.Pandoc.Binary = tool

	report, err := newBuilder(t, site).Run(context.Background())
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryConversion))
	assert.Contains(t, err.Error(), "pandoc: cannot parse")

	be, ok := berrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "a.html", be.Context["post"])
	assert.Empty(t, report.Posts)
	assert.NoFileExists(t, filepath.Join(site.Build.PublishDir, "b.html"))
}

func TestRun_PandocBackend(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script converters need a POSIX shell")
	}
	site := newSite(t, "title: Blog\nposts:\n  - {src: nb.ipynb, url: nb.html, title: Notebook}\n"+
		"build:\n  repository_url: https://github.com/ann/ann.github.io\n", map[string]string{
		"nb.ipynb": `{"cells": []}`,
	})
	tool := filepath.Join(site.Dir, "fake-pandoc")
	script := "#!/bin/sh\nprintf '<div class=\"jp-InputPrompt\">In [1]:</div><p>from %s</p>' \"$2\"\n"
	// #nosec G306 -- test file needs to be executable
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o700))
	site.Build.Pandoc.Binary = tool

	report, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)

	page := readPublished(t, site, "nb.html")
	assert.Contains(t, page, "<p>from ipynb</p>")
	assert.NotContains(t, page, "In [1]:")
	assert.Equal(t, "notebook", report.Posts[0].Kind)
	assert.Equal(t, convert.BackendPandoc, report.Posts[0].Backend)
}

func TestRun_PostFields(t *testing.T) {
	site := newSite(t, `title: Blog
posts:
  - {src: posts/from-front-matter.md, url: a.html}
  - {src: posts/config-wins.md, url: b.html, title: Config Title}
  - {src: posts/my-first_post.md, url: c.html}
`+goldmarkBuild, map[string]string{
		"posts/from-front-matter.md": "---\ntitle: Front Matter Title\nsummary: short\n---\nBody\n",
		"posts/config-wins.md":       "---\ntitle: Ignored\n---\nBody\n",
		"posts/my-first_post.md":     "Body\n",
	})

	_, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Front Matter Title", site.Posts[0].Fields["title"])
	assert.Equal(t, "short", site.Posts[0].Fields["summary"])
	assert.Equal(t, "Config Title", site.Posts[1].Fields["title"])
	assert.Equal(t, "My First Post", site.Posts[2].Fields["title"])

	index := readPublished(t, site, IndexFile)
	assert.Contains(t, index, `<a href="a.html">Front Matter Title</a>`)
	assert.Contains(t, index, `<a href="b.html">Config Title</a>`)
	assert.Contains(t, index, `<a href="c.html">My First Post</a>`)
	assert.NotContains(t, readPublished(t, site, "a.html"), "summary: short")
}

func TestRun_LinkCheck(t *testing.T) {
	files := map[string]string{"a.md": "[missing](nowhere.html) and [index](index.html)\n"}

	site := newSite(t, "posts:\n  - {src: a.md, url: a.html}\n"+goldmarkBuild+"  check_links: true\n", files)
	report, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, report.Status)
	require.Len(t, report.BrokenLinks, 1)
	assert.Equal(t, "nowhere.html", report.BrokenLinks[0].URL)
	assert.Len(t, report.Warnings, 1)

	strict := newSite(t, "posts:\n  - {src: a.md, url: a.html}\n"+goldmarkBuild+"  strict_links: true\n", files)
	_, err = newBuilder(t, strict).Run(context.Background())
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryLinks))
}

func TestRun_Feed(t *testing.T) {
	site := newSite(t, `title: Blog
author: Ann
posts:
  - {src: a.md, url: a.html, date: 2024-03-05}
  - {src: b.md, url: b.html}
`+goldmarkBuild+`  feed:
    enabled: true
    base_url: https://ann.github.io/
`, map[string]string{"a.md": "A\n", "b.md": "B\n"})

	report, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(site.Build.PublishDir, "feed.xml"), report.Feed)

	xml := readPublished(t, site, "feed.xml")
	assert.Contains(t, xml, "https://ann.github.io/a.html")
	assert.NotContains(t, xml, "https://ann.github.io/b.html", "undated posts are not in the feed")
}

func TestRun_FeedWithoutDatedPostsIsSkipped(t *testing.T) {
	feedBuild := goldmarkBuild + `  feed:
    enabled: true
    base_url: https://ann.github.io/
`
	tests := []struct {
		name  string
		posts string
		files map[string]string
	}{
		{"no posts", "posts: []\n", nil},
		{"undated post", "posts:\n  - {src: a.md, url: a.html}\n", map[string]string{"a.md": "A\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := newSite(t, "title: Blog\n"+tt.posts+feedBuild, tt.files)

			report, err := newBuilder(t, site).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, StatusWarning, report.Status)
			assert.Empty(t, report.Feed)
			assert.Contains(t, report.Warnings, FeedSkippedWarning)
			assert.NoFileExists(t, filepath.Join(site.Build.PublishDir, "feed.xml"))
			assert.FileExists(t, filepath.Join(site.Build.PublishDir, IndexFile))
		})
	}
}

func TestRun_LeadingHorizontalRuleIsBody(t *testing.T) {
	site := newSite(t, "title: Blog\nposts:\n  - {src: a.md, url: a.html}\n"+goldmarkBuild, map[string]string{
		"a.md": "---\nJust a rule above\n",
	})

	report, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, report.Status)

	page := readPublished(t, site, "a.html")
	assert.Contains(t, page, "<hr")
	assert.Contains(t, page, "<p>Just a rule above</p>")
	assert.Contains(t, page, "<title>A - Blog</title>")
}

func TestRun_StaticDirs(t *testing.T) {
	site := newSite(t, "posts: []\n"+goldmarkBuild+"  static_dirs: [assets]\n", map[string]string{
		"assets/style.css": "body{}",
	})

	_, err := newBuilder(t, site).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "body{}", readPublished(t, site, "assets/style.css"))
}

type recordingNotifier struct {
	events []notify.BuildEvent
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.BuildEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func TestRun_HistoryAndNotification(t *testing.T) {
	site := newSite(t, "posts:\n  - {src: a.md, url: a.html}\n"+goldmarkBuild, map[string]string{"a.md": "A\n"})

	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	notifier := &recordingNotifier{}

	first, err := newBuilder(t, site).WithHistory(store).WithNotifier(notifier).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Posts[0].Changed)

	again, err := config.Load(site.Path)
	require.NoError(t, err)
	second, err := newBuilder(t, again).WithHistory(store).WithNotifier(notifier).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Posts[0].Changed, "unchanged source keeps its fingerprint")

	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.BuildID, recent[0].BuildID)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, first.BuildID, notifier.events[0].BuildID)
	assert.Equal(t, "success", notifier.events[1].Outcome)
	assert.False(t, notifier.events[1].Posts[0].Changed)
}

func TestRun_FailedBuildIsRecorded(t *testing.T) {
	site := newSite(t, "posts:\n  - {src: a.txt, url: a.html}\n"+goldmarkBuild, map[string]string{"a.txt": "x"})
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	report, err := newBuilder(t, site).WithHistory(store).Run(context.Background())
	require.Error(t, err)

	rec, err := store.Get(context.Background(), report.BuildID)
	require.NoError(t, err)
	assert.Equal(t, history.OutcomeFailed, rec.Outcome)
	assert.Contains(t, rec.Error, "a.txt")
}

func TestRun_Canceled(t *testing.T) {
	site := newSite(t, "posts: []\n"+goldmarkBuild, map[string]string{"docs/old.html": "stale"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newBuilder(t, site).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, report.Status)
	assert.FileExists(t, filepath.Join(site.Build.PublishDir, "old.html"), "nothing is touched after cancellation")
}

func TestDeriveTitle(t *testing.T) {
	tests := map[string]string{
		"a.md":                   "A",
		"posts/my-first_post.md": "My First Post",
		"nb/deep--learning.ipynb": "Deep Learning",
		`win\path\notes.md`:      "Notes",
	}
	for src, want := range tests {
		assert.Equal(t, want, DeriveTitle(src), src)
	}
}
