package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	ggit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
)

const sampleConfig = `
title: Blog
author:
  name: Ann
posts:
  - src: posts/a.md
    url: a.html
    title: First
  - src: nb/b.ipynb
    url: b.html
build:
  repository_url: https://github.com/ann/ann.github.io
  convert_timeout: 30s
`

func TestParse_PassesContextThroughVerbatim(t *testing.T) {
	site, err := Parse(sampleConfig, "/site")
	require.NoError(t, err)

	assert.Equal(t, "Blog", site.Context["title"])
	assert.Equal(t, map[string]any{"name": "Ann"}, site.Context["author"])
	_, hasBuild := site.Context[BuildKey]
	assert.False(t, hasBuild, "build section must not leak into template context")

	require.Len(t, site.Posts, 2)
	assert.Equal(t, "posts/a.md", site.Posts[0].Src)
	assert.Equal(t, "a.html", site.Posts[0].URL)
	assert.Equal(t, "First", site.Posts[0].Fields["title"])
	assert.Equal(t, 30*time.Second, site.Build.ConvertTimeout)
}

func TestParse_PostsShareMapsWithContext(t *testing.T) {
	site, err := Parse(sampleConfig, "/site")
	require.NoError(t, err)

	site.Posts[1].Set("html", "<p>x</p>")

	list, ok := site.Context["posts"].([]any)
	require.True(t, ok)
	second, ok := list[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "<p>x</p>", second["html"])
}

func TestParse_DefaultsAndPathResolution(t *testing.T) {
	site, err := Parse("posts: []\n", "/site")
	require.NoError(t, err)

	b := site.Build
	assert.Equal(t, filepath.Join("/site", "docs"), b.PublishDir)
	assert.Equal(t, filepath.Join("/site", "templates"), b.TemplateDir)
	assert.Equal(t, []string{"CNAME", "static"}, b.Preserve)
	assert.Equal(t, "master", b.RepositoryBranch)
	assert.Equal(t, "pandoc", b.Backends.Markdown)
	assert.Equal(t, "pandoc", b.Backends.Notebook)
	assert.Equal(t, "pandoc", b.Pandoc.Binary)
	assert.Equal(t, filepath.Join("/site", "templates", "pandoc_post.html"), b.Pandoc.Template)
	assert.Equal(t, "jupyter", b.Nbconvert.Binary)
	assert.Equal(t, "nbconvert_post", b.Nbconvert.Template)
	assert.Equal(t, "feed.xml", b.Feed.File)
	assert.Equal(t, "blogbuild.builds", b.Notify.Subject)
	assert.Empty(t, b.History)
	assert.Empty(t, site.Posts)
}

func TestParse_PandocTemplateFollowsTemplateDir(t *testing.T) {
	site, err := Parse("posts: []\nbuild:\n  template_dir: theme\n  nbconvert:\n    temp_dir: tmp\n", "/site")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/site", "theme", "pandoc_post.html"), site.Build.Pandoc.Template)
	assert.Equal(t, filepath.Join("/site", "tmp"), site.Build.Nbconvert.TempDir)

	site, err = Parse("posts: []\nbuild:\n  template_dir: /srv/theme\n", "/site")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/theme", "pandoc_post.html"), site.Build.Pandoc.Template)

	site, err = Parse("posts: []\nbuild:\n  template_dir: theme\n  pandoc:\n    template: custom.html\n", "/site")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/site", "custom.html"), site.Build.Pandoc.Template)
}

func TestParse_ExplicitEmptyPreserve(t *testing.T) {
	site, err := Parse("posts: []\nbuild:\n  preserve: []\n", "/site")
	require.NoError(t, err)
	assert.Empty(t, site.Build.Preserve)
}

func TestParse_NullPostsIsEmpty(t *testing.T) {
	site, err := Parse("title: x\nposts:\n", "/site")
	require.NoError(t, err)
	assert.Empty(t, site.Posts)
	assert.Equal(t, []any{}, site.Context["posts"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		category berrors.ErrorCategory
	}{
		{"empty document", "", berrors.CategoryConfig},
		{"invalid yaml", "posts: [\n", berrors.CategoryConfig},
		{"missing posts", "title: x\n", berrors.CategoryConfig},
		{"posts not a list", "posts: nope\n", berrors.CategoryValidation},
		{"post not a mapping", "posts:\n  - a.md\n", berrors.CategoryValidation},
		{"missing src", "posts:\n  - url: a.html\n", berrors.CategoryConfig},
		{"missing url", "posts:\n  - src: a.md\n", berrors.CategoryConfig},
		{"blank url", "posts:\n  - src: a.md\n    url: ' '\n", berrors.CategoryConfig},
		{"non-string url", "posts:\n  - src: a.md\n    url: 3\n", berrors.CategoryValidation},
		{"duplicate url", "posts:\n  - {src: a.md, url: a.html}\n  - {src: b.md, url: ./a.html}\n", berrors.CategoryValidation},
		{"index collision", "posts:\n  - {src: a.md, url: index.html}\n", berrors.CategoryValidation},
		{"escaping url", "posts:\n  - {src: a.md, url: ../a.html}\n", berrors.CategoryValidation},
		{"absolute url", "posts:\n  - {src: a.md, url: /tmp/a.html}\n", berrors.CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, "/site")
			require.Error(t, err)
			assert.Equal(t, tt.category, berrors.GetCategory(err), "error: %v", err)
		})
	}
}

func TestSite_Paths(t *testing.T) {
	site, err := Parse(sampleConfig, "/site")
	require.NoError(t, err)

	p := site.Posts[0]
	assert.Equal(t, filepath.Join("/site", "posts", "a.md"), site.SourcePath(p))
	assert.Equal(t, filepath.Join("/site", "docs", "a.html"), site.OutputPath(p))
	assert.Equal(t, "https://github.com/ann/ann.github.io/blob/master/posts/a.md", site.SourceLink(p))

	site.Build.RepositoryURL = ""
	assert.Empty(t, site.SourceLink(p))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yaml")
	t.Setenv("BLOG_TITLE", "From Env")
	text := "title: ${BLOG_TITLE}\nposts: []\nbuild:\n  repository_url: https://example.com/r\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	site, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "From Env", site.Context["title"])
	assert.Equal(t, dir, site.Dir)
	assert.Equal(t, filepath.Join(dir, "docs"), site.Build.PublishDir)
}

func TestLoad_KeepsDollarSignsOutsideEnvReferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yaml")
	t.Setenv("BLOG_TITLE", "From Env")
	t.Setenv("e", "oops")
	text := "title: ${BLOG_TITLE}\n" +
		"description: 'Euler: $e^{i\\pi}+1=0, costs $100 or $HOME'\n" +
		"missing: '${BLOG_UNSET_VARIABLE}'\n" +
		"posts: []\n" +
		"build:\n  repository_url: https://example.com/r\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	site, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "From Env", site.Context["title"])
	assert.Equal(t, "Euler: $e^{i\\pi}+1=0, costs $100 or $HOME", site.Context["description"])
	assert.Equal(t, "", site.Context["missing"])
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("BLOG_A", "alpha")
	assert.Equal(t, "alpha-$BLOG_A-${}-$", expandEnv("${BLOG_A}-$BLOG_A-${}-$"))
	assert.Equal(t, "$x^2$ and ${1bad}", expandEnv("$x^2$ and ${1bad}"))
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryConfig))
}

func TestLoad_DiscoversRepositoryURL(t *testing.T) {
	dir := t.TempDir()
	repo, err := ggit.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:ann/ann.github.io.git"},
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("posts: []\n"), 0o644))

	site, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/ann/ann.github.io", site.Build.RepositoryURL)
}

func TestNormalizeRemoteURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"git@github.com:ann/blog.git", "https://github.com/ann/blog"},
		{"https://github.com/ann/blog.git", "https://github.com/ann/blog"},
		{"https://github.com/ann/blog/", "https://github.com/ann/blog"},
		{"ssh://git@gitlab.com/ann/blog.git", "https://gitlab.com/ann/blog"},
	}
	for _, tt := range tests {
		got, err := NormalizeRemoteURL(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "file:///tmp/repo", "not a url"} {
		_, err := NormalizeRemoteURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "second init without force must fail")
	require.NoError(t, Init(path, true))

	site, err := Load(path)
	require.NoError(t, err)
	require.Len(t, site.Posts, 1)
	assert.Equal(t, "hello.html", site.Posts[0].URL)
}
