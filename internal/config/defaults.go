package config

import "path/filepath"

const (
	DefaultPublishDir       = "docs"
	DefaultTemplateDir      = "templates"
	DefaultRepositoryBranch = "master"
	DefaultBackend          = "pandoc"
	DefaultPandocBinary     = "pandoc"
	DefaultPandocTemplate   = "pandoc_post.html"
	DefaultNbconvertBinary  = "jupyter"
	DefaultNbconvertTmpl    = "nbconvert_post"
	DefaultFeedFile         = "feed.xml"
	DefaultNotifySubject    = "blogbuild.builds"
)

// DefaultPreserve is the reset allow-list: the custom-domain marker and static assets.
func DefaultPreserve() []string {
	return []string{"CNAME", "static"}
}

func applyDefaults(b *BuildConfig) {
	if b.PublishDir == "" {
		b.PublishDir = DefaultPublishDir
	}
	if b.TemplateDir == "" {
		b.TemplateDir = DefaultTemplateDir
	}
	// An explicit empty list disables preservation; only an omitted key gets the default.
	if b.Preserve == nil {
		b.Preserve = DefaultPreserve()
	}
	if b.RepositoryBranch == "" {
		b.RepositoryBranch = DefaultRepositoryBranch
	}

	if b.Backends.Markdown == "" {
		b.Backends.Markdown = DefaultBackend
	}
	if b.Backends.Notebook == "" {
		b.Backends.Notebook = DefaultBackend
	}
	if b.Pandoc.Binary == "" {
		b.Pandoc.Binary = DefaultPandocBinary
	}
	if b.Pandoc.Template == "" {
		b.Pandoc.Template = filepath.Join(b.TemplateDir, DefaultPandocTemplate)
	}
	if b.Nbconvert.Binary == "" {
		b.Nbconvert.Binary = DefaultNbconvertBinary
	}
	if b.Nbconvert.Template == "" {
		b.Nbconvert.Template = DefaultNbconvertTmpl
	}
	if b.ConvertTimeout < 0 {
		b.ConvertTimeout = 0
	}

	if b.Feed.File == "" {
		b.Feed.File = DefaultFeedFile
	}
	if b.Notify.Subject == "" {
		b.Notify.Subject = DefaultNotifySubject
	}
}
