package build

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/blogbuild/blogbuild/internal/config"
	"github.com/blogbuild/blogbuild/internal/convert"
	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/history"
	"github.com/blogbuild/blogbuild/internal/logfields"
	"github.com/blogbuild/blogbuild/internal/metrics"
	"github.com/blogbuild/blogbuild/internal/notify"
	"github.com/blogbuild/blogbuild/internal/publish"
	"github.com/blogbuild/blogbuild/internal/render"
)

// Stage names used for logging and metrics.
const (
	StageReset   = "reset"
	StagePosts   = "posts"
	StageIndex   = "index"
	StageStatic  = "static"
	StageFeed    = "feed"
	StageLinks   = "links"
	StageHistory = "history"
	StageNotify  = "notify"
)

// IndexFile is the landing page written into the publish directory.
const IndexFile = "index.html"

// Converter turns a post source into an HTML fragment.
type Converter interface {
	Convert(ctx context.Context, path string) (*convert.Result, error)
}

// Notifier receives the outcome of every build.
type Notifier interface {
	Notify(ctx context.Context, ev notify.BuildEvent) error
}

// Builder runs builds for one loaded site configuration.
type Builder struct {
	site      *config.Site
	converter Converter
	engine    *render.Engine
	recorder  metrics.Recorder
	history   history.Store
	notifier  Notifier

	now   func() time.Time
	newID func() string
}

// New creates a Builder wired with the conversion backends and templates the
// site configures. History and notification are off until attached.
func New(site *config.Site) (*Builder, error) {
	d, err := convert.New(site.Build)
	if err != nil {
		return nil, err
	}
	return &Builder{
		site:      site,
		converter: d,
		engine:    render.NewEngine(site.Build.TemplateDir),
		recorder:  metrics.NoopRecorder{},
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// WithConverter replaces the conversion dispatcher (for testing).
func (b *Builder) WithConverter(c Converter) *Builder {
	if c != nil {
		b.converter = c
	}
	return b
}

// WithRecorder sets the metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r != nil {
		b.recorder = r
	}
	return b
}

// WithHistory records every build in s.
func (b *Builder) WithHistory(s history.Store) *Builder {
	b.history = s
	return b
}

// WithNotifier publishes every build to n.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// Run executes the build. The returned report is never nil; on failure it
// describes how far the build got.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	report := &Report{BuildID: b.newID(), Started: b.now()}
	slog.Info("Build started",
		logfields.BuildID(report.BuildID),
		logfields.Path(b.site.Build.PublishDir),
		logfields.Count(len(b.site.Posts)))

	err := b.run(ctx, report)
	return report, b.finish(ctx, report, err)
}

func (b *Builder) run(ctx context.Context, report *Report) error {
	site := b.site
	publishDir := site.Build.PublishDir

	if err := b.stage(ctx, StageReset, func() error {
		removed, err := publish.Reset(publishDir, site.Build.Preserve)
		report.Removed = removed
		return err
	}); err != nil {
		return err
	}

	previous := b.previousFingerprints(ctx)
	if err := b.stage(ctx, StagePosts, func() error {
		for _, post := range site.Posts {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := b.buildPost(ctx, post, previous)
			if err != nil {
				return err
			}
			report.Posts = append(report.Posts, res)
		}
		return nil
	}); err != nil {
		return err
	}

	if err := b.stage(ctx, StageIndex, func() error {
		return b.engine.RenderToFile(render.TemplateIndex, site.Context, filepath.Join(publishDir, IndexFile))
	}); err != nil {
		return err
	}

	if len(site.Build.StaticDirs) > 0 {
		if err := b.stage(ctx, StageStatic, func() error {
			return publish.CopyStatic(publishDir, site.Build.StaticDirs)
		}); err != nil {
			return err
		}
	}

	if site.Build.Feed.Enabled {
		if err := b.stage(ctx, StageFeed, func() error {
			return b.writeFeed(report)
		}); err != nil {
			return err
		}
	}

	if site.Build.CheckLinks || site.Build.StrictLinks {
		if err := b.stage(ctx, StageLinks, func() error {
			return b.checkLinks(report)
		}); err != nil {
			return err
		}
	}

	return nil
}

// stage runs fn and records its duration and result.
func (b *Builder) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		b.recorder.IncStageResult(name, metrics.ResultCanceled)
		return err
	}

	start := time.Now()
	slog.Debug("Stage started", logfields.Stage(name))
	err := fn()
	b.recorder.ObserveStageDuration(name, time.Since(start))

	switch {
	case err == nil:
		b.recorder.IncStageResult(name, metrics.ResultSuccess)
	case ctx.Err() != nil:
		b.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		b.recorder.IncStageResult(name, metrics.ResultFatal)
	}
	return err
}

func (b *Builder) buildPost(ctx context.Context, post *config.Post, previous map[string]string) (PostResult, error) {
	site := b.site
	src := site.SourcePath(post)
	slog.Info("Building post", logfields.Post(post.URL), logfields.Source(post.Src))

	start := time.Now()
	res, err := b.converter.Convert(ctx, src)
	if err != nil {
		kind, _ := convert.KindOf(src)
		b.recorder.ObserveConversion(backendOf(err), kind.String(), time.Since(start), false)
		return PostResult{}, withPost(err, post)
	}
	b.recorder.ObserveConversion(res.Backend, res.Kind.String(), time.Since(start), true)

	meta, err := readSource(src, res.Kind)
	if err != nil {
		return PostResult{}, withPost(err, post)
	}
	for k, v := range meta.fields {
		post.SetDefault(k, v)
	}
	post.Set("html", template.HTML(res.HTML)) // #nosec G203 -- converter output is trusted site content
	post.Set("github_link", site.SourceLink(post))
	post.SetDefault("title", DeriveTitle(post.Src))

	out := site.OutputPath(post)
	if err := b.engine.RenderToFile(render.TemplatePost, render.PostData(site.Context, post.Fields), out); err != nil {
		return PostResult{}, withPost(err, post)
	}

	result := PostResult{
		Src:         post.Src,
		URL:         post.URL,
		Kind:        res.Kind.String(),
		Backend:     res.Backend,
		Fingerprint: meta.fingerprint,
		Changed:     previous == nil || previous[post.URL] != meta.fingerprint,
	}
	if info, err := os.Stat(out); err == nil {
		result.Bytes = info.Size()
	}
	return result, nil
}

func (b *Builder) previousFingerprints(ctx context.Context) map[string]string {
	if b.history == nil {
		return nil
	}
	fps, err := b.history.LastFingerprints(ctx)
	if err != nil {
		slog.Warn("Could not read previous build fingerprints", logfields.Error(err))
		return nil
	}
	return fps
}

func withPost(err error, post *config.Post) error {
	if be, ok := berrors.As(err); ok {
		be.WithContext("post", post.URL)
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return berrors.InternalError("post "+post.URL, err).WithContext("post", post.URL)
}

func backendOf(err error) string {
	if be, ok := berrors.As(err); ok {
		if name, ok := be.Context["backend"].(string); ok {
			return name
		}
	}
	return "none"
}
