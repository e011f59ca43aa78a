package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/blogbuild/blogbuild/internal/build"
	"github.com/blogbuild/blogbuild/internal/config"
	"github.com/blogbuild/blogbuild/internal/history"
	"github.com/blogbuild/blogbuild/internal/logfields"
	"github.com/blogbuild/blogbuild/internal/metrics"
	"github.com/blogbuild/blogbuild/internal/notify"
)

// LogLevelEnv overrides the log level when --verbose is not given.
const LogLevelEnv = "BLOGBUILD_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"conf.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"1" help:"Build the blog into the publish directory"`
	Init    InitCmd    `cmd:"" help:"Initialize a configuration file and starter templates"`
	Clean   CleanCmd   `cmd:"" help:"Reset the publish directory without building"`
	Serve   ServeCmd   `cmd:"" help:"Build, serve the publish directory and rebuild on change"`
	History HistoryCmd `cmd:"" help:"List recorded builds"`

	out io.Writer `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// stdout is where user-facing summaries go.
func (c *CLI) stdout() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

// parseLogLevel maps --verbose and BLOGBUILD_LOG_LEVEL to a slog level.
// The flag wins over the environment.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// integrations are the optional history store and notifier a site configures.
type integrations struct {
	store    history.Store
	notifier *notify.Notifier
}

func openIntegrations(site *config.Site) (*integrations, error) {
	in := &integrations{}
	if site.Build.History != "" {
		store, err := history.NewSQLiteStore(site.Build.History)
		if err != nil {
			return nil, err
		}
		in.store = store
	}
	if url := site.Build.Notify.NATSURL; url != "" {
		n, err := notify.Connect(url, site.Build.Notify.Subject)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.notifier = n
	}
	return in, nil
}

func (in *integrations) attach(b *build.Builder) *build.Builder {
	if in.store != nil {
		b.WithHistory(in.store)
	}
	if in.notifier != nil {
		b.WithNotifier(in.notifier)
	}
	return b
}

func (in *integrations) Close() {
	if in.store != nil {
		if err := in.store.Close(); err != nil {
			slog.Warn("Failed to close history store", logfields.Error(err))
		}
	}
	in.notifier.Close()
}

// RunBuild loads the configuration and runs one build. Configuration errors
// surface before the publish directory is touched.
func RunBuild(ctx context.Context, configPath string, rec metrics.Recorder) (*build.Report, error) {
	site, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	in, err := openIntegrations(site)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	b, err := build.New(site)
	if err != nil {
		return nil, err
	}
	return in.attach(b).WithRecorder(rec).Run(ctx)
}

func printReport(w io.Writer, site string, r *build.Report) {
	_, _ = fmt.Fprintf(w, "Built %d posts into %s (%d changed, %d warnings) in %s\n",
		len(r.Posts), site, r.ChangedPosts(), len(r.Warnings), r.Duration.Round(time.Millisecond))
	for _, warning := range r.Warnings {
		_, _ = fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}
