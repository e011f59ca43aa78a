package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/blogbuild/blogbuild/internal/config"
	"github.com/blogbuild/blogbuild/internal/metrics"
	"github.com/blogbuild/blogbuild/internal/preview"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr         string        `name:"addr" default:"localhost:8000" help:"Listen address for the preview server."`
	RebuildEvery time.Duration `name:"rebuild-every" help:"Also rebuild on this interval (e.g. 10m). Disabled when zero."`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Directories are taken from the configuration at startup; later edits
	// only affect what is built.
	site, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheusRecorder(reg)

	var ignore []string
	if site.Build.History != "" {
		ignore = append(ignore, site.Build.History)
	}

	srv := preview.New(preview.Options{
		Addr:         s.Addr,
		SiteDir:      site.Dir,
		PublishDir:   site.Build.PublishDir,
		Ignore:       ignore,
		RebuildEvery: s.RebuildEvery,
		Registry:     reg,
	}, func(ctx context.Context) error {
		report, err := RunBuild(ctx, root.Config, rec)
		if err == nil {
			printReport(root.stdout(), root.Config, report)
		}
		return err
	})
	return srv.Run(ctx)
}
