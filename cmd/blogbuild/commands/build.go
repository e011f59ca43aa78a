package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/blogbuild/blogbuild/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := RunBuild(ctx, root.Config, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	printReport(root.stdout(), root.Config, report)
	return nil
}
