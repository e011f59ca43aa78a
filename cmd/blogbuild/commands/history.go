package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/blogbuild/blogbuild/internal/config"
	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" name:"limit" default:"10" help:"Number of builds to show."`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	site, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if site.Build.History == "" {
		return berrors.ValidationFailed("build.history", "no history database configured")
	}
	if h.Limit <= 0 {
		return berrors.ValidationFailed("limit", "must be positive")
	}

	store, err := history.NewSQLiteStore(site.Build.History)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(root.stdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tDURATION\tOUTCOME\tPOSTS\tWARNINGS\tERROR")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.BuildID,
			r.Started.Local().Format(time.DateTime),
			r.Duration.Round(time.Millisecond),
			r.Outcome,
			len(r.Posts),
			r.Warnings,
			r.Error)
	}
	return tw.Flush()
}
