package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/blogbuild/blogbuild/cmd/blogbuild/commands"
	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("blogbuild"),
		kong.Description("Build a static blog from markdown and notebook posts."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := parser.Run(&commands.Global{Logger: slog.Default()}, cli); err != nil {
		berrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
