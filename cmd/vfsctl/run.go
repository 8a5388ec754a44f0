package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/gobeaver/vfskit"
)

var version = "dev"

func run(args []string, stdout, stderr io.Writer) int {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:      "vfsctl",
		Version:   version,
		Usage:     "parses, resolves and reads files across file systems",
		Suggest:   true,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log debug output to stderr",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				level.Set(slog.LevelDebug)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			parseCommand(stdout),
			relativeCommand(stdout),
			resolveCommand(stdout),
			infoCommand(stdout),
			lsCommand(stdout),
			catCommand(stdout),
			sumCommand(stdout),
			encryptCommand(stdout),
		},
	}
	// Errors are logged below; the default handler would exit the process.
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	if err := app.Run(context.Background(), args); err != nil {
		logger.Error("command failed", "error", err, "kind", vfskit.KindOf(err))
		return 1
	}
	return 0
}
