// Package app wires configuration, the upstream client and the HTTP surface
// into the friendfilter command line.
package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/friendfilter/backend/internal/config"
)

// Run bootstraps the friendfilter command line.
func Run(ctx context.Context, args []string) error {
	if err := newCommand(os.Stdout).Run(ctx, args); err != nil {
		return goerr.Wrap(err, "friendfilter failed")
	}
	return nil
}

func newCommand(out io.Writer) *cli.Command {
	var loggerCfg config.Logger

	return &cli.Command{
		Name:  "friendfilter",
		Usage: "Triage pending friend requests by account age",
		Flags: loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, err := loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			return ctxlog.With(ctx, logger), nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdTriage(out),
			cmdCheck(out),
		},
	}
}

func joinFlags(flags ...[]cli.Flag) []cli.Flag {
	var result []cli.Flag
	for _, f := range flags {
		result = append(result, f...)
	}
	return result
}
