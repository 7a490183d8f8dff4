package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/friendfilter/backend/internal/config"
	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/policy"
	"github.com/friendfilter/backend/internal/roblox"
	"github.com/friendfilter/backend/internal/triage"
)

func cmdTriage(out io.Writer) *cli.Command {
	var (
		upstreamCfg config.Upstream
		credCfg     config.Credential
		minAgeDays  int
	)

	flags := joinFlags(upstreamCfg.Flags(), credCfg.Flags(), []cli.Flag{
		&cli.IntFlag{
			Name:        "min-age-days",
			Usage:       "Accept requesters whose account is at least this many days old",
			Value:       policy.DefaultMinAgeDays,
			Sources:     cli.EnvVars("FRIENDFILTER_MIN_AGE_DAYS"),
			Destination: &minAgeDays,
		},
	})

	return &cli.Command{
		Name:  "triage",
		Usage: "Accept or decline every pending friend request once and print the summary",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := upstreamCfg.Validate(); err != nil {
				return err
			}
			if err := credCfg.Validate(); err != nil {
				return err
			}

			store := credential.NewStore()
			if _, err := loadCredential(ctx, store, credCfg); err != nil {
				return err
			}

			client := roblox.NewClient(upstreamCfg.ClientConfig())
			orchestrator := triage.New(store, client, upstreamCfg.Pace)

			// An interrupt stops the batch between items; the partial summary
			// is still printed.
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting batch triage", slog.Int("min_age_days", minAgeDays), slog.Any("upstream", upstreamCfg))
			summary, runErr := orchestrator.ProcessAll(ctx, minAgeDays)
			if runErr != nil && !errors.Is(runErr, triage.ErrCanceled) {
				return runErr
			}

			if err := writeJSON(out, summary); err != nil {
				return err
			}
			return runErr
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to write output")
	}
	return nil
}
