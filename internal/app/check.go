package app

import (
	"context"
	"io"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"

	"github.com/friendfilter/backend/internal/config"
	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/roblox"
)

func cmdCheck(out io.Writer) *cli.Command {
	var (
		upstreamCfg config.Upstream
		credCfg     config.Credential
	)

	return &cli.Command{
		Name:  "check",
		Usage: "Print the account the credential authenticates as",
		Flags: joinFlags(upstreamCfg.Flags(), credCfg.Flags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := upstreamCfg.Validate(); err != nil {
				return err
			}
			if err := credCfg.Validate(); err != nil {
				return err
			}

			store := credential.NewStore()
			cred, err := loadCredential(ctx, store, credCfg)
			if err != nil {
				return err
			}

			identity, err := roblox.NewClient(upstreamCfg.ClientConfig()).AuthenticatedIdentity(ctx, cred)
			if err != nil {
				return err
			}

			ctxlog.From(ctx).Info("credential is valid", "user_id", identity.ID, "credential", cred.String())
			return writeJSON(out, identity)
		},
	}
}
