package app

import (
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/friendfilter/backend/internal/config"
	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/handlers"
	"github.com/friendfilter/backend/internal/roblox"
	"github.com/friendfilter/backend/internal/triage"
)

const browserImportTimeout = 10 * time.Second

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(store *credential.Store, upstream config.Upstream, server config.Server) handlers.Dependencies {
	client := roblox.NewClient(upstream.ClientConfig())

	// Single-item endpoints pass upstream bodies through, so only batch runs
	// read profiles from the cache.
	var batchUpstream triage.Upstream = client
	if upstream.ProfileCacheTTL > 0 {
		batchUpstream = roblox.NewCachingClient(client, upstream.ProfileCacheTTL)
	}

	return handlers.Dependencies{
		Credentials:       store,
		Upstream:          client,
		Triage:            triage.New(store, batchUpstream, upstream.Pace),
		Importer:          credential.NewImporter(store),
		DefaultMinAgeDays: server.DefaultMinAgeDays,
	}
}

// loadCredential stores the credential named by cfg, reading it from a local
// browser when requested.
func loadCredential(ctx context.Context, store *credential.Store, cfg config.Credential) (credential.Credential, error) {
	if !cfg.FromBrowser {
		cred, err := store.Set(cfg.Value)
		if err != nil {
			return credential.Credential{}, goerr.Wrap(err, "failed to load credential")
		}
		return cred, nil
	}

	return importCredential(ctx, credential.NewImporter(store), cfg)
}

func importCredential(ctx context.Context, importer handlers.CredentialImporter, cfg config.Credential) (credential.Credential, error) {
	logger := ctxlog.From(ctx)

	cred, warnings, err := importer.Import(ctx, credential.BrowserImportOptions{
		Browsers: cfg.Browsers,
		Profile:  cfg.Profile,
		Timeout:  browserImportTimeout,
	})
	for _, warning := range warnings {
		logger.Debug("browser cookie warning", "warning", warning)
	}
	if err != nil {
		return credential.Credential{}, goerr.Wrap(err, "failed to import credential from browser",
			goerr.V("browsers", cfg.Browsers))
	}

	logger.Info("credential imported from browser", "credential", cred.String())
	return cred, nil
}
