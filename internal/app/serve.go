package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/friendfilter/backend/internal/config"
	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/handlers"
	"github.com/friendfilter/backend/internal/httpserver"
	"github.com/friendfilter/backend/internal/middleware"
	"github.com/friendfilter/backend/internal/roblox"
)

func cmdServe() *cli.Command {
	var (
		serverCfg   config.Server
		upstreamCfg config.Upstream
		credCfg     config.Credential
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: joinFlags(serverCfg.Flags(), upstreamCfg.Flags(), credCfg.Flags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := serverCfg.Validate(); err != nil {
				return err
			}
			if err := upstreamCfg.Validate(); err != nil {
				return err
			}

			store := credential.NewStore()
			if credCfg.Value != "" || credCfg.FromBrowser {
				if _, err := loadCredential(ctx, store, credCfg); err != nil {
					return err
				}
			}

			router := newRouter(logger, store, serverCfg, upstreamCfg)
			writeTimeout := httpserver.BatchWriteTimeout(roblox.PageLimit, upstreamCfg.Pace, upstreamCfg.Timeout)
			srv := httpserver.New(serverCfg.Addr(), router, writeTimeout)

			logStartupBanner(logger, serverCfg, upstreamCfg, store, handlers.Routes(router))
			return run(ctx, logger, srv)
		},
	}
}

func newRouter(logger *slog.Logger, store *credential.Store, serverCfg config.Server, upstreamCfg config.Upstream) chi.Router {
	var limiter middleware.RateLimiter
	if serverCfg.RateLimitRequests > 0 {
		clientLimiter := middleware.NewClientRateLimiter(middleware.Budget{
			Requests: serverCfg.RateLimitRequests,
			Window:   serverCfg.RateLimitWindow,
		}, 2*serverCfg.RateLimitWindow)
		if serverCfg.TriageRateLimitRequests > 0 {
			clientLimiter.SetBudget(handlers.ScopeTriage, middleware.Budget{
				Requests: serverCfg.TriageRateLimitRequests,
				Window:   serverCfg.RateLimitWindow,
			})
		}
		limiter = clientLimiter
	}

	return handlers.NewRouter(buildDependencies(store, upstreamCfg, serverCfg), handlers.RouterOptions{
		Logger:          logger,
		AllowedOrigins:  serverCfg.AllowedOrigins,
		MutationLimiter: limiter,
	})
}

func logStartupBanner(logger *slog.Logger, serverCfg config.Server, upstreamCfg config.Upstream, store *credential.Store, routes []handlers.Route) {
	endpoints := make([]string, 0, len(routes))
	for _, route := range routes {
		endpoints = append(endpoints, route.Method+" "+route.Path)
	}

	cred, _ := store.Snapshot()
	logger.Info("friendfilter backend starting",
		slog.String("addr", serverCfg.Addr()),
		slog.Any("server", serverCfg),
		slog.Any("upstream", upstreamCfg),
		slog.String("credential", cred.String()),
		slog.Any("endpoints", endpoints),
	)
}

func run(ctx context.Context, logger *slog.Logger, srv *httpserver.Server) error {
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return goerr.Wrap(err, "http server failed", goerr.V("addr", srv.Addr()))
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down http server")
	}
	logger.Info("server shutdown complete")
	return nil
}
