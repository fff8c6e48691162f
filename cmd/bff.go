package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/frahmantamala/guild-dashboard/internal/auth"
	"github.com/frahmantamala/guild-dashboard/internal/bridge"
	"github.com/frahmantamala/guild-dashboard/internal/core/events"
	"github.com/frahmantamala/guild-dashboard/internal/discord"
	"github.com/frahmantamala/guild-dashboard/internal/guild"
	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"github.com/frahmantamala/guild-dashboard/internal/reconcile"
	"github.com/frahmantamala/guild-dashboard/internal/transport/rest"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var bffCmd = &cobra.Command{
	Use:   "bff",
	Short: "Start the browser gateway",
	Long: `Start the browser-facing gateway. It owns the Discord login, keeps
sessions in Redis and forwards /api requests to the backend with a signed
identity assertion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startGateway()
	},
}

func startGateway() error {
	cfg, err := bootstrap()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	secret, err := cfg.Security.SigningSecret(cfg.Environment, lg)
	if err != nil {
		return err
	}
	sessionKey, err := cfg.Security.SessionKey(cfg.Environment, lg)
	if err != nil {
		return err
	}
	backend, err := url.Parse(cfg.Gateway.BackendURL)
	if err != nil || backend.Host == "" {
		return fmt.Errorf("invalid gateway backend url %q", cfg.Gateway.BackendURL)
	}

	ctx := context.Background()
	rdb, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	db, err := openStores(cfg.Database)
	if err != nil {
		_ = rdb.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	metrics := observability.NewMetrics()
	production := cfg.IsProduction()

	discordClient := discord.NewClient(discord.Config{
		APIBaseURL:   cfg.Discord.APIBaseURL,
		ClientID:     cfg.Discord.ClientID,
		ClientSecret: cfg.Discord.ClientSecret,
		RedirectURL:  cfg.Discord.RedirectURL,
		Timeout:      cfg.Discord.FetchTimeout,
	}, metrics, lg)

	users := user.NewService(db.users, lg)
	guilds := guild.NewService(db.guilds, lg)

	sessions := auth.NewRedisSessionStore(rdb, auth.NewTokenSigner(sessionKey), cfg.Security.SessionDuration, production, lg)

	bus := events.NewEventBus(lg)
	reconcile.New(db.guilds, discordClient, users, reconcile.Config{
		Concurrency:  cfg.Reconcile.Concurrency,
		FetchTimeout: cfg.Discord.FetchTimeout,
		Timeout:      cfg.Reconcile.Timeout,
	}, metrics, lg).Register(bus)

	router := chi.NewRouter()
	rest.RegisterGatewayRoutes(router, rest.GatewayRoutes{
		Auth:  auth.NewHandler(discordClient, users, sessions, bus, postLoginURL(cfg.Gateway.PublicURL), production),
		Proxy: bridge.NewProxy(backend, sessions, bridge.New(guilds, secret, lg)),
		Health: rest.NewHealthHandler(map[string]rest.Check{
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
			"postgres": db.sql.PingContext,
		}),
		Metrics:       metrics,
		MetricsPath:   metricsPath(cfg.Observability.Metrics.Enabled, cfg.Observability.Metrics.Path),
		AuthRateLimit: cfg.Gateway.AuthRateLimit,
		Production:    production,
	}, lg)

	server := newHTTPServer(cfg.Gateway.Port, router, cfg.Server)
	lg.Info("starting gateway", "address", server.Addr, "backend", backend.String(), "environment", cfg.Environment)

	return serve(server, lg,
		// let in-flight reconciliations finish before the pools close
		bus.Wait,
		func(context.Context) error { return rdb.Close() },
		func(context.Context) error { return db.Close() },
	)
}

func postLoginURL(publicURL string) string {
	return strings.TrimRight(publicURL, "/") + "/dashboard"
}
