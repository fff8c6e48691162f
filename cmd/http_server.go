package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/gate"
	"github.com/frahmantamala/guild-dashboard/internal/guild"
	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"github.com/frahmantamala/guild-dashboard/internal/transport"
	"github.com/frahmantamala/guild-dashboard/internal/transport/rest"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var specPath string

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long:  `Start the backend API. Every request is classified by the assertion gate before it reaches a handler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().StringVar(&specPath, "spec", "api/openapi.yml", "OpenAPI document served at /openapi.yml (empty disables docs)")
}

func startHTTPServer() error {
	cfg, err := bootstrap()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	// a backend without a signing secret cannot authenticate anyone
	secret, err := cfg.Security.SigningSecret(cfg.Environment, lg)
	if err != nil {
		return err
	}

	db, err := openStores(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	metrics := observability.NewMetrics()
	base := transport.NewBaseHandler(lg)

	if specPath != "" {
		if _, err := os.Stat(specPath); err != nil {
			lg.Warn("openapi document not found, docs disabled", "path", specPath)
			specPath = ""
		}
	}

	router := chi.NewRouter()
	rest.RegisterBackendRoutes(router, rest.BackendRoutes{
		Gate: gate.New(secret, gate.Config{
			Freshness: assertion.Freshness{
				MaxAge:    cfg.Security.AssertionMaxAge,
				ClockSkew: cfg.Security.AssertionClockSkew,
			},
			Metrics: metrics,
		}),
		Health: rest.NewHealthHandler(map[string]rest.Check{
			"postgres": db.sql.PingContext,
		}),
		Users:       user.NewHandler(base, user.NewService(db.users, lg)),
		Guilds:      guild.NewHandler(base, guild.NewService(db.guilds, lg)),
		Metrics:     metrics,
		MetricsPath: metricsPath(cfg.Observability.Metrics.Enabled, cfg.Observability.Metrics.Path),
		SpecPath:    specPath,
	}, lg)

	server := newHTTPServer(cfg.Server.Port, router, cfg.Server)
	lg.Info("starting API server", "address", server.Addr, "environment", cfg.Environment)

	return serve(server, lg, func(context.Context) error {
		return db.Close()
	})
}

func metricsPath(enabled bool, path string) string {
	if !enabled {
		return ""
	}
	return path
}
