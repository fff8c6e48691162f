package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/guild-dashboard/internal/auth"
	"github.com/frahmantamala/guild-dashboard/internal/gate"
	"github.com/frahmantamala/guild-dashboard/internal/guild"
	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
	"github.com/frahmantamala/guild-dashboard/internal/transport/middleware"
	"github.com/frahmantamala/guild-dashboard/internal/transport/swagger"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	"github.com/go-chi/chi"
)

// BackendRoutes are the handlers of the API server.
type BackendRoutes struct {
	Gate        *gate.Gate
	Health      *HealthHandler
	Users       *user.Handler
	Guilds      *guild.Handler
	Metrics     *observability.Metrics
	MetricsPath string
	SpecPath    string
}

// RegisterBackendRoutes mounts the API behind the verification gate. Every
// request is classified; individual routes decide whether they need more
// than an anonymous caller.
func RegisterBackendRoutes(router *chi.Mux, routes BackendRoutes, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(routes.Metrics.Middleware)

	if routes.MetricsPath != "" {
		router.Handle(routes.MetricsPath, routes.Metrics.Handler())
	}
	if routes.SpecPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, routes.SpecPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", routes.Health.Health)
		r.Get("/ping", routes.Health.Ping)

		r.Group(func(gr chi.Router) {
			gr.Use(routes.Gate.Middleware)

			if routes.Guilds != nil {
				gr.Get("/guilds/{guildID}/permissions", routes.Guilds.GetPermissions)
				gr.With(gate.RequirePermission(permission.ManageRoles, "guildID")).
					Get("/guilds/{guildID}/roles", routes.Guilds.GetRoles)
			}

			if routes.Users != nil {
				gr.With(gate.RequireAuth).Get("/me", routes.Users.GetCurrentUser)
			}
		})
	})
}

// GatewayRoutes are the handlers of the browser-facing BFF.
type GatewayRoutes struct {
	Auth          *auth.Handler
	Proxy         http.Handler
	Health        *HealthHandler
	Metrics       *observability.Metrics
	MetricsPath   string
	AuthRateLimit int
	Production    bool
}

// RegisterGatewayRoutes mounts the login flow and the signed API proxy.
func RegisterGatewayRoutes(router *chi.Mux, routes GatewayRoutes, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.SecureHeaders(routes.Production, logger))
	router.Use(routes.Metrics.Middleware)

	if routes.MetricsPath != "" {
		router.Handle(routes.MetricsPath, routes.Metrics.Handler())
	}
	router.Get("/health", routes.Health.Health)

	router.Route("/auth", func(r chi.Router) {
		if routes.AuthRateLimit > 0 {
			r.Use(middleware.RateLimitByIP(routes.AuthRateLimit, logger))
		}
		r.Get("/discord/login", routes.Auth.Login)
		r.Get("/discord/callback", routes.Auth.Callback)
		r.Get("/session", routes.Auth.GetSession)
		r.Post("/logout", routes.Auth.Logout)
	})

	router.Handle("/api/*", routes.Proxy)
}
