package gate

import (
	"net/http"

	"github.com/frahmantamala/guild-dashboard/internal"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
	"github.com/frahmantamala/guild-dashboard/internal/transport"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"
	"github.com/go-chi/chi"
)

// RequireAuth answers 401 unless the request carries a verified assertion.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := FromContext(r.Context())
		if !res.Authenticated() {
			transport.WriteAppError(w, unauthenticatedError(res), logger.From(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission answers 401 for unauthenticated callers and 403 unless
// the assertion was issued for the guild named by the guildParam URL
// parameter and holds every bit of required.
func RequirePermission(required permission.Bitflag, guildParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			lg := logger.From(ctx)
			res := FromContext(ctx)
			if !res.Authenticated() {
				transport.WriteAppError(w, unauthenticatedError(res), lg)
				return
			}

			guildID := chi.URLParam(r, guildParam)
			if res.Assertion.SelectedGuildID != guildID {
				lg.Warn("assertion guild does not match route",
					"route_guild_id", guildID,
					"assertion_guild_id", res.Assertion.SelectedGuildID)
				transport.WriteAppError(w, internal.ErrGuildMismatch, lg)
				return
			}
			if !permission.Has(res.Assertion.Permissions, required) {
				lg.Warn("access denied: missing guild permissions",
					"guild_id", guildID,
					"required", required.Names(),
					"held", res.Assertion.Permissions.Names())
				transport.WriteAppError(w, internal.ErrInsufficientPermissions, lg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthenticatedError(res Result) error {
	if res.State != Rejected {
		return internal.ErrUnauthenticated
	}
	if res.Reason == ReasonExpired {
		return internal.ErrAssertionExpired
	}
	return internal.ErrInvalidAssertion
}
