package guild

import (
	"context"
	"errors"
	"net/http"

	"github.com/frahmantamala/guild-dashboard/internal"
	"github.com/frahmantamala/guild-dashboard/internal/core/common/validation"
	"github.com/frahmantamala/guild-dashboard/internal/gate"
	"github.com/frahmantamala/guild-dashboard/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListRoles(ctx context.Context, guildID string) ([]*Role, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetPermissions handles GET /api/v1/guilds/{guildID}/permissions. Anonymous
// and rejected callers get an empty bitflag rather than an error.
func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if appErr := validation.ValidateGuildID(guildID); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	flags := gate.EffectivePermissions(r.Context(), guildID)
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{
		GuildID:       guildID,
		Authenticated: gate.FromContext(r.Context()).Authenticated(),
		Permissions:   flags.String(),
		Granted:       flags.Names(),
	})
}

// GetRoles handles GET /api/v1/guilds/{guildID}/roles
func (h *Handler) GetRoles(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if appErr := validation.ValidateGuildID(guildID); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	roles, err := h.Service.ListRoles(r.Context(), guildID)
	if errors.Is(err, ErrNotFound) {
		h.WriteAppError(w, internal.ErrGuildNotFound)
		return
	}
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("could not list roles", err))
		return
	}

	h.WriteJSON(w, http.StatusOK, RolesResponse{GuildID: guildID, Roles: roles})
}
