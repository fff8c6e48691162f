package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/frahmantamala/guild-dashboard/internal"
	"github.com/frahmantamala/guild-dashboard/internal/gate"
	"github.com/frahmantamala/guild-dashboard/internal/transport"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, userID string) (*User, error)
	GetDiscordAccount(ctx context.Context, userID string) (*DiscordAccount, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /api/v1/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, ok := gate.AssertionFromContext(ctx)
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	u, err := h.Service.GetByID(ctx, a.UserID)
	if errors.Is(err, ErrNotFound) {
		h.WriteAppError(w, internal.ErrUserNotFound)
		return
	}
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("could not load user", err))
		return
	}

	resp := MeResponse{
		User:      u,
		SessionID: a.SessionID,
		ExpiresAt: a.ExpiresAt,
	}

	account, err := h.Service.GetDiscordAccount(ctx, a.UserID)
	switch {
	case err == nil:
		resp.Discord = account
	case !errors.Is(err, ErrAccountNotFound):
		h.WriteAppError(w, internal.NewInternalError("could not load discord account", err))
		return
	}

	if a.SelectedGuildID != "" {
		resp.Guild = &GuildContext{
			ID:          a.SelectedGuildID,
			Permissions: a.Permissions.String(),
			Granted:     a.Permissions.Names(),
		}
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
