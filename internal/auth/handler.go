package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal"
	"github.com/frahmantamala/guild-dashboard/internal/core/events"
	"github.com/frahmantamala/guild-dashboard/internal/discord"
	"github.com/frahmantamala/guild-dashboard/internal/transport"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"
	"golang.org/x/oauth2"
)

const stateCookieName = "dashboard_oauth_state"

type OAuthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchCurrentUser(ctx context.Context, accessToken string) (*discord.CurrentUser, error)
}

type AccountLinker interface {
	LinkDiscordAccount(ctx context.Context, in user.LinkInput) (*user.User, *user.DiscordAccount, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Handler struct {
	*transport.BaseHandler
	OAuth        OAuthClient
	Accounts     AccountLinker
	Sessions     *RedisSessionStore
	Events       Publisher
	PostLoginURL string
	Secure       bool
}

func NewHandler(oauth OAuthClient, accounts AccountLinker, sessions *RedisSessionStore, publisher Publisher, postLoginURL string, secure bool) *Handler {
	if postLoginURL == "" {
		postLoginURL = "/"
	}
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(logger.LoggerWrapper()),
		OAuth:        oauth,
		Accounts:     accounts,
		Sessions:     sessions,
		Events:       publisher,
		PostLoginURL: postLoginURL,
		Secure:       secure,
	}
}

// Login handles GET /auth/discord/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.Sessions.IssueState(r.Context())
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("could not start login", err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL / time.Second),
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /auth/discord/callback
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := logger.From(ctx)
	query := r.URL.Query()

	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true, Secure: h.Secure})

	if reason := query.Get("error"); reason != "" {
		lg.Info("discord authorization declined", "reason", reason)
		h.WriteAppError(w, internal.NewValidationError("Discord authorization was declined", internal.ErrCodeInvalidState))
		return
	}

	state := query.Get("state")
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		lg.Warn("oauth state mismatch")
		h.WriteAppError(w, internal.ErrInvalidOAuthState)
		return
	}
	ok, err := h.Sessions.ConsumeState(ctx, state)
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("could not verify login state", err))
		return
	}
	if !ok {
		lg.Warn("oauth state expired or replayed")
		h.WriteAppError(w, internal.ErrInvalidOAuthState)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.WriteAppError(w, internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{{
				Field:   "code",
				Message: "code is required",
				Code:    string(internal.ErrCodeValidationFailed),
			}}}))
		return
	}

	token, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		h.WriteAppError(w, internal.NewExternalError("Discord login failed", err))
		return
	}
	profile, err := h.OAuth.FetchCurrentUser(ctx, token.AccessToken)
	if err != nil {
		h.WriteAppError(w, internal.NewExternalError("Could not load Discord profile", err))
		return
	}

	u, account, err := h.Accounts.LinkDiscordAccount(ctx, user.LinkInput{
		DiscordUserID:  profile.ID,
		Email:          profile.Email,
		Username:       profile.Username,
		GlobalName:     profile.GlobalName,
		Discriminator:  profile.Discriminator,
		Avatar:         profile.Avatar,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
	})
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("could not link Discord account", err))
		return
	}

	sess, sessionToken, err := h.Sessions.Create(ctx, u, account)
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("could not create session", err))
		return
	}
	h.Sessions.SetCookie(w, sessionToken, sess.ExpiresAt)

	if h.Events != nil {
		if err := h.Events.Publish(ctx, events.NewDiscordLinkedEvent(u.ID, profile.ID, token.AccessToken)); err != nil {
			lg.Error("failed to publish discord linked event", "user_id", u.ID, "error", err)
		}
	}

	lg.Info("user signed in", "user_id", u.ID, "discord_user_id", profile.ID, "session_id", sess.ID)
	http.Redirect(w, r, h.PostLoginURL, http.StatusFound)
}

// GetSession handles GET /auth/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.GetSession(r)
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("could not load session", err))
		return
	}
	if sess == nil {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}
	h.WriteJSON(w, http.StatusOK, sess)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.GetSession(r)
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("could not load session", err))
		return
	}
	if sess != nil {
		if err := h.Sessions.Revoke(r.Context(), sess.ID); err != nil {
			h.WriteAppError(w, internal.NewInternalError("could not revoke session", err))
			return
		}
		logger.From(r.Context()).Info("user signed out", "user_id", sess.UserID, "session_id", sess.ID)
	}
	h.Sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
