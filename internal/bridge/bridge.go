package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/auth"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"
)

// ErrPermissionLookup wraps resolver failures. It is logged, never returned
// to callers: the assertion is still issued with no permissions.
var ErrPermissionLookup = errors.New("bridge: permission lookup failed")

// PermissionResolver answers which bitflag a Discord identity holds in a guild.
type PermissionResolver interface {
	ResolvePermissions(ctx context.Context, guildID, discordUserID string) (permission.Bitflag, error)
}

// Bridge turns browser sessions into signed assertions for the backend.
type Bridge struct {
	resolver PermissionResolver
	secret   []byte
	logger   *slog.Logger
	now      func() time.Time
}

func New(resolver PermissionResolver, secret []byte, lg *slog.Logger) *Bridge {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Bridge{
		resolver: resolver,
		secret:   secret,
		logger:   lg,
		now:      time.Now,
	}
}

// BuildAssertion returns (nil, nil) when there is no session.
func (b *Bridge) BuildAssertion(ctx context.Context, sess *auth.Session, guildID string) (*assertion.Assertion, error) {
	if sess == nil {
		return nil, nil
	}

	a := &assertion.Assertion{
		UserID:          sess.UserID,
		Email:           sess.Email,
		DiscordUserID:   sess.DiscordUserID,
		SelectedGuildID: guildID,
		Permissions:     b.resolve(ctx, sess, guildID),
		SessionID:       sess.ID,
		ExpiresAt:       sess.ExpiresAt,
		Timestamp:       b.now().UnixMilli(),
		Username:        sess.Username,
		Discriminator:   sess.Discriminator,
		AvatarURL:       avatarURL(sess),
		Name:            sess.Name,
	}
	return a, nil
}

func (b *Bridge) resolve(ctx context.Context, sess *auth.Session, guildID string) permission.Bitflag {
	if guildID == "" || sess.DiscordUserID == nil || b.resolver == nil {
		return permission.None
	}
	flags, err := b.resolver.ResolvePermissions(ctx, guildID, *sess.DiscordUserID)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrPermissionLookup, err)
		b.logger.Error("issuing assertion without permissions",
			"guild_id", guildID,
			"user_id", sess.UserID,
			"error", err)
		return permission.None
	}
	return flags
}

// AttachHeaders signs a and writes both transport headers onto h.
func (b *Bridge) AttachHeaders(a *assertion.Assertion, h http.Header) error {
	if a == nil {
		return nil
	}
	payload, signature, err := assertion.Encode(*a, b.secret)
	if err != nil {
		return err
	}
	h.Set(assertion.HeaderPayload, payload)
	h.Set(assertion.HeaderSignature, signature)
	return nil
}

// StripHeaders removes any assertion a client tried to supply itself.
func StripHeaders(h http.Header) {
	h.Del(assertion.HeaderPayload)
	h.Del(assertion.HeaderSignature)
}

func avatarURL(sess *auth.Session) string {
	if sess.Avatar == "" || sess.DiscordUserID == nil {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", *sess.DiscordUserID, sess.Avatar)
}
