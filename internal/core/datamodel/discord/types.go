package discord

import (
	"errors"
	"fmt"
)

// PartialGuild is an entry of GET /users/@me/guilds.
type PartialGuild struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Owner       bool     `json:"owner"`
	Permissions string   `json:"permissions"`
	Features    []string `json:"features"`
}

func (g *PartialGuild) Validate() error {
	if g.ID == "" {
		return errors.New("guild id is required")
	}
	return nil
}

// CurrentUser is the body of GET /users/@me.
type CurrentUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
	Avatar        string `json:"avatar"`
	Email         string `json:"email"`
	Verified      bool   `json:"verified"`
}

func (u *CurrentUser) Validate() error {
	if u.ID == "" {
		return errors.New("user id is required")
	}
	return nil
}

// AvatarURL returns the CDN url of the user's avatar, or "" when unset.
func (u *CurrentUser) AvatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
}

// APIError is Discord's JSON error body.
type APIError struct {
	Code       int     `json:"code"`
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after,omitempty"`
}
