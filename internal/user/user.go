package user

import (
	"errors"
	"time"

	userDatamodel "github.com/frahmantamala/guild-dashboard/internal/core/datamodel/user"
)

type GuildSnapshot = userDatamodel.GuildSnapshot

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DiscordAccount links a user to exactly one Discord identity.
type DiscordAccount struct {
	UserID          string          `json:"user_id"`
	DiscordUserID   string          `json:"discord_user_id"`
	Username        string          `json:"username"`
	Discriminator   string          `json:"discriminator"`
	Avatar          string          `json:"avatar"`
	AccessToken     string          `json:"-"`
	RefreshToken    string          `json:"-"`
	TokenExpiresAt  *time.Time      `json:"-"`
	Guilds          []GuildSnapshot `json:"guilds,omitempty"`
	GuildsFetchedAt *time.Time      `json:"guilds_fetched_at,omitempty"`
}

var (
	ErrNotFound        = errors.New("user not found")
	ErrAccountNotFound = errors.New("discord account not found")
)

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func AccountToDataModel(a *DiscordAccount) *userDatamodel.DiscordAccount {
	return &userDatamodel.DiscordAccount{
		UserID:          a.UserID,
		DiscordUserID:   a.DiscordUserID,
		Username:        a.Username,
		Discriminator:   a.Discriminator,
		Avatar:          a.Avatar,
		AccessToken:     a.AccessToken,
		RefreshToken:    a.RefreshToken,
		TokenExpiresAt:  a.TokenExpiresAt,
		GuildsSnapshot:  a.Guilds,
		GuildsFetchedAt: a.GuildsFetchedAt,
	}
}

func AccountFromDataModel(a *userDatamodel.DiscordAccount) *DiscordAccount {
	return &DiscordAccount{
		UserID:          a.UserID,
		DiscordUserID:   a.DiscordUserID,
		Username:        a.Username,
		Discriminator:   a.Discriminator,
		Avatar:          a.Avatar,
		AccessToken:     a.AccessToken,
		RefreshToken:    a.RefreshToken,
		TokenExpiresAt:  a.TokenExpiresAt,
		Guilds:          a.GuildsSnapshot,
		GuildsFetchedAt: a.GuildsFetchedAt,
	}
}
