package guild

import (
	"errors"
	"time"

	guildDatamodel "github.com/frahmantamala/guild-dashboard/internal/core/datamodel/guild"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
)

// Baseline role names ensured in every installed guild.
const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
	RoleViewer  = "viewer"
	RoleMember  = "member"
)

var (
	ErrNotFound     = errors.New("guild: not found")
	ErrRoleNotFound = errors.New("guild: role not found")
)

type Guild struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	BotInstalled   bool      `json:"bot_installed"`
	OwnerDiscordID string    `json:"owner_discord_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Role struct {
	ID          int64              `json:"id"`
	GuildID     string             `json:"guild_id"`
	Name        string             `json:"name"`
	Color       string             `json:"color"`
	IsDefault   bool               `json:"is_default"`
	Permissions permission.Bitflag `json:"permissions"`
}

type RoleAssignment struct {
	ID            int64  `json:"id"`
	GuildID       string `json:"guild_id"`
	RoleID        int64  `json:"role_id"`
	DiscordUserID string `json:"discord_user_id"`
}

// RoleTemplate describes one baseline role.
type RoleTemplate struct {
	Name        string
	Color       string
	IsDefault   bool
	Permissions permission.Bitflag
}

// DefaultRoles is the fixed baseline role set. Exactly one entry is the
// default role; it grants nothing until a guild admin edits it.
var DefaultRoles = []RoleTemplate{
	{Name: RoleAdmin, Color: "#e74c3c", Permissions: permission.All},
	{Name: RoleSupport, Color: "#3498db", Permissions: permission.ViewDashboard | permission.ViewTickets | permission.ManageTickets | permission.ViewTranscripts},
	{Name: RoleViewer, Color: "#95a5a6", Permissions: permission.ViewDashboard | permission.ViewTickets | permission.ViewAnalytics},
	{Name: RoleMember, Color: "#7f8c8d", IsDefault: true, Permissions: permission.None},
}

// IsDefaultRoleName reports whether name belongs to the baseline set.
func IsDefaultRoleName(name string) bool {
	switch name {
	case RoleAdmin, RoleSupport, RoleViewer, RoleMember:
		return true
	}
	return false
}

func (t RoleTemplate) DataModel(guildID string) *guildDatamodel.Role {
	return &guildDatamodel.Role{
		GuildID:     guildID,
		Name:        t.Name,
		Color:       t.Color,
		IsDefault:   t.IsDefault,
		Permissions: int64(t.Permissions),
	}
}

func GuildFromDataModel(g *guildDatamodel.Guild) *Guild {
	return &Guild{
		ID:             g.ID,
		Name:           g.Name,
		BotInstalled:   g.BotInstalled,
		OwnerDiscordID: g.OwnerDiscordID,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
}

func GuildToDataModel(g *Guild) *guildDatamodel.Guild {
	return &guildDatamodel.Guild{
		ID:             g.ID,
		Name:           g.Name,
		BotInstalled:   g.BotInstalled,
		OwnerDiscordID: g.OwnerDiscordID,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
}

func RoleFromDataModel(r *guildDatamodel.Role) *Role {
	return &Role{
		ID:          r.ID,
		GuildID:     r.GuildID,
		Name:        r.Name,
		Color:       r.Color,
		IsDefault:   r.IsDefault,
		Permissions: permission.Bitflag(uint64(r.Permissions)),
	}
}

func AssignmentFromDataModel(a *guildDatamodel.RoleAssignment) *RoleAssignment {
	return &RoleAssignment{
		ID:            a.ID,
		GuildID:       a.GuildID,
		RoleID:        a.RoleID,
		DiscordUserID: a.DiscordUserID,
	}
}
