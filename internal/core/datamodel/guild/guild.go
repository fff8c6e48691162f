package guild

import "time"

type Guild struct {
	ID             string    `gorm:"primaryKey;column:id"`
	Name           string    `gorm:"column:name;not null"`
	BotInstalled   bool      `gorm:"column:bot_installed;not null;default:false"`
	OwnerDiscordID string    `gorm:"column:owner_discord_id"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (Guild) TableName() string { return "guilds" }

type Role struct {
	ID          int64     `gorm:"primaryKey"`
	GuildID     string    `gorm:"column:guild_id;not null;uniqueIndex:idx_roles_guild_name"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:idx_roles_guild_name"`
	Color       string    `gorm:"column:color"`
	IsDefault   bool      `gorm:"column:is_default;not null;default:false"`
	// Permissions holds the 64-bit set reinterpreted as signed so it fits BIGINT.
	Permissions int64     `gorm:"column:permissions;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (Role) TableName() string { return "roles" }

type RoleAssignment struct {
	ID            int64     `gorm:"primaryKey"`
	GuildID       string    `gorm:"column:guild_id;not null;uniqueIndex:idx_assignments_guild_user"`
	RoleID        int64     `gorm:"column:role_id;not null;index"`
	DiscordUserID string    `gorm:"column:discord_user_id;not null;uniqueIndex:idx_assignments_guild_user"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (RoleAssignment) TableName() string { return "role_assignments" }
