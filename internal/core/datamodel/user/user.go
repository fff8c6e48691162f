package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type User struct {
	ID        string    `gorm:"primaryKey;column:id" db:"id"`
	Email     string    `gorm:"column:email;not null" db:"email"`
	Name      string    `gorm:"column:name" db:"name"`
	CreatedAt time.Time `gorm:"column:created_at" db:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" db:"updated_at"`
}

func (User) TableName() string { return "users" }

// GuildSnapshot is one entry of the cached Discord guild list.
type GuildSnapshot struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon,omitempty"`
	Owner       bool     `json:"owner"`
	Permissions string   `json:"permissions"`
	Features    []string `json:"features,omitempty"`
}

// GuildSnapshots is stored as a JSON document.
type GuildSnapshots []GuildSnapshot

func (GuildSnapshots) GormDataType() string { return "text" }

func (s GuildSnapshots) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (s *GuildSnapshots) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("guild snapshots: unsupported source %T", src)
	}
	return json.Unmarshal(raw, s)
}

type DiscordAccount struct {
	ID              int64          `gorm:"primaryKey" db:"id"`
	UserID          string         `gorm:"column:user_id;not null;uniqueIndex" db:"user_id"`
	DiscordUserID   string         `gorm:"column:discord_user_id;not null;uniqueIndex" db:"discord_user_id"`
	Username        string         `gorm:"column:username" db:"username"`
	Discriminator   string         `gorm:"column:discriminator" db:"discriminator"`
	Avatar          string         `gorm:"column:avatar" db:"avatar"`
	AccessToken     string         `gorm:"column:access_token" db:"access_token"`
	RefreshToken    string         `gorm:"column:refresh_token" db:"refresh_token"`
	TokenExpiresAt  *time.Time     `gorm:"column:token_expires_at" db:"token_expires_at"`
	GuildsSnapshot  GuildSnapshots `gorm:"column:guilds_snapshot" db:"guilds_snapshot"`
	GuildsFetchedAt *time.Time     `gorm:"column:guilds_fetched_at" db:"guilds_fetched_at"`
	CreatedAt       time.Time      `gorm:"column:created_at" db:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at" db:"updated_at"`
}

func (DiscordAccount) TableName() string { return "discord_accounts" }
