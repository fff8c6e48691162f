package user

import "time"

// MeResponse is the body of GET /api/v1/me.
type MeResponse struct {
	User      *User           `json:"user"`
	Discord   *DiscordAccount `json:"discord,omitempty"`
	SessionID string          `json:"session_id"`
	ExpiresAt time.Time       `json:"expires_at"`
	Guild     *GuildContext   `json:"guild,omitempty"`
}

// GuildContext describes the guild the assertion was issued for.
type GuildContext struct {
	ID          string   `json:"id"`
	Permissions string   `json:"permissions"`
	Granted     []string `json:"granted"`
}
