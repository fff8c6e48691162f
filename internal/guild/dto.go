package guild

// PermissionsResponse is the body of GET /api/v1/guilds/{guildID}/permissions.
type PermissionsResponse struct {
	GuildID       string   `json:"guild_id"`
	Authenticated bool     `json:"authenticated"`
	Permissions   string   `json:"permissions"`
	Granted       []string `json:"granted"`
}

type RolesResponse struct {
	GuildID string  `json:"guild_id"`
	Roles   []*Role `json:"roles"`
}
