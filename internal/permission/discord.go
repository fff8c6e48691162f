package permission

import (
	"strconv"
	"strings"
)

// DiscordPermissions is the raw permission integer Discord reports for a
// member of a guild. It is a different namespace from Bitflag and must never
// be mixed with it.
type DiscordPermissions uint64

// Discord permission bits consumed by the dashboard.
const (
	DiscordAdministrator DiscordPermissions = 1 << 3
	DiscordManageGuild   DiscordPermissions = 1 << 5
)

// ParseDiscordPermissions parses the string-encoded permission field of the
// Discord API. An unparsable value yields zero.
func ParseDiscordPermissions(raw string) DiscordPermissions {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return DiscordPermissions(v)
}

func (p DiscordPermissions) CanManageGuild() bool {
	return p&DiscordManageGuild == DiscordManageGuild
}

func (p DiscordPermissions) IsAdministrator() bool {
	return p&DiscordAdministrator == DiscordAdministrator
}
