package events

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeDiscordLinked = "discord.linked"

// DiscordLinkedEvent is published after every successful OAuth callback.
// AccessToken is carried for the reconciler and never logged.
type DiscordLinkedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	DiscordUserID string `json:"discord_user_id"`
	AccessToken   string `json:"-"`
}

func NewDiscordLinkedEvent(userID, discordUserID, accessToken string) *DiscordLinkedEvent {
	return &DiscordLinkedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDiscordLinked,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":         userID,
				"discord_user_id": discordUserID,
			},
		},
		UserID:        userID,
		DiscordUserID: discordUserID,
		AccessToken:   accessToken,
	}
}
