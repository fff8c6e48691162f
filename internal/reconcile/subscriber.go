package reconcile

import (
	"context"
	"fmt"

	"github.com/frahmantamala/guild-dashboard/internal"
	"github.com/frahmantamala/guild-dashboard/internal/core/events"
)

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Register runs a reconciliation for every discord.linked event.
func (r *Reconciler) Register(bus Subscriber) {
	bus.Subscribe(events.EventTypeDiscordLinked, r.HandleDiscordLinked)
}

func (r *Reconciler) HandleDiscordLinked(ctx context.Context, e events.Event) error {
	linked, ok := e.(*events.DiscordLinkedEvent)
	if !ok {
		return fmt.Errorf("reconcile: unexpected event %T", e)
	}

	ctx, cancel := internal.Detached(ctx, r.config.Timeout)
	defer cancel()

	r.Reconcile(ctx, Input{
		UserID:        linked.UserID,
		DiscordUserID: linked.DiscordUserID,
		AccessToken:   linked.AccessToken,
	})
	return nil
}
