// Package events provides the gateway event handlers of the bot
package events

import (
	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

// GuildTracker follows the guilds the bot is in. The reminder scheduler
// satisfies it.
type GuildTracker interface {
	Track(guildID string)
	Forget(guildID string)
}

// Deps are the services the event handlers need. Both may be nil.
type Deps struct {
	Store  database.GuildRepository
	Guilds GuildTracker
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	logger.System("📋 Registering bot events...", "Events")

	// Ready event (bot startup)
	RegisterReadyEvent(client)

	// Guild events (server join/leave)
	RegisterGuildEvents(client, deps)

	// Member events (welcome messages)
	RegisterMemberEvents(client, deps.Store)

	// Gateway disconnect/resume
	RegisterShardEvents(client)

	logger.Success("✅ All events registered", "Events")
}
