package events

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/metrics"
)

// RegisterGuildEvents registers all guild-related event handlers
func RegisterGuildEvents(client *discord.ExtendedClient, deps Deps) {
	client.EventHandler.OnGuildCreate(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		onGuildCreate(deps, g, client.GuildCount())
	})
	client.EventHandler.OnGuildDelete(func(s *discordgo.Session, g *discordgo.GuildDelete) {
		onGuildDelete(deps, g, client.GuildCount())
	})
}

// onGuildCreate fires for every guild on startup and when the bot joins one.
// Every guild gets its document so moderation never waits on the insert.
func onGuildCreate(deps Deps, g *discordgo.GuildCreate, guildCount int) {
	metrics.GuildsGauge.Set(float64(guildCount))

	if deps.Store != nil {
		if err := ensureGuild(deps.Store, g.ID); err != nil {
			logger.Warn(fmt.Sprintf("Could not prepare the document of %s: %v", g.ID, err), "Guild")
		}
	}
	if deps.Guilds != nil {
		deps.Guilds.Track(g.ID)
	}

	if g.JoinedAt.Before(time.Now().Add(-10 * time.Second)) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Joined server: %s (ID: %s)", g.Name, g.ID), "Guild")
	logger.Debug(fmt.Sprintf("   Members: %d | Channels: %d", g.MemberCount, len(g.Channels)), "Guild")
}

func ensureGuild(store database.GuildRepository, guildID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	unlock := store.Lock(guildID)
	defer unlock()

	_, err := store.Guild(ctx, guildID)
	return err
}

// onGuildDelete is called when the bot leaves a server or it becomes unavailable
func onGuildDelete(deps Deps, g *discordgo.GuildDelete, guildCount int) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("Server %s is unavailable", g.ID), "Guild")
		return
	}
	if deps.Guilds != nil {
		deps.Guilds.Forget(g.ID)
	}

	metrics.GuildsGauge.Set(float64(guildCount))
	logger.Info(fmt.Sprintf("➖ Removed from server ID: %s", g.ID), "Guild")
}
