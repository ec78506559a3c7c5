// Package application provides the context menu commands
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/internal/starboard"
	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

const noStarboard = "There is no starboard channel set!\nUse `/settings channel starboard <channel>`"

// RegisterApplicationCommands registers the message context menu commands
func RegisterApplicationCommands(client *discord.ExtendedClient, store database.GuildRepository) {
	client.CommandHandler.RegisterCommand(starCommand(store))
}

func starCommand(store database.GuildRepository) *discord.Command {
	return discord.NewCommand(
		"Star",
		"Star the message and send it to the starboard channel",
		"application",
		func(ctx *discord.CommandContext) error {
			msg := ctx.TargetMessage()
			if msg == nil {
				return ctx.ReplyEphemeral("I could not read that message.")
			}
			if err := ctx.Defer(); err != nil {
				return fmt.Errorf("defer star: %w", err)
			}

			c, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			sb := &starboard.Starboard{Store: store, Webhooks: ctx.Session}
			return ctx.EditReply(starReply(sb.Star(c, ctx.Interaction.GuildID, msg), ctx.Interaction.GuildID))
		},
	).AsMessageCommand().
		WithBotPermissions(discordgo.PermissionManageWebhooks).
		InGuild()
}

func starReply(err error, guildID string) string {
	switch {
	case err == nil:
		return "Successfully starred the message!"
	case errors.Is(err, starboard.ErrNoStarboard):
		return noStarboard
	default:
		logger.Error(fmt.Sprintf("Could not star a message in %s: %v", guildID, err), "Starboard")
		return "The message could not be starred, try again later."
	}
}
