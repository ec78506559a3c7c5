// Package settings provides the /settings commands that configure the
// channels a guild uses
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// ErrUnknownSetting is returned for a setting name with no matching field
var ErrUnknownSetting = errors.New("unknown setting")

// logs receives case entries, welcome greets new members and starboard
// collects starred messages
var channelKinds = []string{"logs", "welcome", "starboard"}

// SetChannel stores a channel ID under one of the guild channel settings
func SetChannel(doc *models.GuildDocument, kind, channelID string) error {
	switch kind {
	case "logs":
		doc.Channels.Logs = channelID
	case "welcome":
		doc.Channels.Welcome = channelID
	case "starboard":
		doc.Channels.Starboard = channelID
	default:
		return fmt.Errorf("%w: channel %q", ErrUnknownSetting, kind)
	}
	return nil
}

func choices(values []string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, v := range values {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return out
}

// RegisterSettingsCommands registers /settings channel
func RegisterSettingsCommands(client *discord.ExtendedClient, store database.GuildRepository) {
	channelCmd := discord.NewCommand(
		"channel",
		"Set one of the server channels",
		"settings",
		func(ctx *discord.CommandContext) error {
			channel := ctx.GetChannelOption("channel")
			if channel == nil {
				return ctx.ReplyEphemeral("You have to specify a channel.")
			}
			kind := ctx.GetStringOption("type")
			return update(ctx, store, func(doc *models.GuildDocument) error {
				return SetChannel(doc, kind, channel.ID)
			}, fmt.Sprintf("The %s channel is now <#%s>.", kind, channel.ID))
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "type",
			Description: "The setting to change",
			Required:    true,
			Choices:     choices(channelKinds),
		},
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "The channel to use",
			Required:     true,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
	).WithUserPermissions(discordgo.PermissionManageGuild).
		InGuild()

	group := client.CommandHandler.BuildCommandGroup(
		"settings",
		"Server settings",
		channelCmd,
	)
	perms := int64(discordgo.PermissionManageGuild)
	group.DefaultMemberPermissions = &perms

	client.CommandHandler.AddGlobalCommand(group)
}

// Apply loads the guild document, mutates it and saves it under the guild lock
func Apply(ctx context.Context, store database.GuildRepository, guildID string, mutate func(*models.GuildDocument) error) error {
	unlock := store.Lock(guildID)
	defer unlock()

	doc, err := store.Guild(ctx, guildID)
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}
	return store.Save(ctx, doc)
}

func update(ctx *discord.CommandContext, store database.GuildRepository, mutate func(*models.GuildDocument) error, done string) error {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Apply(c, store, ctx.Interaction.GuildID, mutate); err != nil {
		logger.Error(fmt.Sprintf("Could not update the settings of %s: %v", ctx.Interaction.GuildID, err), "Settings")
		return ctx.ReplyEphemeral("The setting could not be saved, try again later.")
	}
	return ctx.ReplyEphemeral(done)
}
