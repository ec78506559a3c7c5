package mod

import (
	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
)

func (h *handlers) banCommand() *discord.Command {
	minDays := 0.0
	return discord.NewCommand(
		"ban",
		"Ban a member from the server",
		"mod",
		h.ban,
	).WithOptions(
		memberOption("The member to ban"),
		reasonOption(),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "days",
			Description: "Days of messages to delete (0-7)",
			MinValue:    &minDays,
			MaxValue:    7,
		},
	).WithBotPermissions(discordgo.PermissionBanMembers).
		InGuild()
}

func (h *handlers) ban(ctx *discord.CommandContext) error {
	data, err := h.actionData(ctx)
	if err != nil {
		return ctx.ReplyEphemeral("You have to specify a member.")
	}
	data.DeleteMessageDays = int(ctx.GetIntOption("days"))

	return run(ctx, moderation.NewBan(data), data)
}
