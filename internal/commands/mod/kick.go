package mod

import (
	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
)

func (h *handlers) kickCommand() *discord.Command {
	return discord.NewCommand(
		"kick",
		"Kick a member from the server",
		"mod",
		h.kick,
	).WithOptions(
		memberOption("The member to kick"),
		reasonOption(),
	).WithBotPermissions(discordgo.PermissionKickMembers).
		InGuild()
}

func (h *handlers) kick(ctx *discord.CommandContext) error {
	data, err := h.actionData(ctx)
	if err != nil {
		return ctx.ReplyEphemeral("You have to specify a member.")
	}
	return run(ctx, moderation.NewKick(data), data)
}
