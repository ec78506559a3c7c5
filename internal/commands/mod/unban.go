package mod

import (
	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
)

func (h *handlers) unbanCommand() *discord.Command {
	return discord.NewCommand(
		"unban",
		"Lift the ban of a user",
		"mod",
		h.unban,
	).WithOptions(
		memberOption("The user to unban"),
		reasonOption(),
	).WithBotPermissions(discordgo.PermissionBanMembers).
		InGuild()
}

func (h *handlers) unban(ctx *discord.CommandContext) error {
	data, err := h.actionData(ctx)
	if err != nil {
		return ctx.ReplyEphemeral("You have to specify a user.")
	}
	return run(ctx, moderation.NewUnban(data), data)
}
