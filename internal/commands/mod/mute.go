package mod

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
)

func (h *handlers) muteCommand() *discord.Command {
	minMinutes := 1.0
	return discord.NewCommand(
		"mute",
		"Time a member out",
		"mod",
		h.mute,
	).WithOptions(
		memberOption("The member to mute"),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "minutes",
			Description: "Length of the timeout in minutes",
			Required:    true,
			MinValue:    &minMinutes,
			MaxValue:    moderation.MaxMuteDuration.Minutes(),
		},
		reasonOption(),
	).WithBotPermissions(discordgo.PermissionModerateMembers).
		InGuild()
}

func (h *handlers) mute(ctx *discord.CommandContext) error {
	data, err := h.actionData(ctx)
	if err != nil {
		return ctx.ReplyEphemeral("You have to specify a member.")
	}

	minutes := ctx.GetIntOption("minutes")
	if minutes <= 0 {
		return ctx.ReplyEphemeral("The timeout has to last at least one minute.")
	}
	data.Duration = time.Duration(minutes) * time.Minute

	return run(ctx, moderation.NewMute(data), data)
}
