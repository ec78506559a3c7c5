package mod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

// actionTimeout bounds the work done after the interaction was deferred.
// Deferred interactions stay editable for 15 minutes.
const actionTimeout = 10 * time.Second

var errNoTarget = errors.New("no member given")

func memberOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "member",
		Description: description,
		Required:    true,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason stored with the case",
		MaxLength:   512,
	}
}

// deferredReplier answers a moderation action after the interaction was
// deferred. Ephemeral answers go out as a follow-up and the public
// placeholder is removed.
type deferredReplier struct {
	ctx *discord.CommandContext
}

func (r deferredReplier) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return r.ctx.EditReplyEmbed(embed)
}

func (r deferredReplier) ReplyEphemeral(content string) error {
	if err := r.ctx.FollowupEphemeral(content); err != nil {
		return err
	}
	return r.ctx.DeleteReply()
}

func (r deferredReplier) replyEphemeralEmbed(embed *discordgo.MessageEmbed) error {
	if err := r.ctx.FollowupEphemeralEmbed(embed); err != nil {
		return err
	}
	return r.ctx.DeleteReply()
}

// actionData builds the moderation input from the interaction
func (h *handlers) actionData(ctx *discord.CommandContext) (moderation.ActionData, error) {
	target := ctx.GetUserOption("member")
	if target == nil {
		return moderation.ActionData{}, errNoTarget
	}

	return moderation.ActionData{
		Session:          ctx.Session,
		Replier:          deferredReplier{ctx},
		Store:            h.deps.Store,
		Publisher:        h.deps.Publisher,
		GuildID:          ctx.Interaction.GuildID,
		Staff:            ctx.User(),
		StaffPermissions: ctx.MemberPermissions(),
		Target:           target,
		Reason:           ctx.GetStringOption("reason"),
	}, nil
}

// run defers the interaction, executes an action and answers it. Permission
// and API failures are answered inside the moderation package.
func run(ctx *discord.CommandContext, m moderation.Moderation, data moderation.ActionData) error {
	if err := ctx.Defer(); err != nil {
		return fmt.Errorf("defer /mod %s: %w", m.Action(), err)
	}

	c, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	out, err := moderation.Run(c, m)
	reply := deferredReplier{ctx}
	switch {
	case errors.Is(err, moderation.ErrPermissionDenied):
		return nil
	case err != nil && !out.Attempted:
		_ = reply.replyEphemeralEmbed(moderation.ErrorEmbed("The server settings could not be loaded, try again later."))
		return err
	case out.Succeeded():
		if replyErr := reply.ReplyEmbed(moderation.SuccessEmbed(data.Staff, data.Target, out)); replyErr != nil {
			logger.Warn(fmt.Sprintf("Could not answer /mod %s: %v", m.Action(), replyErr), "Moderation")
		}
	}
	return err
}
