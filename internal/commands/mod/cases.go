package mod

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

func caseOption(name, description string) *discordgo.ApplicationCommandOption {
	minCase := 1.0
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionInteger,
		Name:         name,
		Description:  description,
		Required:     true,
		MinValue:     &minCase,
		Autocomplete: true,
	}
}

// maxChoices is the autocomplete limit Discord accepts
const maxChoices = 25

// caseChoices renders cases as autocomplete choices
func caseChoices(cases []models.Case) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(cases))
	for _, c := range cases {
		name := fmt.Sprintf("#%d %s <%s> %s", c.ID, c.Action, c.TargetID, c.Reason)
		if len(name) > 100 {
			name = name[:97] + "..."
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: c.ID})
	}
	return choices
}

// completeCase suggests the latest cases matching what the user typed
func (h *handlers) completeCase(ctx *discord.CommandContext) {
	typed := ""
	if focused := ctx.FocusedOption(); focused != nil && focused.Value != nil {
		typed = strings.TrimSpace(fmt.Sprint(focused.Value))
	}

	cases, err := h.cases(ctx).Recent(context.Background(), ctx.Interaction.GuildID, typed, maxChoices)
	if err != nil {
		logger.Debug(fmt.Sprintf("Case autocomplete for %s failed: %v", ctx.Interaction.GuildID, err), "Moderation")
	}
	if err := ctx.Autocomplete(caseChoices(cases)); err != nil {
		logger.Debug("Could not answer case autocomplete: "+err.Error(), "Moderation")
	}
}

// caseNumber reads a case number option, 0 when missing or out of range
func caseNumber(ctx *discord.CommandContext, name string) uint32 {
	n := ctx.GetIntOption(name)
	if n <= 0 || n > int64(^uint32(0)) {
		return 0
	}
	return uint32(n)
}

// caseError turns a case management error into a user facing message
func caseError(err error, id uint32) string {
	switch {
	case errors.Is(err, models.ErrCaseNotFound):
		return fmt.Sprintf("Case %d does not exist.", id)
	case errors.Is(err, models.ErrSelfReference):
		return "A case can't reference itself."
	default:
		return "The case could not be updated, try again later."
	}
}

// referenceError names the referenced case when that is the missing one
func referenceError(err error, id, ref uint32) string {
	if errors.Is(err, models.ErrReferenceNotFound) {
		return caseError(err, ref)
	}
	return caseError(err, id)
}

func (h *handlers) caseShowCommand() *discord.Command {
	return discord.NewCommand(
		"show",
		"Show a case",
		"mod",
		h.caseShow,
	).WithOptions(
		caseOption("case", "The case number"),
	).WithUserPermissions(discordgo.PermissionManageGuild).
		WithAutoComplete(h.completeCase).
		InGuild()
}

func (h *handlers) caseShow(ctx *discord.CommandContext) error {
	id := caseNumber(ctx, "case")

	c, err := h.cases(ctx).Find(context.Background(), ctx.Interaction.GuildID, id)
	if err != nil {
		return ctx.ReplyEphemeralEmbed(moderation.ErrorEmbed(caseError(err, id)))
	}
	return ctx.ReplyEmbed(moderation.CaseEmbed(nil, nil, *c))
}

func (h *handlers) caseDeleteCommand() *discord.Command {
	return discord.NewCommand(
		"delete",
		"Delete a case",
		"mod",
		h.caseDelete,
	).WithOptions(
		caseOption("case", "The case number"),
	).WithUserPermissions(discordgo.PermissionManageGuild).
		WithAutoComplete(h.completeCase).
		InGuild()
}

func (h *handlers) caseDelete(ctx *discord.CommandContext) error {
	id := caseNumber(ctx, "case")

	if err := h.cases(ctx).Delete(context.Background(), ctx.Interaction.GuildID, id); err != nil {
		return ctx.ReplyEphemeralEmbed(moderation.ErrorEmbed(caseError(err, id)))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("Case %d has been deleted.", id))
}

func (h *handlers) reasonCommand() *discord.Command {
	return discord.NewCommand(
		"reason",
		"Set the reason of a case",
		"mod",
		h.reason,
	).WithOptions(
		caseOption("case", "The case number"),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "The new reason",
			Required:    true,
			MaxLength:   512,
		},
	).WithUserPermissions(discordgo.PermissionManageGuild).
		WithAutoComplete(h.completeCase).
		InGuild()
}

func (h *handlers) reason(ctx *discord.CommandContext) error {
	id := caseNumber(ctx, "case")

	c, err := h.cases(ctx).UpdateReason(context.Background(), ctx.Interaction.GuildID, id, ctx.GetStringOption("reason"))
	if err != nil {
		return ctx.ReplyEphemeralEmbed(moderation.ErrorEmbed(caseError(err, id)))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("Updated the reason of case %d to `%s`.", c.ID, c.Reason))
}

func (h *handlers) referenceCommand() *discord.Command {
	return discord.NewCommand(
		"reference",
		"Link a case to another one",
		"mod",
		h.reference,
	).WithOptions(
		caseOption("case", "The case number"),
		caseOption("reference", "The case it refers to"),
	).WithUserPermissions(discordgo.PermissionManageGuild).
		WithAutoComplete(h.completeCase).
		InGuild()
}

func (h *handlers) reference(ctx *discord.CommandContext) error {
	id := caseNumber(ctx, "case")
	ref := caseNumber(ctx, "reference")

	c, err := h.cases(ctx).UpdateReference(context.Background(), ctx.Interaction.GuildID, id, ref)
	if err != nil {
		return ctx.ReplyEphemeralEmbed(moderation.ErrorEmbed(referenceError(err, id, ref)))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("Case %d now references case %d.", c.ID, *c.Reference))
}
